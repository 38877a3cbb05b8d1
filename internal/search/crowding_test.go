package search_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaperera/premosa-go/internal/search"
	"github.com/anjanaperera/premosa-go/internal/target"
)

func TestCrowdingDistanceBoundariesAreInfinite(t *testing.T) {
	o := target.ID(1)
	a := ind("a", map[target.ID]float64{o: 0})
	b := ind("b", map[target.ID]float64{o: 5})
	c := ind("c", map[target.ID]float64{o: 10})

	dist := search.CrowdingDistance([]search.Individual{a, b, c}, []target.ID{o})
	require.Len(t, dist, 3)
	assert.True(t, math.IsInf(dist[0], 1))
	assert.True(t, math.IsInf(dist[2], 1))
	assert.False(t, math.IsInf(dist[1], 1))
}

func TestSelectPopulationFillsWholeFrontsThenPartial(t *testing.T) {
	o := target.ID(1)
	f0 := []search.Individual{ind("a", map[target.ID]float64{o: 0})}
	f1 := []search.Individual{
		ind("b", map[target.ID]float64{o: 1}),
		ind("c", map[target.ID]float64{o: 2}),
		ind("d", map[target.ID]float64{o: 3}),
	}

	selected := search.SelectPopulation([][]search.Individual{f0, f1}, 2, []target.ID{o})
	require.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].Test.ID())
}
