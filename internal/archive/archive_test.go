package archive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaperera/premosa-go/internal/archive"
	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/target"
)

type fakeTest struct {
	id   string
	size uint32
}

func (f fakeTest) ID() string   { return f.id }
func (f fakeTest) Size() uint32 { return f.size }

type noopFitness struct{}

func (noopFitness) Distance(execution.TestCase) float64 { return 0 }

func TestUpdateAcceptsUnderBudget(t *testing.T) {
	a := archive.New(50)
	b := target.NewBuilder()
	f := b.NewSimple(target.Line, noopFitness{}, false)

	ok := a.Update(f, fakeTest{id: "t1", size: 10})
	require.True(t, ok)
	assert.EqualValues(t, 10, a.StatementCount())
	assert.False(t, a.IsFinished())
}

func TestUpdateLatchesOverBudget(t *testing.T) {
	a := archive.New(50)
	b := target.NewBuilder()
	f1 := b.NewSimple(target.Line, noopFitness{}, false)
	f2 := b.NewSimple(target.Statement, noopFitness{}, false)
	f3 := b.NewSimple(target.WeakMutation, noopFitness{}, false)

	require.True(t, a.Update(f1, fakeTest{id: "t1", size: 10}))
	require.True(t, a.Update(f2, fakeTest{id: "t2", size: 20}))
	ok := a.Update(f3, fakeTest{id: "t3", size: 25})

	assert.False(t, ok)
	assert.True(t, a.IsFinished())
}

func TestBestReplacementRespectsSizeGreaterThanOne(t *testing.T) {
	a := archive.New(1000)
	b := target.NewBuilder()
	f := b.NewSimple(target.Line, noopFitness{}, false)

	require.True(t, a.Update(f, fakeTest{id: "big", size: 10}))
	best, ok := a.Best(f.ID())
	require.True(t, ok)
	assert.Equal(t, "big", best.ID())

	// A test of size 1 must not replace the existing best even though
	// it is smaller (spec.md §4.3 step 3).
	require.True(t, a.Update(f, fakeTest{id: "tiny", size: 1}))
	best, _ = a.Best(f.ID())
	assert.Equal(t, "big", best.ID())

	require.True(t, a.Update(f, fakeTest{id: "smaller", size: 5}))
	best, _ = a.Best(f.ID())
	assert.Equal(t, "smaller", best.ID())
}

func TestCoveredByTracksMultipleTargets(t *testing.T) {
	a := archive.New(1000)
	b := target.NewBuilder()
	f1 := b.NewSimple(target.Line, noopFitness{}, false)
	f2 := b.NewSimple(target.Statement, noopFitness{}, false)

	require.True(t, a.Update(f1, fakeTest{id: "t1", size: 3}))
	require.True(t, a.Update(f2, fakeTest{id: "t1", size: 3}))

	assert.ElementsMatch(t, []target.ID{f1.ID(), f2.ID()}, a.CoveredBy("t1"))
}

func TestExceptionRegistryFirstObservationOnly(t *testing.T) {
	r := archive.NewExceptionRegistry()
	exc := execution.Exception{Class: "pkg.Foo", Method: "bar", Type: "NullPointerException"}

	assert.True(t, r.Observe(exc))
	assert.False(t, r.Observe(exc))
	assert.Len(t, r.Known(), 1)
}
