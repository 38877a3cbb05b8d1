package search

import (
	"math"
	"sort"

	"github.com/anjanaperera/premosa-go/internal/target"
)

// CrowdingDistance assigns each individual in front a crowding distance
// over objectives, used to break ties when a front is only partially
// selected (spec.md §4.8: "assigns crowding distance within each front").
// Boundary individuals (extreme values per objective) receive +Inf so they
// are always preferred, the standard NSGA-II definition.
func CrowdingDistance(front []Individual, objectives []target.ID) []float64 {
	n := len(front)
	dist := make([]float64, n)
	if n == 0 {
		return dist
	}
	if n <= 2 {
		for i := range dist {
			dist[i] = math.Inf(1)
		}
		return dist
	}

	for _, o := range objectives {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			return distance(front[order[a]], o) < distance(front[order[b]], o)
		})

		min := distance(front[order[0]], o)
		max := distance(front[order[n-1]], o)
		dist[order[0]] = math.Inf(1)
		dist[order[n-1]] = math.Inf(1)
		if max == min {
			continue
		}
		for k := 1; k < n-1; k++ {
			prev := distance(front[order[k-1]], o)
			next := distance(front[order[k+1]], o)
			dist[order[k]] += (next - prev) / (max - min)
		}
	}
	return dist
}

// SelectPopulation fills a population of size target from fronts, ordered
// best-first, by taking whole fronts while the remaining budget allows,
// then filling the final partial front by descending crowding distance
// (spec.md §4.8: "select the first fronts fully while remaining >= |front|,
// then partially select the next front by descending crowding distance").
func SelectPopulation(fronts [][]Individual, size int, objectives []target.ID) []Individual {
	var selected []Individual
	for _, front := range fronts {
		if len(selected)+len(front) <= size {
			selected = append(selected, front...)
			continue
		}

		remaining := size - len(selected)
		if remaining <= 0 {
			break
		}
		dist := CrowdingDistance(front, objectives)
		order := make([]int, len(front))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			return dist[order[a]] > dist[order[b]]
		})
		for i := 0; i < remaining; i++ {
			selected = append(selected, front[order[i]])
		}
		break
	}
	return selected
}
