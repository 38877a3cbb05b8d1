// Package search implements the DynaMOSA/PreMOSA outer many-objective
// search loop: preference + non-dominated ranking, crowding distance,
// population selection, and the trigger state machine (spec.md §4.7-§4.8).
package search

import (
	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/target"
)

// Individual pairs an evolved test case with its per-objective distance
// vector, computed against the goal manager's current objectives by
// goalmanager.CalculateFitness.
type Individual struct {
	Test      execution.TestCase
	Distances map[target.ID]float64
}

func distance(ind Individual, obj target.ID) float64 {
	d, ok := ind.Distances[obj]
	if !ok {
		return 0
	}
	return d
}

// dominates reports whether a Pareto-dominates b over objectives: no worse
// on every objective, and strictly better on at least one.
func dominates(a, b Individual, objectives []target.ID) bool {
	strictlyBetter := false
	for _, o := range objectives {
		da, db := distance(a, o), distance(b, o)
		if da > db {
			return false
		}
		if da < db {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}

// PreferenceSort splits individuals into the preference front (spec.md
// §4.8: "rank by preference + non-domination against current") — one
// individual per objective achieving the minimal distance for that
// objective, deduplicated — and the remainder, which callers subsequently
// feed to FastNonDominatedSort.
func PreferenceSort(individuals []Individual, objectives []target.ID) (front []Individual, rest []Individual) {
	inFront := make(map[int]struct{})
	for _, o := range objectives {
		best := -1
		bestDist := 0.0
		for i, ind := range individuals {
			d := distance(ind, o)
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		if best >= 0 {
			inFront[best] = struct{}{}
		}
	}

	for i, ind := range individuals {
		if _, ok := inFront[i]; ok {
			front = append(front, ind)
		} else {
			rest = append(rest, ind)
		}
	}
	return front, rest
}

// FastNonDominatedSort partitions individuals into Pareto fronts, best
// (least dominated) first, over objectives.
func FastNonDominatedSort(individuals []Individual, objectives []target.ID) [][]Individual {
	n := len(individuals)
	dominatedBy := make([][]int, n)
	dominationCount := make([]int, n)
	rank := make([]int, n)

	var front0 []int
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if dominates(individuals[i], individuals[j], objectives) {
				dominatedBy[i] = append(dominatedBy[i], j)
			} else if dominates(individuals[j], individuals[i], objectives) {
				dominationCount[i]++
			}
		}
		if dominationCount[i] == 0 {
			rank[i] = 0
			front0 = append(front0, i)
		}
	}

	var fronts [][]int
	if len(front0) > 0 {
		fronts = append(fronts, front0)
	}

	cur := front0
	for len(cur) > 0 {
		var next []int
		for _, i := range cur {
			for _, j := range dominatedBy[i] {
				dominationCount[j]--
				if dominationCount[j] == 0 {
					rank[j] = rank[i] + 1
					next = append(next, j)
				}
			}
		}
		if len(next) > 0 {
			fronts = append(fronts, next)
		}
		cur = next
	}

	out := make([][]Individual, len(fronts))
	for fi, idxs := range fronts {
		for _, i := range idxs {
			out[fi] = append(out[fi], individuals[i])
		}
	}
	return out
}
