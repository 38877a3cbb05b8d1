// Package goalmanager is the flattened goal manager: the triad
// {uncovered, current, covered}, the buggy/non-buggy partition with staged
// activators, and the fitness-evaluation BFS. spec.md §9 calls for
// flattening the original's StructuralGoalManager -> MultiCriteriaManager
// -> PredictiveCriteriaManager inheritance chain into one struct with
// composition and explicit activator methods; this package is that struct.
package goalmanager

import (
	"context"
	"math"
	"time"

	"github.com/anjanaperera/premosa-go/internal/archive"
	"github.com/anjanaperera/premosa-go/internal/cfg"
	"github.com/anjanaperera/premosa-go/internal/depmap"
	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/target"
)

type branchSlot struct {
	branchID int32
	value    bool
}

// BuildOpts supplies everything needed to construct a GoalManager: the
// structural graph and dependency map (already built by the caller over
// the branch-only and full goal subsets respectively, per spec.md §4.4),
// the shared archive and exception registry, and the full goal set.
type BuildOpts struct {
	Graph      *cfg.Graph
	Deps       *depmap.Map
	Archive    *archive.Archive
	Exceptions *archive.ExceptionRegistry
	Builder    *target.Builder

	// Goals is every non-exception target known at construction (branch
	// and non-branch). Exception targets are discovered only at runtime
	// (spec.md §4.6 step 5) and must not be included here.
	Goals []target.Target

	// MethodsEnabled / ExceptionsEnabled gate the optional passes in
	// CalculateFitness steps 5 and 6 (spec.md §4.6).
	MethodsEnabled    bool
	ExceptionsEnabled bool
}

// GoalManager holds the triad plus the buggy/non-buggy partition (spec.md
// §4.3-§4.5).
type GoalManager struct {
	graph      *cfg.Graph
	deps       *depmap.Map
	arc        *archive.Archive
	excReg     *archive.ExceptionRegistry
	builder    *target.Builder
	methodsOn  bool
	exceptions bool

	uncovered *orderedSet
	current   *orderedSet
	covered   *orderedSet

	nonBuggyGoals *orderedSet // hidden non-buggy branch + method targets
	nonBuggyRoots *orderedSet // hidden non-buggy root branches

	methods         *orderedSet // active (buggy) method targets
	nonBuggyMethods *orderedSet // hidden (non-buggy) method targets

	trueBranch  map[int32]target.Target
	falseBranch map[int32]target.Target
	shadowTrue  map[int32]target.Target
	shadowFalse map[int32]target.Target

	branchOrder       []int32 // active branch ids, insertion order
	shadowBranchOrder []int32

	branchlessMethod map[string]target.Target

	// numTests counts archived-test observations per branch slot, the
	// numTests(ff.key) input to path-balancing (spec.md §4.7).
	numTests map[branchSlot]int

	exceptionTargets map[string]target.Target

	triggerFired bool
}

// New constructs a GoalManager and performs the buggy/non-buggy partition
// (spec.md §4.4 MultiCriteriaManager build, §4.5 PredictiveCriteriaManager
// override).
func New(opts BuildOpts) *GoalManager {
	g := &GoalManager{
		graph:            opts.Graph,
		deps:             opts.Deps,
		arc:              opts.Archive,
		excReg:           opts.Exceptions,
		builder:          opts.Builder,
		methodsOn:        opts.MethodsEnabled,
		exceptions:       opts.ExceptionsEnabled,
		uncovered:        newOrderedSet(),
		current:          newOrderedSet(),
		covered:          newOrderedSet(),
		nonBuggyGoals:    newOrderedSet(),
		nonBuggyRoots:    newOrderedSet(),
		methods:          newOrderedSet(),
		nonBuggyMethods:  newOrderedSet(),
		trueBranch:       make(map[int32]target.Target),
		falseBranch:      make(map[int32]target.Target),
		shadowTrue:       make(map[int32]target.Target),
		shadowFalse:      make(map[int32]target.Target),
		branchlessMethod: make(map[string]target.Target),
		numTests:         make(map[branchSlot]int),
		exceptionTargets: make(map[string]target.Target),
	}

	for _, t := range opts.Goals {
		switch t.Kind() {
		case target.Branch, target.CBranch:
			g.partitionBranch(t)
		case target.BranchlessMethod:
			// Not itself buggy-partitioned (spec.md §4.3 Invariants only
			// states the one-of-two-layers rule for trueBranch/
			// falseBranch); always active, matching the "other kinds"
			// rule of §4.5.
			g.uncovered.Add(t)
			g.branchlessMethod[t.BranchlessMethodKey()] = t
		case target.Method, target.MethodNoException:
			if t.Buggy() {
				g.uncovered.Add(t)
				g.methods.Add(t)
			} else {
				g.nonBuggyGoals.Add(t)
				g.nonBuggyMethods.Add(t)
			}
		default:
			g.uncovered.Add(t)
		}
	}

	for _, root := range g.graph.Roots() {
		if root.Buggy() {
			g.current.Add(root)
		} else {
			g.nonBuggyRoots.Add(root)
		}
	}

	return g
}

func (g *GoalManager) partitionBranch(t target.Target) {
	slot := branchSlot{branchID: t.BranchID(), value: t.ExpressionValue()}
	if t.Buggy() {
		g.uncovered.Add(t)
		if t.ExpressionValue() {
			g.trueBranch[slot.branchID] = t
		} else {
			g.falseBranch[slot.branchID] = t
		}
		g.branchOrder = append(g.branchOrder, slot.branchID)
	} else {
		g.nonBuggyGoals.Add(t)
		if t.ExpressionValue() {
			g.shadowTrue[slot.branchID] = t
		} else {
			g.shadowFalse[slot.branchID] = t
		}
		g.shadowBranchOrder = append(g.shadowBranchOrder, slot.branchID)
	}
}

// IsAlreadyCovered reports whether t has already been covered (spec.md
// §4.3 is_already_covered).
func (g *GoalManager) IsAlreadyCovered(id target.ID) bool {
	return g.covered.Has(id)
}

// TriggerFired reports whether the non-buggy inclusion trigger has fired.
func (g *GoalManager) TriggerFired() bool {
	return g.triggerFired
}

// Uncovered, Current, Covered return read-only, insertion-ordered views for
// logging and the outer ranker (spec.md §9: "expose read-only views (set
// iterators) for logging").
func (g *GoalManager) Uncovered() []target.Target { return g.uncovered.Items() }
func (g *GoalManager) Current() []target.Target   { return g.current.Items() }
func (g *GoalManager) Covered() []target.Target   { return g.covered.Items() }

// Archive exposes the shared archive for the outer loop's termination
// polling and final suite assembly.
func (g *GoalManager) Archive() *archive.Archive { return g.arc }

// CoveredOfClass and UncoveredOfClass count targets by owning class name
// (spec.md §4.3).
func (g *GoalManager) CoveredOfClass(class string) int {
	n := 0
	for _, t := range g.covered.Items() {
		if t.ClassName() == class {
			n++
		}
	}
	return n
}

func (g *GoalManager) UncoveredOfClass(class string) int {
	n := 0
	for _, t := range g.uncovered.Items() {
		if t.ClassName() == class {
			n++
		}
	}
	return n
}

// updateCoveredGoals implements spec.md §4.3 update_covered_goals steps
// 1, 3, 4. Step 2 (registering coverage into the test's externally-visible
// covered-set) is not modeled: TestCase is an opaque external type (spec.md
// §3) with no mutation surface in this repository's execution contract.
func (g *GoalManager) updateCoveredGoals(t target.Target, test execution.TestCase) bool {
	if !g.arc.Update(t, test) {
		return false
	}
	if !g.covered.Has(t.ID()) {
		g.covered.Add(t)
		g.uncovered.Remove(t.ID())
	}
	if t.IsBranch() {
		g.numTests[branchSlot{branchID: t.BranchID(), value: t.ExpressionValue()}]++
	}
	return true
}

// FitnessResult is the per-objective distance vector produced by one
// CalculateFitness call, keyed by every target whose distance the sweep
// computed: the targets in current at the start of the sweep plus the
// structural children and dependents it reached (spec.md §4.6). After a
// timeout or execution error it holds +Inf for each target in current.
type FitnessResult struct {
	Distances map[target.ID]float64
	Result    execution.Result
}

// CalculateFitness runs test and updates covered/current/archive, possibly
// expanding current by descending the structural graph (spec.md §4.6,
// the heart of the core).
func (g *GoalManager) CalculateFitness(ctx context.Context, exec execution.Executor, test execution.TestCase, timeout time.Duration) FitnessResult {
	result := execution.Run(ctx, exec, test, timeout)
	distances := make(map[target.ID]float64)

	if result.Timeout || result.Error {
		for _, f := range g.current.Items() {
			distances[f.ID()] = math.Inf(1)
		}
		return FitnessResult{Distances: distances, Result: result}
	}

	visitedMethods := make(map[target.ID]struct{})
	visitedTargets := make(map[target.ID]struct{})
	queue := append([]target.Target(nil), g.current.Items()...)

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]

		if _, ok := visitedTargets[f.ID()]; ok {
			continue
		}
		visitedTargets[f.ID()] = struct{}{}

		d := f.Distance(test)
		distances[f.ID()] = d

		if d == 0 {
			if f.Kind() == target.Method || f.Kind() == target.MethodNoException {
				visitedMethods[f.ID()] = struct{}{}
			}
			g.updateCoveredGoals(f, test)
			if f.IsBranch() {
				queue = append(queue, g.graph.AllChildren(f.ID())...)
				queue = append(queue, g.deps.BranchDependents(f)...)
			}
		} else {
			// Covered targets are never removed from current (spec.md
			// §9: "load-bearing for the ranking function"). For a target
			// taken from the current snapshot this add is a no-op; for a
			// child or dependent reached through the BFS it is what makes
			// that target an active objective.
			g.current.Add(f)
		}
	}

	for branchID := range result.Trace.CoveredTrueBranches {
		if t, ok := g.trueBranch[branchID]; ok {
			g.updateCoveredGoals(t, test)
		}
	}
	for branchID := range result.Trace.CoveredFalseBranches {
		if t, ok := g.falseBranch[branchID]; ok {
			g.updateCoveredGoals(t, test)
		}
	}
	for key := range result.Trace.CoveredBranchlessMethods {
		if t, ok := g.branchlessMethod[key]; ok {
			g.updateCoveredGoals(t, test)
		}
		for _, dep := range g.deps.BranchlessDependents(key) {
			if _, ok := visitedTargets[dep.ID()]; ok {
				continue
			}
			visitedTargets[dep.ID()] = struct{}{}

			d := dep.Distance(test)
			distances[dep.ID()] = d
			if d == 0 {
				g.updateCoveredGoals(dep, test)
			} else {
				g.current.Add(dep)
			}
		}
	}

	if g.exceptions {
		g.calculateExceptionCoverage(result, test)
	}

	if g.methodsOn {
		for _, m := range g.methods.Items() {
			if _, ok := visitedMethods[m.ID()]; ok {
				continue
			}
			if m.Distance(test) == 0 {
				g.updateCoveredGoals(m, test)
			}
		}
	}

	return FitnessResult{Distances: distances, Result: result}
}

func (g *GoalManager) calculateExceptionCoverage(result execution.Result, test execution.TestCase) {
	for _, exc := range result.Trace.Exceptions {
		key := exc.Key()
		et, known := g.exceptionTargets[key]
		if !known {
			et = g.builder.NewException(zeroDistance{}, key)
			g.exceptionTargets[key] = et
			g.excReg.Observe(exc)
		}
		g.updateCoveredGoals(et, test)
	}
}

// zeroDistance is the fitness function for exception targets: they are
// minted only after already being observed as covered, so their distance
// is always zero (spec.md §4.6 step 5).
type zeroDistance struct{}

func (zeroDistance) Distance(execution.TestCase) float64 { return 0 }

// AdjustGoals applies the path-balancing policy once per generation,
// between breeding and ranking (spec.md §4.7).
func (g *GoalManager) AdjustGoals() {
	seen := make(map[int32]struct{})
	for _, branchID := range g.branchOrder {
		if _, done := seen[branchID]; done {
			continue
		}
		seen[branchID] = struct{}{}

		trueT, hasTrue := g.trueBranch[branchID]
		falseT, hasFalse := g.falseBranch[branchID]
		if !hasTrue || !hasFalse {
			continue
		}
		if !g.current.Has(trueT.ID()) || !g.current.Has(falseT.ID()) {
			continue
		}

		pathsTrue := g.graph.IndependentPaths(trueT.ID())
		pathsFalse := g.graph.IndependentPaths(falseT.ID())
		ratioTrue := float64(g.numTests[branchSlot{branchID: branchID, value: true}]) / float64(pathsTrue)
		ratioFalse := float64(g.numTests[branchSlot{branchID: branchID, value: false}]) / float64(pathsFalse)

		switch {
		case ratioTrue > ratioFalse:
			g.current.Remove(trueT.ID())
			g.current.Add(falseT)
		case ratioFalse > ratioTrue:
			g.current.Remove(falseT.ID())
			g.current.Add(trueT)
		}
	}
}

// Fire runs the four staged activators in order and latches triggerFired
// (spec.md §4.5, §4.8 "On fire: call the four activators... in order").
// Calling Fire more than once is a no-op beyond the first call; each
// activator is individually idempotent but the latch makes repeat calls
// cheap regardless.
func (g *GoalManager) Fire() {
	if g.triggerFired {
		return
	}
	g.activateNonBuggyCurrentGoals()
	g.activateNonBuggyUncovered()
	g.activateNonBuggyMethods()
	g.activateNonBuggyBranchMaps()
	g.triggerFired = true
}

func (g *GoalManager) activateNonBuggyCurrentGoals() {
	for _, root := range g.nonBuggyRoots.Items() {
		g.current.Add(root)
	}
}

func (g *GoalManager) activateNonBuggyUncovered() {
	g.uncovered.Union(g.nonBuggyGoals)
}

func (g *GoalManager) activateNonBuggyMethods() {
	g.methods.Union(g.nonBuggyMethods)
}

func (g *GoalManager) activateNonBuggyBranchMaps() {
	for _, branchID := range g.shadowBranchOrder {
		if t, ok := g.shadowTrue[branchID]; ok {
			g.trueBranch[branchID] = t
		}
		if t, ok := g.shadowFalse[branchID]; ok {
			g.falseBranch[branchID] = t
		}
		g.branchOrder = append(g.branchOrder, branchID)
	}
}
