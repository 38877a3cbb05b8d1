package goalmanager_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaperera/premosa-go/internal/archive"
	"github.com/anjanaperera/premosa-go/internal/cfg"
	"github.com/anjanaperera/premosa-go/internal/depmap"
	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/goalmanager"
	"github.com/anjanaperera/premosa-go/internal/target"
)

type fakeTest struct {
	id   string
	size uint32
}

func (f fakeTest) ID() string   { return f.id }
func (f fakeTest) Size() uint32 { return f.size }

// distanceFn lets tests script a target's Distance per call.
type distanceFn func(execution.TestCase) float64

func (f distanceFn) Distance(test execution.TestCase) float64 { return f(test) }

func covered() target.FitnessFunction  { return distanceFn(func(execution.TestCase) float64 { return 0 }) }
func uncoveredFn() target.FitnessFunction {
	return distanceFn(func(execution.TestCase) float64 { return 1 })
}

type flatCFG struct{}

func (flatCFG) BlockOf(target.ID) cfg.BlockID                          { return 0 }
func (flatCFG) ParentBlocks(cfg.BlockID) []cfg.BlockID                 { return nil }
func (flatCFG) Branch(cfg.BlockID) (target.Target, bool)               { return target.Target{}, false }
func (flatCFG) ExpressionValue(_, _ cfg.BlockID) bool                  { return false }
func (flatCFG) IsRootBranchDependent(target.ID) bool                   { return true }

type fakeExecutor struct {
	result execution.Result
	err    error
}

func (e fakeExecutor) Execute(ctx context.Context, test execution.TestCase) (execution.Result, error) {
	return e.result, e.err
}

func buildEmptyBranchManager(t *testing.T, goals []target.Target, methodsOn, exceptionsOn bool) *goalmanager.GoalManager {
	t.Helper()
	g := cfg.New(flatCFG{}, nil)
	d := depmap.New()
	return goalmanager.New(goalmanager.BuildOpts{
		Graph:             g,
		Deps:              d,
		Archive:           archive.New(1 << 20),
		Exceptions:        archive.NewExceptionRegistry(),
		Builder:           target.NewBuilder(),
		Goals:             goals,
		MethodsEnabled:    methodsOn,
		ExceptionsEnabled: exceptionsOn,
	})
}

// Scenario 1: "Trigger on no buggy goals" (spec.md §8).
func TestTriggerOnNoBuggyGoals(t *testing.T) {
	b := target.NewBuilder()
	var goals []target.Target
	fc := flatCFG{}
	var branchGoals []target.Target
	for i := int32(0); i < 5; i++ {
		tb := b.NewBranch(uncoveredFn(), false, target.BranchOpts{BranchID: i, ExpressionValue: true, ClassName: "pkg.Foo", MethodName: "m"})
		fbr := b.NewBranch(uncoveredFn(), false, target.BranchOpts{BranchID: i, ExpressionValue: false, ClassName: "pkg.Foo", MethodName: "m"})
		branchGoals = append(branchGoals, tb, fbr)
	}
	goals = append(goals, branchGoals...)

	graph := cfg.New(fc, branchGoals)
	d := depmap.New()
	gm := goalmanager.New(goalmanager.BuildOpts{
		Graph:   graph,
		Deps:    d,
		Archive: archive.New(1 << 20),
		Exceptions: archive.NewExceptionRegistry(),
		Builder: b,
		Goals:   goals,
	})

	require.Empty(t, gm.Current())
	gm.Fire()
	assert.True(t, gm.TriggerFired())
	assert.Len(t, gm.Current(), 10)
}

// Scenario 4: "Archive budget" (spec.md §8).
func TestArchiveBudgetLatches(t *testing.T) {
	b := target.NewBuilder()
	fc := flatCFG{}
	branch := b.NewBranch(covered(), true, target.BranchOpts{BranchID: 1, ExpressionValue: true, ClassName: "pkg.Foo", MethodName: "m"})
	graph := cfg.New(fc, []target.Target{branch})
	d := depmap.New()
	arc := archive.New(50)

	gm := goalmanager.New(goalmanager.BuildOpts{
		Graph:   graph,
		Deps:    d,
		Archive: arc,
		Exceptions: archive.NewExceptionRegistry(),
		Builder: b,
		Goals:   []target.Target{branch},
	})

	exec := fakeExecutor{result: execution.Result{Trace: execution.NewTrace()}}
	gm.CalculateFitness(context.Background(), exec, fakeTest{id: "t1", size: 10}, time.Second)
	gm.CalculateFitness(context.Background(), exec, fakeTest{id: "t2", size: 20}, time.Second)
	assert.False(t, arc.IsFinished())
	gm.CalculateFitness(context.Background(), exec, fakeTest{id: "t3", size: 25}, time.Second)
	assert.True(t, arc.IsFinished())
}

func TestCalculateFitnessCoversAndExpandsChildren(t *testing.T) {
	b := target.NewBuilder()
	parent := b.NewBranch(covered(), true, target.BranchOpts{BranchID: 1, ExpressionValue: true, ClassName: "pkg.Foo", MethodName: "m"})

	fc := &parentChildCFG{
		blocks: map[target.ID]cfg.BlockID{},
	}
	child := b.NewBranch(uncoveredFn(), true, target.BranchOpts{BranchID: 2, ExpressionValue: true, ClassName: "pkg.Foo", MethodName: "m"})
	fc.blocks[parent.ID()] = 1
	fc.blocks[child.ID()] = 2
	fc.parents = map[cfg.BlockID][]cfg.BlockID{2: {1}}
	fc.branchOf = map[cfg.BlockID]target.Target{1: parent}
	fc.expr = map[[2]cfg.BlockID]bool{{1, 2}: true}
	fc.rootDep = map[target.ID]bool{parent.ID(): true}

	goals := []target.Target{parent, child}
	graph := cfg.New(fc, goals)
	d := depmap.New()

	gm := goalmanager.New(goalmanager.BuildOpts{
		Graph:   graph,
		Deps:    d,
		Archive: archive.New(1 << 20),
		Exceptions: archive.NewExceptionRegistry(),
		Builder: b,
		Goals:   goals,
	})

	require.Len(t, gm.Current(), 1)
	exec := fakeExecutor{result: execution.Result{Trace: execution.NewTrace()}}
	res := gm.CalculateFitness(context.Background(), exec, fakeTest{id: "t1", size: 3}, time.Second)

	assert.Equal(t, 0.0, res.Distances[parent.ID()])
	assert.True(t, gm.IsAlreadyCovered(parent.ID()))

	found := false
	for _, c := range gm.Current() {
		if c.ID() == child.ID() {
			found = true
		}
	}
	assert.True(t, found, "child branch should become active after parent is covered")
}

type parentChildCFG struct {
	blocks   map[target.ID]cfg.BlockID
	parents  map[cfg.BlockID][]cfg.BlockID
	branchOf map[cfg.BlockID]target.Target
	expr     map[[2]cfg.BlockID]bool
	rootDep  map[target.ID]bool
}

func (f *parentChildCFG) BlockOf(t target.ID) cfg.BlockID { return f.blocks[t] }
func (f *parentChildCFG) ParentBlocks(b cfg.BlockID) []cfg.BlockID {
	return f.parents[b]
}
func (f *parentChildCFG) Branch(b cfg.BlockID) (target.Target, bool) {
	t, ok := f.branchOf[b]
	return t, ok
}
func (f *parentChildCFG) ExpressionValue(b, c cfg.BlockID) bool {
	return f.expr[[2]cfg.BlockID{b, c}]
}
func (f *parentChildCFG) IsRootBranchDependent(t target.ID) bool {
	return f.rootDep[t]
}

// Scenario 3: "Path balancing" (spec.md §8): branch id 17 has equal
// independent-path counts on both sides; 4 archived tests land on the true
// side and 0 on the false side, so adjust_goals must swap the true side
// out of current and bring the false side in.
func TestAdjustGoalsSwapsUndertestedSibling(t *testing.T) {
	b := target.NewBuilder()
	fc := flatCFG{}
	trueB := b.NewBranch(uncoveredFn(), true, target.BranchOpts{BranchID: 17, ExpressionValue: true, ClassName: "pkg.Foo", MethodName: "m"})
	falseB := b.NewBranch(uncoveredFn(), true, target.BranchOpts{BranchID: 17, ExpressionValue: false, ClassName: "pkg.Foo", MethodName: "m"})
	goals := []target.Target{trueB, falseB}
	graph := cfg.New(fc, goals)
	d := depmap.New()
	arc := archive.New(1 << 20)

	gm := goalmanager.New(goalmanager.BuildOpts{
		Graph: graph, Deps: d, Archive: arc, Exceptions: archive.NewExceptionRegistry(),
		Builder: b, Goals: goals,
	})

	// Both sides are roots, so both start in current.
	require.Len(t, gm.Current(), 2)

	// Drive 4 distinct tests through the archive fast path (spec.md §4.6
	// step 4) each reporting branch 17's true side covered, so numTests
	// accrues on the true side only.
	ids := []string{"t0", "t1", "t2", "t3"}
	for _, id := range ids {
		trace := execution.NewTrace()
		trace.CoveredTrueBranches[17] = struct{}{}
		res := execution.Result{Trace: trace}
		exec := fakeExecutor{result: res}
		gm.CalculateFitness(context.Background(), exec, fakeTest{id: id, size: 2}, time.Second)
	}

	gm.AdjustGoals()

	var stillCurrent []target.ID
	for _, c := range gm.Current() {
		stillCurrent = append(stillCurrent, c.ID())
	}
	assert.NotContains(t, stillCurrent, trueB.ID())
	assert.Contains(t, stillCurrent, falseB.ID())
}

// A Line target with no controlling branch is attached to the
// branchless-method slot (spec.md §4.2). When the archive fast path
// observes that method covered, the Line target must be promoted out of
// uncovered too, not just the method's own BranchlessMethod target
// (spec.md §4.6 step 4: the branchless fast path is symmetric with the
// branch fast path's dependents enqueue).
func TestCalculateFitnessCoversBranchlessDependents(t *testing.T) {
	b := target.NewBuilder()
	methodKey := "pkg.Foo.getBar"
	method := b.NewBranchlessMethod(uncoveredFn(), true, "pkg.Foo", "getBar")
	line := b.NewSimple(target.Line, covered(), true)

	loc := branchlessLocator{method: methodKey}
	enabled := map[target.Kind]bool{target.Line: true}
	d := depmap.Build(loc, enabled, []target.Target{line})

	fc := flatCFG{}
	graph := cfg.New(fc, nil)

	gm := goalmanager.New(goalmanager.BuildOpts{
		Graph:      graph,
		Deps:       d,
		Archive:    archive.New(1 << 20),
		Exceptions: archive.NewExceptionRegistry(),
		Builder:    b,
		Goals:      []target.Target{method, line},
	})

	require.Contains(t, uncoveredIDs(gm), line.ID())

	trace := execution.NewTrace()
	trace.CoveredBranchlessMethods[methodKey] = struct{}{}
	exec := fakeExecutor{result: execution.Result{Trace: trace}}
	gm.CalculateFitness(context.Background(), exec, fakeTest{id: "t1", size: 1}, time.Second)

	assert.True(t, gm.IsAlreadyCovered(method.ID()))
	assert.True(t, gm.IsAlreadyCovered(line.ID()), "branchless-slot dependent should be covered alongside its method")
	assert.NotContains(t, uncoveredIDs(gm), line.ID())
}

// branchlessLocator attaches every target it is asked about to a single
// branchless-method slot, for exercising depmap.Build's default case.
type branchlessLocator struct{ method string }

func (l branchlessLocator) ControllingBranch(target.ID) (target.Target, bool, bool) {
	return target.Target{}, false, false
}

func (l branchlessLocator) EnclosingMethod(target.ID) string { return l.method }

func uncoveredIDs(gm *goalmanager.GoalManager) []target.ID {
	var out []target.ID
	for _, u := range gm.Uncovered() {
		out = append(out, u.ID())
	}
	return out
}
