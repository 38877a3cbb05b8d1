package main

import (
	"context"
	"fmt"

	"github.com/anjanaperera/premosa-go/internal/cfg"
	"github.com/anjanaperera/premosa-go/internal/depmap"
	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/search"
	"github.com/anjanaperera/premosa-go/internal/target"
)

// This file wires a minimal, self-contained program under test so that
// `premosa run` does something observable out of the box. The control-flow
// graph, fitness functions, test executor and breeding strategy are all
// external collaborators (spec.md §1); a real embedding application
// supplies its own. This demo stands in for all four over a single
// two-branch method, the same way the teacher's main.go hardcodes a single
// FuzzerConfig rather than accepting one from the caller.

type demoTest struct {
	id     string
	choice bool
}

func (t demoTest) ID() string   { return t.id }
func (t demoTest) Size() uint32 { return 2 }

type branchFitness struct {
	wantTrue bool
}

func (f branchFitness) Distance(test execution.TestCase) float64 {
	dt, ok := test.(demoTest)
	if !ok || dt.choice != f.wantTrue {
		return 1
	}
	return 0
}

type methodFitness struct{}

func (methodFitness) Distance(execution.TestCase) float64 { return 0 }

// demoCFG describes a single method "demo.Calculator.classify" with one
// root branch (id=1) and no deeper structure.
type demoCFG struct {
	branchBlock cfg.BlockID
	branchID    target.ID
}

func (c demoCFG) BlockOf(t target.ID) cfg.BlockID { return c.branchBlock }
func (c demoCFG) ParentBlocks(cfg.BlockID) []cfg.BlockID {
	return nil // the branch is the method's only predicate: it is a root
}
func (c demoCFG) Branch(cfg.BlockID) (target.Target, bool) { return target.Target{}, false }
func (c demoCFG) ExpressionValue(_, _ cfg.BlockID) bool    { return false }
func (c demoCFG) IsRootBranchDependent(t target.ID) bool   { return t == c.branchID }

type demoLocator struct {
	branch      target.Target
	lineTrueID  target.ID
	lineFalseID target.ID
	methodKey   string
}

func (l demoLocator) ControllingBranch(t target.ID) (target.Target, bool, bool) {
	switch t {
	case l.lineTrueID:
		return l.branch, true, true
	case l.lineFalseID:
		return l.branch, false, true
	default:
		return target.Target{}, false, false
	}
}

func (l demoLocator) EnclosingMethod(target.ID) string { return l.methodKey }

// buildDemoGoals constructs the demo program's goal set: one buggy branch
// (the classify decision) with a Line dependent on each side, plus a buggy
// Method target at the method's entry (spec.md §3, §4.2).
func buildDemoGoals(b *target.Builder) ([]target.Target, *cfg.Graph, *depmap.Map) {
	branchTrue := b.NewBranch(branchFitness{wantTrue: true}, true, target.BranchOpts{
		BranchID: 1, ExpressionValue: true, ClassName: "demo.Calculator", MethodName: "classify", RootBranchDependent: true,
	})
	branchFalse := b.NewBranch(branchFitness{wantTrue: false}, true, target.BranchOpts{
		BranchID: 1, ExpressionValue: false, ClassName: "demo.Calculator", MethodName: "classify", RootBranchDependent: true,
	})

	lineTrue := b.NewSimple(target.Line, branchFitness{wantTrue: true}, true)
	lineFalse := b.NewSimple(target.Line, branchFitness{wantTrue: false}, true)
	method := b.NewMethod(target.Method, methodFitness{}, true, "demo.Calculator", "classify")

	goals := []target.Target{branchTrue, branchFalse, lineTrue, lineFalse, method}

	fc := demoCFG{branchBlock: 1, branchID: branchTrue.ID()}
	graph := cfg.New(fc, []target.Target{branchTrue, branchFalse})

	loc := demoLocator{
		branch:      branchTrue,
		lineTrueID:  lineTrue.ID(),
		lineFalseID: lineFalse.ID(),
		methodKey:   "demo.Calculator.classify",
	}
	enabled := map[target.Kind]bool{target.Line: true, target.Method: true}
	deps := depmap.Build(loc, enabled, []target.Target{lineTrue, lineFalse, method})

	return goals, graph, deps
}

// demoBreeder alternates the classify decision deterministically across a
// fixed-size population, guaranteeing full branch coverage within the
// first generation (spec.md §5: "implementations should use
// insertion-ordered sets/maps" — the same determinism concern extends to
// this demo's population strategy).
type demoBreeder struct {
	next int
}

func (d *demoBreeder) InitialPopulation(size int) []execution.TestCase {
	return d.generate(size)
}

func (d *demoBreeder) generate(size int) []execution.TestCase {
	out := make([]execution.TestCase, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, demoTest{id: fmt.Sprintf("seed-%d", d.next), choice: i%2 == 0})
		d.next++
	}
	return out
}

func (d *demoBreeder) Breed(population []execution.TestCase) []execution.TestCase {
	return d.generate(len(population))
}

type demoExecutor struct{}

func (demoExecutor) Execute(ctx context.Context, test execution.TestCase) (execution.Result, error) {
	dt := test.(demoTest)
	trace := execution.NewTrace()
	if dt.choice {
		trace.CoveredTrueBranches[1] = struct{}{}
	} else {
		trace.CoveredFalseBranches[1] = struct{}{}
	}
	return execution.Result{Trace: trace}, nil
}

var _ search.Breeder = (*demoBreeder)(nil)
var _ execution.Executor = demoExecutor{}
