// Package depmap attaches non-branch targets to the innermost controlling
// branch they depend on (spec.md §4.2 Dependency augmentation).
package depmap

import (
	"github.com/anjanaperera/premosa-go/internal/cfg"
	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/target"
)

// Key identifies the slot a non-branch target is attached to: either a
// controlling (branch, expressionValue) pair, or a branchless-method slot
// for the enclosing method when the instruction has no controlling branch.
type Key struct {
	Branch          target.ID
	ExpressionValue bool
	Branchless      string // "class.method", set only when Branch == 0
}

func branchKey(b target.Target) Key {
	return Key{Branch: b.ID(), ExpressionValue: b.ExpressionValue()}
}

func branchlessKey(classMethod string) Key {
	return Key{Branchless: classMethod}
}

// Locator resolves, for an arbitrary non-branch instruction, the
// controlling branch that gates it (if any). This stands in for the
// control-flow extractor's per-instruction controlling-branch lookup; the
// extractor itself is out of scope (spec.md §1).
type Locator interface {
	// ControllingBranch returns the innermost controlling branch and
	// expression value for the instruction covered by t, or ok=false if
	// the instruction has no controlling branch (attach to the
	// branchless-method slot instead).
	ControllingBranch(t target.ID) (branch target.Target, value bool, ok bool)
	// EnclosingMethod returns the "class.method" key for t's enclosing
	// method, used for the branchless-method slot and for Method /
	// MethodNoException targets, which attach at their entry block
	// (spec.md §4.2: "each method target is attached at its entry
	// block").
	EnclosingMethod(t target.ID) string
}

// Map is the dependency map: branch (or branchless-method slot) -> set of
// non-branch dependents (spec.md §3 Dependency map).
type Map struct {
	deps map[Key][]target.Target
	// order preserves first-seen key order for deterministic iteration
	// (spec.md §5: "implementations should use insertion-ordered
	// sets/maps").
	order []Key
	seen  map[Key]struct{}
}

// New returns an empty dependency map.
func New() *Map {
	return &Map{
		deps: make(map[Key][]target.Target),
		seen: make(map[Key]struct{}),
	}
}

func (m *Map) attach(key Key, t target.Target) {
	if _, ok := m.seen[key]; !ok {
		m.seen[key] = struct{}{}
		m.order = append(m.order, key)
	}
	m.deps[key] = append(m.deps[key], t)
}

// Of returns the dependents attached to key, in insertion order.
func (m *Map) Of(key Key) []target.Target {
	return m.deps[key]
}

// BranchDependents returns the dependents attached to a specific branch
// side.
func (m *Map) BranchDependents(branch target.Target) []target.Target {
	return m.Of(branchKey(branch))
}

// BranchlessDependents returns the dependents attached to the branchless
// slot for classMethod ("class.method").
func (m *Map) BranchlessDependents(classMethod string) []target.Target {
	return m.Of(branchlessKey(classMethod))
}

// Keys returns all populated keys in insertion order.
func (m *Map) Keys() []Key {
	out := make([]Key, len(m.order))
	copy(out, m.order)
	return out
}

// Build attaches every non-branch goal in goals to its innermost
// controlling branch (or the branchless slot for its enclosing method),
// per the enabled criteria. goals must not include branch targets; the
// caller builds the StructuralGraph over those separately (spec.md §4.4:
// "Builds StructuralGraph over only the BranchCoverageTestFitness subset").
//
// Exception targets are deliberately excluded: spec.md §4.2 "Exception
// coverage: not attached to the graph; handled post-execution (§4.6)".
func Build(loc Locator, enabled map[target.Kind]bool, goals []target.Target) *Map {
	m := New()
	for _, t := range goals {
		if t.IsBranch() || t.Kind() == target.Exception {
			continue
		}
		if !enabled[t.Kind()] {
			continue
		}

		switch t.Kind() {
		case target.Method, target.MethodNoException:
			// Attached at entry block, i.e. the branchless-method slot
			// for the method itself (spec.md §4.2).
			m.attach(branchlessKey(loc.EnclosingMethod(t.ID())), t)
		default:
			if branch, value, ok := loc.ControllingBranch(t.ID()); ok {
				m.attach(Key{Branch: branch.ID(), ExpressionValue: value}, t)
			} else {
				m.attach(branchlessKey(loc.EnclosingMethod(t.ID())), t)
			}
		}
	}
	return m
}

// CallContextLocator extends Locator with the call-graph information needed
// to expand a branch target into one copy per calling context (spec.md
// §4.2 CBranch).
type CallContextLocator interface {
	// CallContexts returns the distinct calling contexts reaching
	// methodKey ("class.method"), used to mint one CBranch copy per
	// context.
	CallContexts(methodKey string) []string
}

// ExpandCBranch expands every branch target in branches into one CBranch
// copy per calling context of its enclosing method, minted via b, the
// Builder that minted the originals. A branch whose method has no calling
// context yields one copy for the context "default". The copies are only
// returned: they are not attached to a controlling branch or added to any
// Map.
func ExpandCBranch(b *target.Builder, cc CallContextLocator, branches []target.Target) []target.Target {
	var out []target.Target
	for _, br := range branches {
		methodKey := br.ClassName() + "." + br.MethodName()
		contexts := cc.CallContexts(methodKey)
		if len(contexts) == 0 {
			out = append(out, b.NewCBranch(fitnessOf(br), br.Buggy(), optsOf(br), "default"))
			continue
		}
		for _, ctx := range contexts {
			out = append(out, b.NewCBranch(fitnessOf(br), br.Buggy(), optsOf(br), ctx))
		}
	}
	return out
}

// fitnessOf and optsOf recover the constructor inputs from an already-built
// branch target, since Builder.NewCBranch takes a fresh FitnessFunction and
// BranchOpts rather than cloning a Target directly.
func fitnessOf(t target.Target) target.FitnessFunction {
	return distanceFunc(t.Distance)
}

type distanceFunc func(test execution.TestCase) float64

func (f distanceFunc) Distance(test execution.TestCase) float64 {
	return f(test)
}

func optsOf(t target.Target) target.BranchOpts {
	return target.BranchOpts{
		BranchID:            t.BranchID(),
		ExpressionValue:     t.ExpressionValue(),
		ClassName:           t.ClassName(),
		MethodName:          t.MethodName(),
		Instrumented:        t.Instrumented(),
		RootBranchDependent: t.RootBranchDependent(),
	}
}

// Graph is re-exported for callers that build both the structural graph
// and the dependency map from the same branch-only goal subset, matching
// spec.md §4.4's build order.
type Graph = cfg.Graph
