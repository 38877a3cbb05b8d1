// Package cfg builds the structural (control-dependence) goal dependency
// graph over branch targets (spec.md §4.1). The control-flow/bytecode
// extractor that actually yields block and branch structure is an external
// collaborator (spec.md §1 Non-goals); this package only consumes it through
// the ControlFlowGraph port.
package cfg

import "github.com/anjanaperera/premosa-go/internal/target"

// BlockID identifies a basic block in the external control-flow graph.
// Blocks are opaque to this package beyond their identity and branch
// content.
type BlockID int64

// ControlFlowGraph is the external collaborator this package consumes
// (spec.md §1: "The control-flow graph / bytecode extractor that yields
// branch and block structure"). Implementations are supplied by the
// embedding driver.
type ControlFlowGraph interface {
	// BlockOf returns the block containing the instruction that target id
	// t covers.
	BlockOf(t target.ID) BlockID
	// ParentBlocks returns the immediate predecessor blocks of b on any
	// incoming control-flow path, closest first.
	ParentBlocks(b BlockID) []BlockID
	// Branch returns the branch target whose controlling expression is
	// decided in block b, and whether b contains a branch at all.
	Branch(b BlockID) (t target.Target, hasBranch bool)
	// ExpressionValue reports which side of b's branch the edge from b
	// into the block containing child takes.
	ExpressionValue(b BlockID, child BlockID) bool
	// IsRootBranchDependent reports whether t's instruction is reachable
	// from its method's entry block without crossing any predicate
	// (spec.md §4.1: "marks any branch... reachable from method entry
	// without crossing a predicate").
	IsRootBranchDependent(t target.ID) bool
}

// ParentEdge is one control-dependence edge discovered while walking
// upward from a branch target: parent controls child, taken at the given
// expression value.
type ParentEdge struct {
	Parent          target.ID
	ExpressionValue bool
}

// Graph is the structural control-dependence graph over branch targets
// (spec.md §4.1 StructuralGraph). Vertices are branch target ids; an edge
// a->b means a is the immediate controlling predicate of b, matched by
// expression value.
type Graph struct {
	vertices map[target.ID]target.Target
	// children maps a (parent, expressionValue) pair to its structural
	// children. Keyed by a synthesized branch identity since a branch
	// target controls two independent child sets, one per side.
	children map[branchSide][]target.ID
	parents  map[target.ID][]ParentEdge
	roots    []target.ID

	descendantsCache map[target.ID][]target.ID
}

type branchSide struct {
	branch target.ID
	value  bool
}

// visitKey dedups the upward walk by (block, hasExpressionValue, value),
// mirroring the original's visited set keyed by block identity and branch
// expression value (spec.md §4.1 algorithmic notes).
type visitKey struct {
	block    BlockID
	hasValue bool
	value    bool
}

// New builds a Graph over goals, a set of branch targets (instrumented
// branches must already be filtered out by the caller per spec.md §4.1:
// "Instrumented (synthetic) branches are excluded from the goal set before
// graph build").
func New(cfgraph ControlFlowGraph, goals []target.Target) *Graph {
	g := &Graph{
		vertices:         make(map[target.ID]target.Target, len(goals)),
		children:         make(map[branchSide][]target.ID),
		parents:          make(map[target.ID][]ParentEdge),
		descendantsCache: make(map[target.ID][]target.ID),
	}

	for _, t := range goals {
		if !t.IsBranch() {
			continue
		}
		g.vertices[t.ID()] = t
	}

	// Iterate in the order goals were supplied, not map order, so edge
	// and root discovery stays deterministic across runs (spec.md §5
	// "implementations should use insertion-ordered sets/maps").
	for _, t := range goals {
		if !t.IsBranch() {
			continue
		}
		edges := g.lookForParentWithCd(cfgraph, t)
		isRoot := len(edges) == 0
		if cfgraph.IsRootBranchDependent(t.ID()) {
			isRoot = true
		}
		if isRoot {
			g.roots = append(g.roots, t.ID())
		}
		for _, e := range edges {
			g.parents[t.ID()] = append(g.parents[t.ID()], e)
			side := branchSide{branch: e.Parent, value: e.ExpressionValue}
			g.children[side] = append(g.children[side], t.ID())
		}
	}

	return g
}

// lookForParentWithCd walks upward from t's block looking for the nearest
// controlling branch, a direct port of BranchFitnessGraph.lookForParentWithCd:
// DFS with a visited set keyed by (block, expression-value), skipping blocks
// that contain no branch and stopping at the first one that does.
func (g *Graph) lookForParentWithCd(cfgraph ControlFlowGraph, t target.Target) []ParentEdge {
	start := cfgraph.BlockOf(t.ID())
	visited := make(map[visitKey]struct{})
	var edges []ParentEdge
	g.walkUp(cfgraph, start, visited, &edges)
	return edges
}

func (g *Graph) walkUp(cfgraph ControlFlowGraph, block BlockID, visited map[visitKey]struct{}, edges *[]ParentEdge) {
	for _, parentBlock := range cfgraph.ParentBlocks(block) {
		branchTarget, hasBranch := cfgraph.Branch(parentBlock)
		value := false
		if hasBranch {
			value = cfgraph.ExpressionValue(parentBlock, block)
		}
		key := visitKey{block: parentBlock, hasValue: hasBranch, value: value}
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		if !hasBranch {
			g.walkUp(cfgraph, parentBlock, visited, edges)
			continue
		}
		*edges = append(*edges, ParentEdge{Parent: branchTarget.ID(), ExpressionValue: value})
	}
}

// Roots returns the root branch targets (spec.md §4.1 roots()).
func (g *Graph) Roots() []target.Target {
	out := make([]target.Target, 0, len(g.roots))
	for _, id := range g.roots {
		out = append(out, g.vertices[id])
	}
	return out
}

// Children returns the immediate structural children of t on side value.
func (g *Graph) Children(t target.ID, value bool) []target.Target {
	ids := g.children[branchSide{branch: t, value: value}]
	out := make([]target.Target, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.vertices[id])
	}
	return out
}

// AllChildren returns the immediate structural children of t on either side,
// used by calculate_fitness which enqueues "every structural child of f"
// without regard to which side gated them (spec.md §4.6 step 3).
func (g *Graph) AllChildren(t target.ID) []target.Target {
	var out []target.Target
	out = append(out, g.Children(t, true)...)
	out = append(out, g.Children(t, false)...)
	return out
}

// Parents returns the immediate controlling edges into t.
func (g *Graph) Parents(t target.ID) []ParentEdge {
	return g.parents[t]
}

// AllDescendants returns the transitive closure of structural children of
// t, memoized across calls (spec.md §4.1 all_descendants).
func (g *Graph) AllDescendants(t target.ID) []target.Target {
	if cached, ok := g.descendantsCache[t]; ok {
		out := make([]target.Target, 0, len(cached))
		for _, id := range cached {
			out = append(out, g.vertices[id])
		}
		return out
	}

	seen := make(map[target.ID]struct{})
	var order []target.ID
	var visit func(target.ID)
	visit = func(cur target.ID) {
		for _, child := range g.AllChildren(cur) {
			if _, ok := seen[child.ID()]; ok {
				continue
			}
			seen[child.ID()] = struct{}{}
			order = append(order, child.ID())
			visit(child.ID())
		}
	}
	visit(t)

	g.descendantsCache[t] = order
	out := make([]target.Target, 0, len(order))
	for _, id := range order {
		out = append(out, g.vertices[id])
	}
	return out
}

// IndependentPaths returns the count of distinct structural root-to-branch
// paths reaching t, a documented proxy for the original's CFG-based
// independent-path count (SPEC_FULL.md supplemented feature #5; see
// DESIGN.md). The count is recomputed recursively on every call; it is not
// cached.
func (g *Graph) IndependentPaths(t target.ID) int {
	if len(g.Parents(t)) == 0 {
		return 1
	}
	total := 0
	for _, e := range g.Parents(t) {
		total += g.IndependentPaths(e.Parent)
	}
	if total == 0 {
		return 1
	}
	return total
}

// Vertex returns the branch target for id, if present.
func (g *Graph) Vertex(id target.ID) (target.Target, bool) {
	t, ok := g.vertices[id]
	return t, ok
}
