package depmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaperera/premosa-go/internal/depmap"
	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/target"
)

type noopFitness struct{}

func (noopFitness) Distance(execution.TestCase) float64 { return 0 }

type fakeLocator struct {
	controlling map[target.ID]target.Target
	value       map[target.ID]bool
	method      map[target.ID]string
}

func (f fakeLocator) ControllingBranch(t target.ID) (target.Target, bool, bool) {
	b, ok := f.controlling[t]
	return b, f.value[t], ok
}

func (f fakeLocator) EnclosingMethod(t target.ID) string {
	return f.method[t]
}

func TestBuildAttachesToControllingBranch(t *testing.T) {
	b := target.NewBuilder()
	branch := b.NewBranch(noopFitness{}, true, target.BranchOpts{BranchID: 1, ExpressionValue: true, ClassName: "pkg.Foo", MethodName: "m"})
	line := b.NewSimple(target.Line, noopFitness{}, false)

	loc := fakeLocator{
		controlling: map[target.ID]target.Target{line.ID(): branch},
		value:       map[target.ID]bool{line.ID(): true},
		method:      map[target.ID]string{},
	}

	m := depmap.Build(loc, map[target.Kind]bool{target.Line: true}, []target.Target{line})
	dependents := m.BranchDependents(branch)
	require.Len(t, dependents, 1)
	assert.Equal(t, line.ID(), dependents[0].ID())
}

func TestBuildFallsBackToBranchlessSlot(t *testing.T) {
	b := target.NewBuilder()
	stmt := b.NewSimple(target.Statement, noopFitness{}, false)

	loc := fakeLocator{
		controlling: map[target.ID]target.Target{},
		value:       map[target.ID]bool{},
		method:      map[target.ID]string{stmt.ID(): "pkg.Foo.bar"},
	}

	m := depmap.Build(loc, map[target.Kind]bool{target.Statement: true}, []target.Target{stmt})
	dependents := m.BranchlessDependents("pkg.Foo.bar")
	require.Len(t, dependents, 1)
	assert.Equal(t, stmt.ID(), dependents[0].ID())
}

func TestBuildSkipsDisabledCriteria(t *testing.T) {
	b := target.NewBuilder()
	stmt := b.NewSimple(target.Statement, noopFitness{}, false)
	loc := fakeLocator{method: map[target.ID]string{stmt.ID(): "pkg.Foo.bar"}}

	m := depmap.Build(loc, map[target.Kind]bool{}, []target.Target{stmt})
	assert.Empty(t, m.Keys())
}

func TestMethodTargetAttachesAtEntryBlock(t *testing.T) {
	b := target.NewBuilder()
	method := b.NewMethod(target.Method, noopFitness{}, true, "pkg.Foo", "bar")
	loc := fakeLocator{method: map[target.ID]string{method.ID(): "pkg.Foo.bar"}}

	m := depmap.Build(loc, map[target.Kind]bool{target.Method: true}, []target.Target{method})
	dependents := m.BranchlessDependents("pkg.Foo.bar")
	require.Len(t, dependents, 1)
	assert.Equal(t, method.ID(), dependents[0].ID())
}

func TestExpandCBranchMintsOneCopyPerContext(t *testing.T) {
	b := target.NewBuilder()
	branch := b.NewBranch(noopFitness{}, true, target.BranchOpts{BranchID: 5, ClassName: "pkg.Foo", MethodName: "bar"})

	cc := fakeCallContexts{contexts: map[string][]string{"pkg.Foo.bar": {"ctxA", "ctxB"}}}
	expanded := depmap.ExpandCBranch(b, cc, []target.Target{branch})

	require.Len(t, expanded, 2)
	assert.Equal(t, target.CBranch, expanded[0].Kind())
	assert.NotEqual(t, expanded[0].ID(), expanded[1].ID())
	assert.NotEqual(t, expanded[0].MethodName(), expanded[1].MethodName())
}

type fakeCallContexts struct {
	contexts map[string][]string
}

func (f fakeCallContexts) CallContexts(methodKey string) []string {
	return f.contexts[methodKey]
}
