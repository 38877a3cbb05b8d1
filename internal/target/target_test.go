package target_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/target"
)

type constFitness float64

func (c constFitness) Distance(execution.TestCase) float64 { return float64(c) }

type fakeTest struct {
	id   string
	size uint32
}

func (f fakeTest) ID() string   { return f.id }
func (f fakeTest) Size() uint32 { return f.size }

func TestBuilderAssignsIncrementingIDs(t *testing.T) {
	b := target.NewBuilder()
	a := b.NewSimple(target.Line, constFitness(1), false)
	c := b.NewSimple(target.Statement, constFitness(0), false)
	require.NotEqual(t, a.ID(), c.ID())
	assert.Less(t, int64(a.ID()), int64(c.ID()))
}

func TestBranchTargetFields(t *testing.T) {
	b := target.NewBuilder()
	br := b.NewBranch(constFitness(0), true, target.BranchOpts{
		BranchID:        17,
		ExpressionValue: true,
		ClassName:       "pkg.Foo",
		MethodName:      "bar",
	})
	assert.True(t, br.IsBranch())
	assert.Equal(t, int32(17), br.BranchID())
	assert.True(t, br.ExpressionValue())
	assert.True(t, br.Buggy())
	assert.Equal(t, "pkg.Foo.bar", br.BranchlessMethodKey())
}

func TestCBranchDistinctIdentityPerContext(t *testing.T) {
	b := target.NewBuilder()
	opts := target.BranchOpts{BranchID: 1, ClassName: "pkg.Foo", MethodName: "bar"}
	a := b.NewCBranch(constFitness(0), false, opts, "ctxA")
	c := b.NewCBranch(constFitness(0), false, opts, "ctxB")
	assert.NotEqual(t, a.ID(), c.ID())
	assert.Equal(t, target.CBranch, a.Kind())
	assert.NotEqual(t, a.MethodName(), c.MethodName())
}

func TestDistanceDelegatesToFitnessFunction(t *testing.T) {
	b := target.NewBuilder()
	tgt := b.NewSimple(target.Statement, constFitness(3.5), false)
	assert.Equal(t, 3.5, tgt.Distance(fakeTest{id: "t1", size: 2}))
}

func TestWithWeightIsImmutableCopy(t *testing.T) {
	b := target.NewBuilder()
	base := b.NewSimple(target.Method, constFitness(0), true)
	weighted := base.WithWeight(0.42)
	assert.Equal(t, 0.0, base.Weight())
	assert.Equal(t, 0.42, weighted.Weight())
}
