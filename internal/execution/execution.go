// Package execution defines the contract between the search engine and the
// external test execution sandbox. The sandbox itself (how a test case is
// compiled, instrumented and run) is out of scope for this module; only the
// shapes it exchanges with the goal manager are defined here.
package execution

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// TestCase is the opaque unit of work the search evolves. Everything about
// how a test is represented and mutated belongs to the outer search driver;
// the core only needs a stable identity to key the archive by and a
// statement count for the archive budget.
type TestCase interface {
	// ID is a stable identity for this test case, used as the archive key.
	// TestCase is otherwise opaque and not assumed comparable, so identity
	// must be assignable by the caller rather than derived from content.
	ID() string
	// Size reports the number of executable statements in the test, used
	// by the archive-statement stopping condition and the best-test
	// replacement rule.
	Size() uint32
}

// Exception describes one thrown-exception observation from a test run,
// keyed the same way the defect-score loader keys methods: class + method.
type Exception struct {
	Class  string
	Method string
	Type   string
}

// Key returns the identity used by the exception-coverage registry.
func (e Exception) Key() string {
	return e.Class + "." + e.Method + ":" + e.Type
}

// Trace carries the raw coverage observations produced by one execution,
// as reported by the external sandbox.
type Trace struct {
	CoveredTrueBranches      map[int32]struct{}
	CoveredFalseBranches     map[int32]struct{}
	CoveredBranchlessMethods map[string]struct{}
	Exceptions               []Exception
}

// NewTrace returns an empty, ready-to-populate Trace.
func NewTrace() Trace {
	return Trace{
		CoveredTrueBranches:      make(map[int32]struct{}),
		CoveredFalseBranches:     make(map[int32]struct{}),
		CoveredBranchlessMethods: make(map[string]struct{}),
	}
}

// Result is the outcome of running one TestCase.
type Result struct {
	Timeout bool
	Error   bool
	Trace   Trace
}

// Executor is the external test execution sandbox. Implementations run a
// test case to completion (or timeout) and report what it covered.
type Executor interface {
	Execute(ctx context.Context, test TestCase) (Result, error)
}

// Run executes test against exec under a wall-clock timeout, isolating the
// caller from a sandbox that hangs. A timeout is reported as Result.Timeout
// rather than as an error, matching spec.md's ExecutionFailure taxonomy
// entry: it is search evidence, never fatal.
func Run(ctx context.Context, exec Executor, test TestCase, timeout time.Duration) Result {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	var result Result
	g.Go(func() error {
		r, err := exec.Execute(gctx, test)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	err := g.Wait()
	if runCtx.Err() == context.DeadlineExceeded {
		return Result{Timeout: true}
	}
	if err != nil {
		return Result{Error: true}
	}
	return result
}
