// Package archive holds the covered-target archive and its size-bounded
// retention policy (spec.md §4.3, §4.9), plus the process-wide exception
// coverage registry (spec.md §4.6 step 5, §9 "replace singletons with an
// explicit Registry value").
package archive

import (
	"sync"

	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/target"
)

// Archive is the `TestCase -> []Target` / `Target -> best TestCase`
// mapping plus the archive-statement stopping condition (spec.md §3, §4.9).
type Archive struct {
	maxStatements uint64

	statementCount uint64
	budgetExceeded bool

	// testOrder preserves insertion order of tests for deterministic
	// iteration (spec.md §5).
	byTest     map[string][]target.ID
	testOrder  []string
	knownTests map[string]execution.TestCase

	best map[target.ID]execution.TestCase
}

// New returns an empty archive with the given cumulative statement budget
// (spec.md §6 MAX_ARCHIVE_STATEMENTS).
func New(maxStatements uint64) *Archive {
	return &Archive{
		maxStatements: maxStatements,
		byTest:        make(map[string][]target.ID),
		knownTests:    make(map[string]execution.TestCase),
		best:          make(map[target.ID]execution.TestCase),
	}
}

// IsFinished reports whether the archive-statement budget has latched
// (spec.md §4.9: "the outer loop polls is_finished which returns the
// latch").
func (a *Archive) IsFinished() bool {
	return a.budgetExceeded
}

// StatementCount returns the cumulative statement count of archived tests.
func (a *Archive) StatementCount() uint64 {
	return a.statementCount
}

// Update records that test t covers target f, per spec.md §4.3
// update_covered_goals steps 1, 3 and 4 (step 2, registering coverage on
// the test's externally-visible covered-set, is the caller's
// responsibility since TestCase is opaque to this package). It returns
// false without mutating anything if accepting this test would exceed the
// statement budget, in which case the budget latch is set.
func (a *Archive) Update(f target.Target, t execution.TestCase) bool {
	if _, known := a.knownTests[t.ID()]; !known {
		if a.statementCount+uint64(t.Size()) > a.maxStatements {
			a.budgetExceeded = true
			return false
		}
		a.statementCount += uint64(t.Size())
		a.knownTests[t.ID()] = t
		a.testOrder = append(a.testOrder, t.ID())
	}

	if cur, ok := a.best[f.ID()]; !ok {
		a.best[f.ID()] = t
	} else if t.Size() < cur.Size() && t.Size() > 1 {
		// Replacement does not evict the previous best from byTest
		// (spec.md §4.3 note; §9 Open Question: "retain source
		// behavior (leak) unless a clean-up pass is added" — see
		// DESIGN.md).
		a.best[f.ID()] = t
	}

	a.byTest[t.ID()] = append(a.byTest[t.ID()], f.ID())
	return true
}

// Best returns the test recorded as best for f: the first test that
// covered it, replaced by any later test that is both smaller and of size
// greater than 1.
func (a *Archive) Best(f target.ID) (execution.TestCase, bool) {
	t, ok := a.best[f]
	return t, ok
}

// CoveredBy returns the targets test t is recorded as covering.
func (a *Archive) CoveredBy(testID string) []target.ID {
	return a.byTest[testID]
}

// Tests returns every archived test in insertion order.
func (a *Archive) Tests() []execution.TestCase {
	out := make([]execution.TestCase, 0, len(a.testOrder))
	for _, id := range a.testOrder {
		out = append(out, a.knownTests[id])
	}
	return out
}

// ExceptionRegistry is the process-wide exception-coverage bookkeeping
// (spec.md §4.6 step 5, §5 "Shared resources": "the exception-coverage
// registry is process-wide and mutated on first-seen exceptions; access
// must be guarded if the outer driver ever parallelizes evaluations").
// Replaces the original's ExceptionCoverageFactory singleton with an
// explicit, constructible value (spec.md §9).
type ExceptionRegistry struct {
	mu   sync.Mutex
	seen map[string]execution.Exception
}

// NewExceptionRegistry returns an empty registry.
func NewExceptionRegistry() *ExceptionRegistry {
	return &ExceptionRegistry{seen: make(map[string]execution.Exception)}
}

// Observe registers exc if its key has not been seen before, returning
// true when this is the first observation globally (spec.md §8 scenario 5:
// "a subsequent search with the same program sees K in its initial goal
// set").
func (r *ExceptionRegistry) Observe(exc execution.Exception) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := exc.Key()
	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = exc
	return true
}

// Known returns every exception key registered so far, for seeding a
// subsequent search's initial goal set.
func (r *ExceptionRegistry) Known() []execution.Exception {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]execution.Exception, 0, len(r.seen))
	for _, e := range r.seen {
		out = append(out, e)
	}
	return out
}
