package search

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/goalmanager"
	"github.com/anjanaperera/premosa-go/internal/target"
	"github.com/anjanaperera/premosa-go/internal/telemetry"
)

// Breeder is the outer search driver's population initialization and
// variation contract (spec.md §1: "only its interaction contract with the
// goal manager is specified"). Crossover and mutation operators themselves
// are external collaborators.
type Breeder interface {
	InitialPopulation(size int) []execution.TestCase
	Breed(population []execution.TestCase) []execution.TestCase
}

// StoppingCondition is polled once per generation in addition to the
// archive-statement budget (spec.md §4.8 Termination: "time, evaluations,
// archive-statement budget").
type StoppingCondition interface {
	IsFinished() bool
}

// Loop is the DynaMOSA/PreMOSA outer many-objective search loop (spec.md
// §4.8).
type Loop struct {
	gm       *goalmanager.GoalManager
	cfg      Config
	breeder  Breeder
	executor execution.Executor
	timeout  time.Duration
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	stopping []StoppingCondition

	runID      uuid.UUID
	iteration  int
	iterWithoutImprovement int
	lastUncoveredCount     int
	zeroGoalsCovered       bool // PreMOSA latch: true until first goal is ever covered
}

// NewLoop constructs a Loop. gm must already be built (goalmanager.New)
// over the program's full goal set.
func NewLoop(gm *goalmanager.GoalManager, cfg Config, breeder Breeder, executor execution.Executor, timeout time.Duration, logger *telemetry.Logger, metrics *telemetry.Metrics, stopping ...StoppingCondition) *Loop {
	return &Loop{
		gm:               gm,
		cfg:              cfg,
		breeder:          breeder,
		executor:         executor,
		timeout:          timeout,
		logger:           logger,
		metrics:          metrics,
		stopping:         stopping,
		runID:            uuid.New(),
		zeroGoalsCovered: true,
	}
}

// RunID identifies this search run. It is attached to the loop's log lines
// and printed by cmd/premosa; the status API does not report it
// (SPEC_FULL.md DOMAIN STACK, google/uuid entry).
func (l *Loop) RunID() uuid.UUID { return l.runID }

// Result is the outer loop's exit contract (spec.md §6 "Exit contract").
type Result struct {
	Tests            []execution.TestCase
	CoveredCount     int
	UncoveredCount   int
	GenerationsRun   int
	TriggerFired     bool
}

// Run drives generations until a stopping condition fires or ctx is
// cancelled (spec.md §5 Cancellation: "checked between generations").
func (l *Loop) Run(ctx context.Context) Result {
	l.logger.With(telemetry.Fields{"run_id": l.runID.String()}).Info("search starting")

	if len(l.gm.Current()) == 0 {
		l.fireTrigger("no buggy goals at startup")
	}

	population := l.evaluateAll(ctx, l.breeder.InitialPopulation(l.cfg.Population))
	l.lastUncoveredCount = len(l.gm.Uncovered())

	for !l.isFinished() {
		if err := ctx.Err(); err != nil {
			break
		}

		tests := make([]execution.TestCase, 0, len(population))
		for _, ind := range population {
			tests = append(tests, ind.Test)
		}
		offspring := l.evaluateAll(ctx, l.breeder.Breed(tests))

		union := append(append([]Individual{}, population...), offspring...)

		l.gm.AdjustGoals()

		objectives := make([]target.ID, 0, len(l.gm.Current()))
		for _, t := range l.gm.Current() {
			objectives = append(objectives, t.ID())
		}

		front0, rest := PreferenceSort(union, objectives)
		fronts := append([][]Individual{front0}, FastNonDominatedSort(rest, objectives)...)
		population = SelectPopulation(fronts, l.cfg.Population, objectives)

		l.iteration++
		if l.metrics != nil {
			l.metrics.Generations.Inc()
		}
		l.pollTrigger()
	}

	return l.result(population)
}

func (l *Loop) evaluateAll(ctx context.Context, tests []execution.TestCase) []Individual {
	out := make([]Individual, 0, len(tests))
	for _, t := range tests {
		res := l.gm.CalculateFitness(ctx, l.executor, t, l.timeout)
		out = append(out, Individual{Test: t, Distances: res.Distances})
		if len(l.gm.Covered()) > 0 {
			l.zeroGoalsCovered = false
		}
	}
	l.recordMetrics()
	return out
}

func (l *Loop) isFinished() bool {
	if l.gm.Archive().IsFinished() {
		return true
	}
	for _, s := range l.stopping {
		if s.IsFinished() {
			return true
		}
	}
	return false
}

// pollTrigger implements spec.md §4.8's trigger logic: the DynaMOSA
// uncovered-exhaustion rule, PreMOSA's stagnation counter, and PreMOSA's
// zero-coverage rule (SPEC_FULL.md supplemented feature #6: the
// zeroGoalsCovered latch clears the first time any goal is covered,
// independent of the stagnation counter).
func (l *Loop) pollTrigger() {
	if l.gm.TriggerFired() {
		return
	}

	uncovered := len(l.gm.Uncovered())
	if uncovered == 0 {
		l.fireTrigger("uncovered goals exhausted")
		return
	}

	if uncovered < l.lastUncoveredCount {
		l.iterWithoutImprovement = 0
	} else {
		l.iterWithoutImprovement++
	}
	l.lastUncoveredCount = uncovered

	if l.iterWithoutImprovement >= l.cfg.IterationsWithoutImprovement {
		l.fireTrigger("stagnation: no uncovered-goal decrease")
		return
	}

	if l.zeroGoalsCovered && l.iteration >= l.cfg.ZeroCoverageTrigger {
		l.fireTrigger("zero coverage observed")
	}
}

func (l *Loop) fireTrigger(reason string) {
	l.gm.Fire()
	if l.metrics != nil {
		l.metrics.TriggersFired.Inc()
	}
	l.logger.With(telemetry.Fields{"run_id": l.runID.String(), "reason": reason}).Info("non-buggy inclusion trigger fired")
}

func (l *Loop) recordMetrics() {
	if l.metrics == nil {
		return
	}
	l.metrics.ArchiveStatements.Set(float64(l.gm.Archive().StatementCount()))
	l.metrics.ArchiveTests.Set(float64(len(l.gm.Archive().Tests())))
	l.metrics.CurrentGoals.Set(float64(len(l.gm.Current())))

	byKindCovered := make(map[target.Kind]int)
	for _, t := range l.gm.Covered() {
		byKindCovered[t.Kind()]++
	}
	byKindUncovered := make(map[target.Kind]int)
	for _, t := range l.gm.Uncovered() {
		byKindUncovered[t.Kind()]++
	}
	for k, n := range byKindCovered {
		l.metrics.CoveredGoals.WithLabelValues(k.String()).Set(float64(n))
	}
	for k, n := range byKindUncovered {
		l.metrics.UncoveredGoals.WithLabelValues(k.String()).Set(float64(n))
	}
}

func (l *Loop) result(population []Individual) Result {
	return Result{
		Tests:          l.gm.Archive().Tests(),
		CoveredCount:   len(l.gm.Covered()),
		UncoveredCount: len(l.gm.Uncovered()),
		GenerationsRun: l.iteration,
		TriggerFired:   l.gm.TriggerFired(),
	}
}
