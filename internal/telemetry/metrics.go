package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the search's observability surface as prometheus
// collectors (SPEC_FULL.md DOMAIN STACK: archive size, per-kind goal
// counts, trigger count), mounted by internal/statusapi alongside its JSON
// endpoints.
type Metrics struct {
	Registry *prometheus.Registry

	ArchiveStatements prometheus.Gauge
	ArchiveTests      prometheus.Gauge
	CoveredGoals      *prometheus.GaugeVec
	UncoveredGoals    *prometheus.GaugeVec
	CurrentGoals      prometheus.Gauge
	TriggersFired     prometheus.Counter
	Generations       prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		ArchiveStatements: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "premosa",
			Name:      "archive_statements_total",
			Help:      "Cumulative executable statements across archived tests.",
		}),
		ArchiveTests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "premosa",
			Name:      "archive_tests_total",
			Help:      "Number of tests currently retained in the archive.",
		}),
		CoveredGoals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "premosa",
			Name:      "covered_goals",
			Help:      "Covered goal count, by target kind.",
		}, []string{"kind"}),
		UncoveredGoals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "premosa",
			Name:      "uncovered_goals",
			Help:      "Uncovered goal count, by target kind.",
		}, []string{"kind"}),
		CurrentGoals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "premosa",
			Name:      "current_goals",
			Help:      "Number of goals currently acting as search objectives.",
		}),
		TriggersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "premosa",
			Name:      "non_buggy_triggers_fired_total",
			Help:      "Number of times the non-buggy inclusion trigger has fired.",
		}),
		Generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "premosa",
			Name:      "generations_total",
			Help:      "Number of completed search generations.",
		}),
	}

	reg.MustRegister(
		m.ArchiveStatements,
		m.ArchiveTests,
		m.CoveredGoals,
		m.UncoveredGoals,
		m.CurrentGoals,
		m.TriggersFired,
		m.Generations,
	)
	return m
}
