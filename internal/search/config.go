package search

// Criterion is one of the coverage criteria enumerated in spec.md §6
// CRITERION.
type Criterion string

const (
	CriterionBranch             Criterion = "Branch"
	CriterionException          Criterion = "Exception"
	CriterionLine               Criterion = "Line"
	CriterionStatement          Criterion = "Statement"
	CriterionWeakMutation       Criterion = "WeakMutation"
	CriterionStrongMutation     Criterion = "StrongMutation"
	CriterionMethod             Criterion = "Method"
	CriterionMethodNoException  Criterion = "MethodNoException"
	CriterionInput              Criterion = "Input"
	CriterionOutput             Criterion = "Output"
	CriterionTryCatch           Criterion = "TryCatch"
	CriterionCBranch            Criterion = "CBranch"
)

// Config is the search configuration enumerated in spec.md §6 "Search
// configuration". Field names match the spec's option names via
// mapstructure/yaml tags so internal/config can bind cobra flags and a
// viper-loaded YAML file directly onto this struct.
type Config struct {
	Population                int         `mapstructure:"population" yaml:"population"`
	Criteria                  []Criterion `mapstructure:"criterion" yaml:"criterion"`
	IterationsWithoutImprovement int      `mapstructure:"iterations_wo_improvement" yaml:"iterations_wo_improvement"`
	ZeroCoverageTrigger       int         `mapstructure:"zero_coverage_trigger" yaml:"zero_coverage_trigger"`
	MaxArchiveStatements      uint64      `mapstructure:"max_archive_statements" yaml:"max_archive_statements"`
	DefectScoreDir            string      `mapstructure:"dp_dir" yaml:"dp_dir"`
}

// DefaultConfig mirrors reasonable EvoSuite-style defaults for the fields
// this repository's loop consumes directly.
func DefaultConfig() Config {
	return Config{
		Population:                   50,
		Criteria:                     []Criterion{CriterionBranch, CriterionException, CriterionMethod},
		IterationsWithoutImprovement: 5,
		ZeroCoverageTrigger:          10,
		MaxArchiveStatements:         100000,
		DefectScoreDir:               "./defect-scores",
	}
}

// Enabled reports whether c is among the configured criteria.
func (cfg Config) Enabled(c Criterion) bool {
	for _, e := range cfg.Criteria {
		if e == c {
			return true
		}
	}
	return false
}
