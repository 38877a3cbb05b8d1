// Package config binds cobra flags and a layered viper configuration
// source onto search.Config, following the pattern shared across the
// example pack's cobra/viper repos (gooze-dev-gooze,
// jinterlante1206-AleutianLocal, metalagman-norma), in place of the
// teacher's hardcoded FuzzerConfig literal.
package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anjanaperera/premosa-go/internal/search"
)

// BindFlags registers every search.Config field as a flag on cmd and
// layers a YAML config file plus PREMOSA_-prefixed environment variables
// underneath (spec.md §6 "Search configuration").
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()
	defaults := search.DefaultConfig()

	flags.Int("population", defaults.Population, "target population size (spec.md POPULATION)")
	flags.StringSlice("criterion", criteriaStrings(defaults.Criteria), "enabled coverage criteria (spec.md CRITERION)")
	flags.Int("iterations-wo-improvement", defaults.IterationsWithoutImprovement, "generations without uncovered-goal decrease before the non-buggy trigger fires")
	flags.Int("zero-coverage-trigger", defaults.ZeroCoverageTrigger, "generation index at which zero coverage fires the non-buggy trigger")
	flags.Uint64("max-archive-statements", defaults.MaxArchiveStatements, "cumulative statement budget for the archive")
	flags.String("dp-dir", defaults.DefectScoreDir, "directory holding per-class defect-score CSVs")
	flags.String("config", "", "path to a YAML config file")

	v.BindPFlag("population", flags.Lookup("population"))
	v.BindPFlag("criterion", flags.Lookup("criterion"))
	v.BindPFlag("iterations_wo_improvement", flags.Lookup("iterations-wo-improvement"))
	v.BindPFlag("zero_coverage_trigger", flags.Lookup("zero-coverage-trigger"))
	v.BindPFlag("max_archive_statements", flags.Lookup("max-archive-statements"))
	v.BindPFlag("dp_dir", flags.Lookup("dp-dir"))

	v.SetEnvPrefix("PREMOSA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

func criteriaStrings(cs []search.Criterion) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

// Load reads the bound flags/env/file into a search.Config. configPath, if
// non-empty, is read as an additional YAML layer above defaults and below
// flags/env.
func Load(v *viper.Viper, configPath string) (search.Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return search.Config{}, err
		}
	}

	var raw struct {
		Population                   int      `mapstructure:"population"`
		Criterion                    []string `mapstructure:"criterion"`
		IterationsWithoutImprovement int      `mapstructure:"iterations_wo_improvement"`
		ZeroCoverageTrigger          int      `mapstructure:"zero_coverage_trigger"`
		MaxArchiveStatements         uint64   `mapstructure:"max_archive_statements"`
		DefectScoreDir               string   `mapstructure:"dp_dir"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return search.Config{}, err
	}

	criteria := make([]search.Criterion, len(raw.Criterion))
	for i, c := range raw.Criterion {
		criteria[i] = search.Criterion(c)
	}

	return search.Config{
		Population:                   raw.Population,
		Criteria:                     criteria,
		IterationsWithoutImprovement: raw.IterationsWithoutImprovement,
		ZeroCoverageTrigger:          raw.ZeroCoverageTrigger,
		MaxArchiveStatements:         raw.MaxArchiveStatements,
		DefectScoreDir:               raw.DefectScoreDir,
	}, nil
}
