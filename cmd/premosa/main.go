// Command premosa runs the defect-guided many-objective test-generation
// search to completion and reports its exit contract (spec.md §6). Flag and
// config wiring follows internal/config; component construction follows the
// teacher's main.go shape of building every collaborator directly in main
// and running to completion, rather than a long-lived service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anjanaperera/premosa-go/internal/archive"
	"github.com/anjanaperera/premosa-go/internal/config"
	"github.com/anjanaperera/premosa-go/internal/defectscore"
	"github.com/anjanaperera/premosa-go/internal/execution"
	"github.com/anjanaperera/premosa-go/internal/goalmanager"
	"github.com/anjanaperera/premosa-go/internal/search"
	"github.com/anjanaperera/premosa-go/internal/statusapi"
	"github.com/anjanaperera/premosa-go/internal/target"
	"github.com/anjanaperera/premosa-go/internal/telemetry"
)

func main() {
	v := viper.New()
	root := &cobra.Command{
		Use:   "premosa",
		Short: "defect-guided many-objective unit test search",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			statusPort, _ := cmd.Flags().GetInt("status-port")
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return run(cmd.Context(), cfg, statusPort)
		},
	}
	config.BindFlags(root, v)
	root.Flags().Int("status-port", 8080, "port for the GET /status, /archive, /goals, /metrics surface")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root.SetContext(ctx)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg search.Config, statusPort int) error {
	logger := telemetry.NewDefault()
	metrics := telemetry.NewMetrics()

	scores := defectscore.NewRegistry()
	if cfg.DefectScoreDir != "" {
		if loaded, err := defectscore.LoadDir(os.DirFS(cfg.DefectScoreDir), "."); err != nil {
			logger.With(telemetry.Fields{"dir": cfg.DefectScoreDir, "error": err.Error()}).
				Warn("defect-score directory unreadable, proceeding with no scores")
		} else {
			scores = loaded
		}
	}
	logger.With(telemetry.Fields{"classes": len(scores.Classes())}).Info("loaded defect scores")

	builder := target.NewBuilder()
	goals, graph, deps := buildDemoGoals(builder)

	arc := archive.New(cfg.MaxArchiveStatements)
	excReg := archive.NewExceptionRegistry()

	gm := goalmanager.New(goalmanager.BuildOpts{
		Graph:             graph,
		Deps:              deps,
		Archive:           arc,
		Exceptions:        excReg,
		Builder:           builder,
		Goals:             goals,
		MethodsEnabled:    true,
		ExceptionsEnabled: true,
	})

	api := statusapi.New(ctx, statusPort, logger, metrics)
	api.Attach(gm)
	api.Start()
	defer api.Shutdown()

	loop := search.NewLoop(gm, cfg, &demoBreeder{}, demoExecutor{}, 2*time.Second, logger, metrics)

	result := loop.Run(ctx)

	fmt.Printf("run %s: generations=%d covered=%d uncovered=%d trigger_fired=%v archive_tests=%d\n",
		loop.RunID(), result.GenerationsRun, result.CoveredCount, result.UncoveredCount,
		result.TriggerFired, len(result.Tests))
	return nil
}

var _ execution.TestCase = demoTest{}
