package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/garimpo-ds/garimpo/internal/cli"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/pipeline"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline end to end",
		Long: `Run every stage in order: generate, features, cluster, markov,
propensity, survival, score.

Each stage reads the artifacts of the previous ones and writes its own, so a
completed run leaves a full set of tables, reports, and the final ranked
score list. Progress and per-stage metrics are recorded in the run ledger.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.FromViper()
			if err != nil {
				return err
			}

			ledger, err := initLedger(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = ledger.Close() }()

			runner := pipeline.New(cfg, ledger)

			stages := pipeline.Stages()
			bar := cli.NewStageProgress(os.Stderr, len(stages), "Panning for customers")
			runner.OnStageDone(func(_ string) {
				_ = bar.Add(1)
			})

			start := time.Now()
			runID, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			summary := fmt.Sprintf(
				"Run ID: %s\nCustomers: %d over %d months\nStages: %d\nTime: %s\nScores: %s",
				runID,
				cfg.Generator.Customers,
				cfg.Generator.Months,
				len(stages),
				time.Since(start).Round(time.Millisecond),
				cfg.Paths.FinalScores(),
			)

			fmt.Println() //nolint:forbidigo // User-facing output
			fmt.Println(cli.RenderBox("Pipeline Complete", summary)) //nolint:forbidigo // User-facing output

			return nil
		},
	}
}
