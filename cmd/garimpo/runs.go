package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/garimpo-ds/garimpo/internal/cli"
	"github.com/garimpo-ds/garimpo/internal/model"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recorded pipeline runs",
		Long: `Show pipeline runs recorded in the ledger, newest first.

Pass --id to inspect a single run, including its per-stage row counts and
metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ledger, err := initLedger(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = ledger.Close() }()

			runID, _ := cmd.Flags().GetString("id")
			if runID != "" {
				run, err := ledger.GetRun(ctx, runID)
				if err != nil {
					return fmt.Errorf("failed to get run: %w", err)
				}
				stages, err := ledger.GetStages(ctx, runID)
				if err != nil {
					return fmt.Errorf("failed to get run stages: %w", err)
				}
				printRunDetail(run, stages)
				return nil
			}

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := ledger.ListRuns(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			printRunList(runs)
			return nil
		},
	}

	cmd.Flags().Int("limit", 10, "maximum number of runs to show")
	cmd.Flags().String("id", "", "show a single run with its stages")

	return cmd
}

func printRunList(runs []model.Run) {
	fmt.Println() //nolint:forbidigo // User-facing output
	fmt.Println(cli.FormatTitle("Pipeline Runs")) //nolint:forbidigo // User-facing output
	fmt.Println() //nolint:forbidigo // User-facing output

	if len(runs) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No runs recorded yet. Try: garimpo run")) //nolint:forbidigo // User-facing output
		fmt.Println() //nolint:forbidigo // User-facing output
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("RUN"),
		headerStyle.Render("STARTED"),
		headerStyle.Render("STATUS"),
		headerStyle.Render("CUSTOMERS"),
		headerStyle.Render("SEED"),
		headerStyle.Render("DURATION"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		"───", "───────", "──────", "─────────", "────", "────────")

	for i := range runs {
		run := &runs[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			statusLabel(run.Status),
			run.Customers,
			run.Seed,
			formatDuration(run.Duration()))
	}

	_ = w.Flush()
	fmt.Println() //nolint:forbidigo // User-facing output
}

func printRunDetail(run *model.Run, stages []model.StageRecord) {
	fmt.Println() //nolint:forbidigo // User-facing output
	fmt.Println(cli.FormatTitle(fmt.Sprintf("Run %s", shortID(run.ID)))) //nolint:forbidigo // User-facing output
	fmt.Println() //nolint:forbidigo // User-facing output

	fmt.Printf("  Status:    %s\n", statusLabel(run.Status))   //nolint:forbidigo // User-facing output
	fmt.Printf("  Started:   %s\n", run.StartedAt.Local().Format(time.RFC1123)) //nolint:forbidigo // User-facing output
	fmt.Printf("  Customers: %d over %d months\n", run.Customers, run.Months) //nolint:forbidigo // User-facing output
	fmt.Printf("  Seed:      %d\n", run.Seed) //nolint:forbidigo // User-facing output
	if run.Duration() > 0 {
		fmt.Printf("  Duration:  %s\n", formatDuration(run.Duration())) //nolint:forbidigo // User-facing output
	}
	if run.Error != "" {
		fmt.Printf("  Error:     %s\n", cli.ErrorStyle.Render(run.Error)) //nolint:forbidigo // User-facing output
	}
	fmt.Println() //nolint:forbidigo // User-facing output

	if len(stages) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No stages recorded for this run.")) //nolint:forbidigo // User-facing output
		fmt.Println() //nolint:forbidigo // User-facing output
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		headerStyle.Render("STAGE"),
		headerStyle.Render("STATUS"),
		headerStyle.Render("ROWS"),
		headerStyle.Render("DETAIL"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		"─────", "──────", "────", "──────")

	for i := range stages {
		stage := &stages[i]
		detail := stage.Detail
		if detail == "" {
			detail = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			stage.Stage, statusLabel(stage.Status), stage.Rows, detail)
	}

	_ = w.Flush()
	fmt.Println() //nolint:forbidigo // User-facing output
}

// shortID trims a run uuid to its first block for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusLabel(status model.RunStatus) string {
	switch status {
	case model.RunCompleted:
		return cli.SuccessStyle.Render(cli.SuccessIcon + " completed")
	case model.RunFailed:
		return cli.ErrorStyle.Render(cli.ErrorIcon + " failed")
	case model.RunRunning:
		return cli.InfoStyle.Render("● running")
	default:
		return string(status)
	}
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
