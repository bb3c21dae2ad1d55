package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/garimpo-ds/garimpo/internal/cli"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/dataset"
	"github.com/garimpo-ds/garimpo/internal/model"
	"github.com/garimpo-ds/garimpo/internal/pipeline"
)

// stageRunE builds the RunE shared by every single-stage command: load the
// config, open the ledger, and execute exactly one pipeline stage under its
// own run id.
func stageRunE(stage string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
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

		// The bar is created on the first update because the total is
		// only known once the stage starts its loop.
		var bar *progressbar.ProgressBar
		runner.OnProgress(func(name string, done, total int) {
			if bar == nil {
				bar = cli.NewStageProgress(os.Stderr, total, name)
			}
			_ = bar.Set(done)
		})

		start := time.Now()
		runID, err := runner.RunStage(ctx, stage)
		if err != nil {
			return err
		}

		slog.Info(cli.FormatSuccess(fmt.Sprintf("Stage %s complete", stage)),
			"run_id", runID,
			"took", time.Since(start).Round(time.Millisecond))

		return nil
	}
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the synthetic monthly customer panel",
		Long: `Generate a synthetic panel of monthly bank customer behavior.

Each customer gets a static profile (age, income, investor flag) and a month
by month trajectory of balances, card spend, utilization, PIX activity, late
payments, and eventual investment adoption. The panel is the raw material for
every downstream stage.`,
		RunE: stageRunE(pipeline.StageGenerate),
	}

	cmd.Flags().IntP("customers", "n", config.Default().Generator.Customers, "number of customers to simulate")
	cmd.Flags().Int("months", config.Default().Generator.Months, "number of months per customer")
	_ = viper.BindPFlag("generator.customers", cmd.Flags().Lookup("customers"))
	_ = viper.BindPFlag("generator.months", cmd.Flags().Lookup("months"))

	return cmd
}

func featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Aggregate the panel into one feature row per customer",
		Long: `Aggregate the monthly panel into a single feature vector per customer.

Windowed means, standard deviations, and late payment rates are computed over
the full history and the last three months, together with adoption timing
targets for the survival model.`,
		RunE: stageRunE(pipeline.StageFeatures),
	}
}

func clusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Segment customers into behavioral profiles",
		Long: `Run K-Means over standardized customer features.

The best of several seeded restarts is kept, silhouette is computed on the
standardized matrix, and each cluster gets a business-facing profile card in
Portuguese describing who lives in it.`,
		RunE: stageRunE(pipeline.StageCluster),
	}

	cmd.Flags().Int("k", config.Default().Cluster.K, "number of clusters")
	_ = viper.BindPFlag("cluster.k", cmd.Flags().Lookup("k"))

	return cmd
}

func markovCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "markov",
		Short: "Estimate engagement state transition dynamics",
		Long: `Discretize monthly activity into engagement states and estimate a Markov
transition matrix from consecutive month pairs, plus its stationary
distribution. The chance of sliding from high engagement into low feeds the
final score as a retention risk signal.`,
		RunE: stageRunE(pipeline.StageMarkov),
	}
}

func propensityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propensity",
		Short: "Score adoption propensity per customer",
		Long: `Train a supervised model on clustered features to score each customer's
propensity to ever adopt the investment product, with a held-out split for
AUC and KS reporting.`,
		RunE: stageRunE(pipeline.StagePropensity),
	}

	cmd.Flags().String("algorithm", config.Default().Propensity.Algorithm, "model algorithm (gbm, logistic)")
	cmd.Flags().Int("rounds", config.Default().Propensity.Rounds, "boosting rounds")
	_ = viper.BindPFlag("propensity.algorithm", cmd.Flags().Lookup("algorithm"))
	_ = viper.BindPFlag("propensity.rounds", cmd.Flags().Lookup("rounds"))

	return cmd
}

func survivalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "survival",
		Short: "Fit the time-to-adoption survival model",
		Long: `Fit a Cox proportional hazards model on time to investment adoption.

Censored customers are those who never adopted within the observed window.
The fit produces adoption probabilities at 3, 6, and 9 months, an expected
time to adoption, and a coefficient summary report.`,
		RunE: stageRunE(pipeline.StageSurvival),
	}

	cmd.Flags().Float64("penalizer", config.Default().Survival.Penalizer, "ridge penalty strength")
	_ = viper.BindPFlag("survival.penalizer", cmd.Flags().Lookup("penalizer"))

	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Blend model outputs into the final priority ranking",
		Long: `Blend propensity, adoption urgency, and downgrade risk into a single
composite score per customer, band it into High, Medium, and Low priority,
and print the customers a relationship manager should call first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := stageRunE(pipeline.StageScore)(cmd, args); err != nil {
				return err
			}

			cfg, err := config.FromViper()
			if err != nil {
				return err
			}

			scores, err := dataset.ReadFinalScores(cfg.Paths.FinalScores())
			if err != nil {
				return fmt.Errorf("failed to read final scores: %w", err)
			}

			top := viper.GetInt("blend.top_n")
			printTopScores(scores, top)

			return nil
		},
	}

	cmd.Flags().Int("top", config.Default().Blend.TopN, "number of top customers to print")
	_ = viper.BindPFlag("blend.top_n", cmd.Flags().Lookup("top"))

	return cmd
}

// printTopScores renders the head of the ranked score table to stdout.
func printTopScores(scores model.FinalScores, top int) {
	if top > len(scores) {
		top = len(scores)
	}

	fmt.Println() //nolint:forbidigo // User-facing output
	fmt.Println(cli.FormatTitle(fmt.Sprintf("Top %d Customers", top))) //nolint:forbidigo // User-facing output
	fmt.Println() //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("RANK"),
		headerStyle.Render("CUSTOMER"),
		headerStyle.Render("SCORE"),
		headerStyle.Render("BAND"),
		headerStyle.Render("CLUSTER"),
		headerStyle.Render("P(ADOPT 3M)"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		"────", "────────", "─────", "────", "───────", "───────────")

	for i := 0; i < top; i++ {
		s := scores[i]
		fmt.Fprintf(w, "%d\t%d\t%.4f\t%s\t%s\t%.3f\n",
			i+1, s.CustomerID, s.Score, string(s.Band), s.ClusterName, s.PAdopt3M)
	}

	_ = w.Flush()
	fmt.Println() //nolint:forbidigo // User-facing output
}
