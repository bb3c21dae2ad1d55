package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths locates every artifact the pipeline reads or writes. Stage outputs
// land under DataDir, human-facing tables and reports under ReportsDir.
type Paths struct {
	DataDir    string
	ReportsDir string
	Ledger     string
}

// DefaultPaths returns the artifact layout relative to the working directory.
func DefaultPaths() Paths {
	return Paths{
		DataDir:    "data",
		ReportsDir: "reports",
		Ledger:     filepath.Join("data", "garimpo.db"),
	}
}

// EnsureDirs creates the artifact directories if they do not exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{
		filepath.Join(p.DataDir, "raw"),
		filepath.Join(p.DataDir, "processed"),
		filepath.Join(p.ReportsDir, "tables"),
		filepath.Dir(p.Ledger),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// Panel is the raw monthly transaction panel.
func (p Paths) Panel() string {
	return filepath.Join(p.DataDir, "raw", "transactions_monthly.csv")
}

// Features is the per-customer feature table.
func (p Paths) Features() string {
	return filepath.Join(p.DataDir, "processed", "customer_features.csv")
}

// ClusteredFeatures is the feature table with cluster assignments and labels.
func (p Paths) ClusteredFeatures() string {
	return filepath.Join(p.DataDir, "processed", "customer_features_with_cluster.csv")
}

// States is the per-customer engagement state summary.
func (p Paths) States() string {
	return filepath.Join(p.DataDir, "processed", "customer_states.csv")
}

// ClusterSummary is the per-cluster mean table.
func (p Paths) ClusterSummary() string {
	return filepath.Join(p.ReportsDir, "tables", "cluster_summary.csv")
}

// ProfileCards is the cluster profile card table.
func (p Paths) ProfileCards() string {
	return filepath.Join(p.ReportsDir, "tables", "cluster_profile_cards.csv")
}

// ProfileCardsMarkdown is the human-readable cluster report.
func (p Paths) ProfileCardsMarkdown() string {
	return filepath.Join(p.ReportsDir, "cluster_profile_cards.md")
}

// TransitionCounts is the raw Markov transition count matrix.
func (p Paths) TransitionCounts() string {
	return filepath.Join(p.ReportsDir, "tables", "markov_transition_counts.csv")
}

// TransitionMatrix is the row-normalized Markov transition matrix.
func (p Paths) TransitionMatrix() string {
	return filepath.Join(p.ReportsDir, "tables", "markov_transition_matrix.csv")
}

// Stationary is the stationary distribution of the transition matrix.
func (p Paths) Stationary() string {
	return filepath.Join(p.ReportsDir, "tables", "markov_stationary.csv")
}

// PropensityScores is the per-customer adoption probability table.
func (p Paths) PropensityScores() string {
	return filepath.Join(p.ReportsDir, "tables", "propensity_scores.csv")
}

// PropensityMetrics is the held-out evaluation table for the classifier.
func (p Paths) PropensityMetrics() string {
	return filepath.Join(p.ReportsDir, "tables", "propensity_metrics.csv")
}

// SurvivalProbabilities is the per-customer adoption probability by horizon.
func (p Paths) SurvivalProbabilities() string {
	return filepath.Join(p.ReportsDir, "tables", "survival_probabilities.csv")
}

// SurvivalExpectedTime is the per-customer expected months to adoption.
func (p Paths) SurvivalExpectedTime() string {
	return filepath.Join(p.ReportsDir, "tables", "survival_expected_time.csv")
}

// CoxSummary is the fitted Cox coefficient table.
func (p Paths) CoxSummary() string {
	return filepath.Join(p.ReportsDir, "tables", "survival_cox_summary.csv")
}

// SurvivalReport is the human-readable survival analysis report.
func (p Paths) SurvivalReport() string {
	return filepath.Join(p.ReportsDir, "survival_report.md")
}

// FinalScores is the blended priority score table.
func (p Paths) FinalScores() string {
	return filepath.Join(p.ReportsDir, "tables", "final_scores.csv")
}
