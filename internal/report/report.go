// Package report renders the human-readable markdown summaries that sit
// next to the CSV tables. The CSVs feed downstream stages; these files are
// for whoever reviews the run.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/garimpo-ds/garimpo/internal/model"
)

// coxSummaryTop caps the coefficient table at the most significant rows.
const coxSummaryTop = 15

// WriteClusterCards writes the per-cluster profile cards in Portuguese, one
// section per cluster with its business label and headline averages.
func WriteClusterCards(path string, result *model.ClusterResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Perfis (Clusters) — Resumo\n\n")
	fmt.Fprintf(&b, "- k = %d\n", result.K)
	fmt.Fprintf(&b, "- Silhouette = %.3f\n\n", result.Silhouette)

	for _, p := range result.Profiles {
		fmt.Fprintf(&b, "## Cluster %d — %s\n", p.Cluster, p.Name)
		fmt.Fprintf(&b, "- Clientes: %d\n", p.Customers)
		fmt.Fprintf(&b, "- Idade média: %.1f\n", p.MeanAge)
		fmt.Fprintf(&b, "- Renda média: %.0f\n", p.MeanIncome)
		fmt.Fprintf(&b, "- Utilização média: %.3f\n", p.MeanUtilization)
		fmt.Fprintf(&b, "- PIX médio: %.1f\n", p.MeanPix)
		fmt.Fprintf(&b, "- Taxa de atraso: %.3f\n", p.LatePaymentRate)
		fmt.Fprintf(&b, "- Descrição: %s\n\n", p.Description)
	}

	return writeMarkdown(path, b.String())
}

// WriteSurvivalReport writes the Cox model summary: the covariate list, the
// most significant coefficients, and where the full tables were saved.
func WriteSurvivalReport(path string, coefs []model.CoxCoefficient, converged bool, tables []string) error {
	var b strings.Builder

	covariates := make([]string, len(coefs))
	for i, c := range coefs {
		covariates[i] = c.Feature
	}

	fmt.Fprintf(&b, "# Survival Model Report (CoxPH)\n\n")
	fmt.Fprintf(&b, "- duration: time_to_investment\n")
	fmt.Fprintf(&b, "- event: adopted_ever\n")
	fmt.Fprintf(&b, "- covariates: %s\n", strings.Join(covariates, ", "))
	if !converged {
		fmt.Fprintf(&b, "- WARNING: fit did not converge, coefficients are the last iterate\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "## Coefficients (top)\n\n")

	top := make([]model.CoxCoefficient, len(coefs))
	copy(top, coefs)
	sort.SliceStable(top, func(i, j int) bool { return top[i].P < top[j].P })
	if len(top) > coxSummaryTop {
		top = top[:coxSummaryTop]
	}

	fmt.Fprintf(&b, "| feature | coef | hazard_ratio | se | z | p |\n")
	fmt.Fprintf(&b, "| --- | --- | --- | --- | --- | --- |\n")
	for _, c := range top {
		fmt.Fprintf(&b, "| %s | %.4f | %.4f | %.4f | %.4f | %.3g |\n",
			c.Feature, c.Coef, c.HazardRatio, c.SE, c.Z, c.P)
	}
	b.WriteString("\n")

	if len(tables) > 0 {
		b.WriteString("Saved tables:\n")
		for _, t := range tables {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}

	return writeMarkdown(path, b.String())
}

func writeMarkdown(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
