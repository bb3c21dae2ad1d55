package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/garimpo-ds/garimpo/internal/model"
)

func TestWriteClusterCards(t *testing.T) {
	result := &model.ClusterResult{
		K:          2,
		Silhouette: 0.4215,
		Profiles: []model.ClusterProfile{
			{
				Cluster:         0,
				Name:            "Alta Renda Estável",
				Description:     "Clientes de renda alta",
				Customers:       120,
				MeanAge:         51.24,
				MeanIncome:      10482.7,
				MeanUtilization: 0.2113,
				MeanPix:         12.34,
				LatePaymentRate: 0.0312,
			},
			{
				Cluster:   1,
				Name:      "Digital Estável",
				Customers: 80,
			},
		},
	}

	path := filepath.Join(t.TempDir(), "reports", "cluster_profile_cards.md")
	if err := WriteClusterCards(path, result); err != nil {
		t.Fatalf("WriteClusterCards: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	got := string(raw)

	for _, want := range []string{
		"# Perfis (Clusters) — Resumo",
		"- k = 2",
		"- Silhouette = 0.421",
		"## Cluster 0 — Alta Renda Estável",
		"- Clientes: 120",
		"- Idade média: 51.2",
		"- Renda média: 10483",
		"- Utilização média: 0.211",
		"- PIX médio: 12.3",
		"- Taxa de atraso: 0.031",
		"- Descrição: Clientes de renda alta",
		"## Cluster 1 — Digital Estável",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWriteSurvivalReport(t *testing.T) {
	coefs := []model.CoxCoefficient{
		{Feature: "age", Coef: 0.0123, HazardRatio: 1.0124, SE: 0.004, Z: 3.07, P: 0.0021},
		{Feature: "income", Coef: -0.0004, HazardRatio: 0.9996, SE: 0.0002, Z: -2.0, P: 0.0455},
		{Feature: "m12_mean_pix", Coef: 0.08, HazardRatio: 1.0833, SE: 0.01, Z: 8.0, P: 1.2e-15},
	}
	tables := []string{
		"reports/tables/survival_probabilities.csv",
		"reports/tables/survival_expected_time.csv",
	}

	path := filepath.Join(t.TempDir(), "survival_report.md")
	if err := WriteSurvivalReport(path, coefs, true, tables); err != nil {
		t.Fatalf("WriteSurvivalReport: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	got := string(raw)

	for _, want := range []string{
		"# Survival Model Report (CoxPH)",
		"- duration: time_to_investment",
		"- event: adopted_ever",
		"- covariates: age, income, m12_mean_pix",
		"## Coefficients (top)",
		"| feature | coef | hazard_ratio | se | z | p |",
		"Saved tables:",
		"- reports/tables/survival_probabilities.csv",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(got, "WARNING") {
		t.Error("converged fit should not carry a warning")
	}

	// The table is ordered by significance, most significant first.
	pixIdx := strings.Index(got, "| m12_mean_pix |")
	ageIdx := strings.Index(got, "| age |")
	incomeIdx := strings.Index(got, "| income |")
	if pixIdx == -1 || ageIdx == -1 || incomeIdx == -1 {
		t.Fatal("coefficient rows missing from table")
	}
	if !(pixIdx < ageIdx && ageIdx < incomeIdx) {
		t.Errorf("rows not sorted by p ascending: pix=%d age=%d income=%d", pixIdx, ageIdx, incomeIdx)
	}
}

func TestWriteSurvivalReportCapsRows(t *testing.T) {
	coefs := make([]model.CoxCoefficient, 20)
	for i := range coefs {
		coefs[i] = model.CoxCoefficient{
			Feature: string(rune('a' + i)),
			P:       float64(i) / 100,
		}
	}

	path := filepath.Join(t.TempDir(), "survival_report.md")
	if err := WriteSurvivalReport(path, coefs, false, nil); err != nil {
		t.Fatalf("WriteSurvivalReport: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}

	rows := 0
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(line, "| ") && !strings.HasPrefix(line, "| feature") && !strings.HasPrefix(line, "| ---") {
			rows++
		}
	}
	if rows != coxSummaryTop {
		t.Errorf("got %d coefficient rows, want %d", rows, coxSummaryTop)
	}
	if !strings.Contains(string(raw), "WARNING: fit did not converge") {
		t.Error("unconverged fit should carry the warning note")
	}
}
