package dataset

import (
	"github.com/garimpo-ds/garimpo/internal/model"
)

// WriteClusterSummary writes the per-cluster mean table. Values are rounded
// to two decimals; this table is for people, not downstream stages.
func WriteClusterSummary(path string, profiles []model.ClusterProfile) error {
	header := []string{
		"cluster",
		"cluster_name",
		"customers",
		"mean_age",
		"mean_income",
		"mean_balance",
		"std_balance",
		"mean_card_spend",
		"mean_utilization",
		"mean_pix",
		"late_payment_rate",
	}
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{
			formatInt(p.Cluster),
			p.Name,
			formatInt(p.Customers),
			formatFloat2(p.MeanAge),
			formatFloat2(p.MeanIncome),
			formatFloat2(p.MeanBalance),
			formatFloat2(p.StdBalance),
			formatFloat2(p.MeanCardSpend),
			formatFloat4(p.MeanUtilization),
			formatFloat2(p.MeanPix),
			formatFloat4(p.LatePaymentRate),
		})
	}
	return writeTable(path, header, rows)
}

// WriteProfileCards writes the cluster profile cards with their business
// labels and descriptions.
func WriteProfileCards(path string, profiles []model.ClusterProfile) error {
	header := []string{
		"cluster",
		"name",
		"description",
		"customers",
		"mean_age",
		"mean_income",
		"mean_balance",
		"mean_card_spend",
		"mean_utilization",
		"mean_pix",
		"late_payment_rate",
	}
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{
			formatInt(p.Cluster),
			p.Name,
			p.Description,
			formatInt(p.Customers),
			formatFloat2(p.MeanAge),
			formatFloat2(p.MeanIncome),
			formatFloat2(p.MeanBalance),
			formatFloat2(p.MeanCardSpend),
			formatFloat4(p.MeanUtilization),
			formatFloat2(p.MeanPix),
			formatFloat4(p.LatePaymentRate),
		})
	}
	return writeTable(path, header, rows)
}
