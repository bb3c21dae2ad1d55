package dataset

import (
	"github.com/garimpo-ds/garimpo/internal/model"
)

// featureColumns is the schema of the per-customer feature table.
var featureColumns = []string{
	"customer_id",
	"age",
	"income",
	"m12_mean_balance",
	"m12_std_balance",
	"m12_mean_card_spend",
	"m12_mean_utilization",
	"m12_mean_pix",
	"m12_mean_digital",
	"m12_late_payment_rate",
	"m12_balance_slope",
	"m3_mean_balance",
	"m3_std_balance",
	"m3_mean_card_spend",
	"m3_mean_utilization",
	"m3_mean_pix",
	"m3_mean_digital",
	"m3_late_payment_rate",
	"adopted_ever",
	"time_to_investment",
	"first_adopt_month",
}

// clusteredColumns extends the feature schema with the cluster assignment.
var clusteredColumns = append(append([]string{}, featureColumns...), "cluster", "cluster_name")

func featureRow(f model.CustomerFeatures) []string {
	return []string{
		formatInt(f.CustomerID),
		formatFloat(f.Age),
		formatFloat(f.Income),
		formatFloat(f.M12MeanBalance),
		formatFloat(f.M12StdBalance),
		formatFloat(f.M12MeanCardSpend),
		formatFloat(f.M12MeanUtilization),
		formatFloat(f.M12MeanPix),
		formatFloat(f.M12MeanDigital),
		formatFloat(f.M12LatePaymentRate),
		formatFloat(f.M12BalanceSlope),
		formatFloat(f.M3MeanBalance),
		formatFloat(f.M3StdBalance),
		formatFloat(f.M3MeanCardSpend),
		formatFloat(f.M3MeanUtilization),
		formatFloat(f.M3MeanPix),
		formatFloat(f.M3MeanDigital),
		formatFloat(f.M3LatePaymentRate),
		formatInt(f.AdoptedEver),
		formatInt(f.TimeToInvestment),
		formatInt(f.FirstAdoptMonth),
	}
}

func parseFeatureRow(rec record) (model.CustomerFeatures, error) {
	f := model.CustomerFeatures{Cluster: model.ClusterUnassigned}

	ints := []struct {
		col string
		dst *int
	}{
		{"customer_id", &f.CustomerID},
		{"adopted_ever", &f.AdoptedEver},
		{"time_to_investment", &f.TimeToInvestment},
		{"first_adopt_month", &f.FirstAdoptMonth},
	}
	for _, c := range ints {
		v, err := rec.Int(c.col)
		if err != nil {
			return model.CustomerFeatures{}, err
		}
		*c.dst = v
	}

	floats := []struct {
		col string
		dst *float64
	}{
		{"age", &f.Age},
		{"income", &f.Income},
		{"m12_mean_balance", &f.M12MeanBalance},
		{"m12_std_balance", &f.M12StdBalance},
		{"m12_mean_card_spend", &f.M12MeanCardSpend},
		{"m12_mean_utilization", &f.M12MeanUtilization},
		{"m12_mean_pix", &f.M12MeanPix},
		{"m12_mean_digital", &f.M12MeanDigital},
		{"m12_late_payment_rate", &f.M12LatePaymentRate},
		{"m12_balance_slope", &f.M12BalanceSlope},
		{"m3_mean_balance", &f.M3MeanBalance},
		{"m3_std_balance", &f.M3StdBalance},
		{"m3_mean_card_spend", &f.M3MeanCardSpend},
		{"m3_mean_utilization", &f.M3MeanUtilization},
		{"m3_mean_pix", &f.M3MeanPix},
		{"m3_mean_digital", &f.M3MeanDigital},
		{"m3_late_payment_rate", &f.M3LatePaymentRate},
	}
	for _, c := range floats {
		v, err := rec.Float(c.col)
		if err != nil {
			return model.CustomerFeatures{}, err
		}
		*c.dst = v
	}

	return f, nil
}

// WriteFeatures writes the per-customer feature table.
func WriteFeatures(path string, features []model.CustomerFeatures) error {
	rows := make([][]string, 0, len(features))
	for _, f := range features {
		rows = append(rows, featureRow(f))
	}
	return writeTable(path, featureColumns, rows)
}

// ReadFeatures loads the feature table written by the features stage.
func ReadFeatures(path string) ([]model.CustomerFeatures, error) {
	var features []model.CustomerFeatures
	err := forEachRecord(path, "garimpo features", featureColumns, func(rec record) error {
		f, err := parseFeatureRow(rec)
		if err != nil {
			return err
		}
		features = append(features, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return features, nil
}

// WriteClusteredFeatures writes the feature table with cluster assignments.
func WriteClusteredFeatures(path string, features []model.CustomerFeatures) error {
	rows := make([][]string, 0, len(features))
	for _, f := range features {
		rows = append(rows, append(featureRow(f), formatInt(f.Cluster), f.ClusterName))
	}
	return writeTable(path, clusteredColumns, rows)
}

// ReadClusteredFeatures loads the feature table written by the cluster stage.
func ReadClusteredFeatures(path string) ([]model.CustomerFeatures, error) {
	var features []model.CustomerFeatures
	err := forEachRecord(path, "garimpo cluster", clusteredColumns, func(rec record) error {
		f, err := parseFeatureRow(rec)
		if err != nil {
			return err
		}
		if f.Cluster, err = rec.Int("cluster"); err != nil {
			return err
		}
		if f.ClusterName, err = rec.String("cluster_name"); err != nil {
			return err
		}
		features = append(features, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return features, nil
}
