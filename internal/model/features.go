package model

// ClusterUnassigned marks a feature row that has not been through the
// clustering stage yet.
const ClusterUnassigned = -1

// CustomerFeatures is the per-customer aggregation of the monthly panel.
// M12 columns aggregate the full window, M3 columns only months 1-3 (the
// early window used by the propensity model).
type CustomerFeatures struct {
	ClusterName        string
	CustomerID         int
	Age                float64
	Income             float64
	M12MeanBalance     float64
	M12StdBalance      float64
	M12MeanCardSpend   float64
	M12MeanUtilization float64
	M12MeanPix         float64
	M12MeanDigital     float64
	M12LatePaymentRate float64
	M12BalanceSlope    float64
	M3MeanBalance      float64
	M3StdBalance       float64
	M3MeanCardSpend    float64
	M3MeanUtilization  float64
	M3MeanPix          float64
	M3MeanDigital      float64
	M3LatePaymentRate  float64
	AdoptedEver        int
	TimeToInvestment   int
	FirstAdoptMonth    int
	Cluster            int
}

// ClusterFeatureNames lists the feature columns the cluster stage trains on,
// in artifact column order.
func ClusterFeatureNames() []string {
	return []string{
		"age",
		"income",
		"m12_mean_balance",
		"m12_std_balance",
		"m12_mean_card_spend",
		"m12_mean_utilization",
		"m12_mean_pix",
		"m12_late_payment_rate",
	}
}

// ClusterFeatureVector extracts the clustering features in the order of
// ClusterFeatureNames.
func (f CustomerFeatures) ClusterFeatureVector() []float64 {
	return []float64{
		f.Age,
		f.Income,
		f.M12MeanBalance,
		f.M12StdBalance,
		f.M12MeanCardSpend,
		f.M12MeanUtilization,
		f.M12MeanPix,
		f.M12LatePaymentRate,
	}
}
