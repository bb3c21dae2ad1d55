package model

// SurvivalEstimate holds the per-customer outputs of the fitted hazard
// model: adoption probability by each fixed horizon (1 minus the survival
// probability) and the expected time to adoption in months.
type SurvivalEstimate struct {
	CustomerID     int
	PAdopt3M       float64
	PAdopt6M       float64
	PAdopt9M       float64
	ExpectedMonths float64
}

// CoxCoefficient is one row of the fitted-model summary table.
type CoxCoefficient struct {
	Feature     string
	Coef        float64
	HazardRatio float64
	SE          float64
	Z           float64
	P           float64
}
