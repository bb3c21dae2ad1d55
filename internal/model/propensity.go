package model

// PropensityScore is one customer's predicted probability of adopting the
// investment product within the outcome window.
type PropensityScore struct {
	CustomerID  int
	Probability float64
}

// PropensityMetrics summarizes holdout evaluation of the propensity model.
// Recall@10%/@20% measure the share of true adopters captured in the top
// decile/quintile of the ranked scores, which is what a capacity-limited
// campaign team actually acts on.
type PropensityMetrics struct {
	Algorithm string
	AUC       float64
	KS        float64
	Recall10  float64
	Recall20  float64
	TrainRows int
	TestRows  int
	Positives int
}
