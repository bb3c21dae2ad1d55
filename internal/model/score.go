package model

import "sort"

// PriorityBand groups composite scores into the bands the campaign team
// plans capacity around.
type PriorityBand string

// Priority bands from least to most urgent.
const (
	BandLow    PriorityBand = "Low"
	BandMedium PriorityBand = "Medium"
	BandHigh   PriorityBand = "High"
)

// Band cut points over the composite score.
const (
	bandMediumFloor = 0.33
	bandHighFloor   = 0.66
)

// BandForScore maps a composite score to its priority band.
func BandForScore(score float64) PriorityBand {
	switch {
	case score > bandHighFloor:
		return BandHigh
	case score > bandMediumFloor:
		return BandMedium
	default:
		return BandLow
	}
}

// FinalScore is one customer's blended priority record: the three raw
// signals, their normalized forms, and the weighted composite.
type FinalScore struct {
	ClusterName    string
	Band           PriorityBand
	CustomerID     int
	Cluster        int
	Propensity     float64
	PAdopt3M       float64
	ExpectedMonths float64
	DowngradeRisk  float64
	PropensityNorm float64
	UrgencyNorm    float64
	RiskNorm       float64
	Score          float64
}

// FinalScores supports ranking customers for campaign prioritization.
type FinalScores []FinalScore

// Len implements sort.Interface.
func (s FinalScores) Len() int { return len(s) }

// Less implements sort.Interface - higher composite scores first, customer
// id as a deterministic tiebreak.
func (s FinalScores) Less(i, j int) bool {
	if s[i].Score != s[j].Score {
		return s[i].Score > s[j].Score
	}
	return s[i].CustomerID < s[j].CustomerID
}

// Swap implements sort.Interface.
func (s FinalScores) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// Sort orders the scores descending.
func (s FinalScores) Sort() { sort.Sort(s) }

// TopN returns the N highest-priority customers.
func (s FinalScores) TopN(n int) FinalScores {
	s.Sort()
	if n <= 0 {
		return FinalScores{}
	}
	if n > len(s) {
		n = len(s)
	}
	out := make(FinalScores, n)
	copy(out, s[:n])
	return out
}
