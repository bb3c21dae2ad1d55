// Package blend combines the propensity, survival, and downgrade-risk
// outputs into one composite score per customer, so the campaign team gets a
// single ranked list instead of three disagreeing tables. Every input signal
// is min-max normalized before weighting; a signal with no spread collapses
// to zero rather than dividing by it.
package blend

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// Blender produces the final prioritization scores.
type Blender struct {
	cfg    config.Blend
	logger *slog.Logger
}

// New creates a Blender.
func New(cfg config.Blend) *Blender {
	return &Blender{
		cfg:    cfg,
		logger: slog.Default().With("component", "blend"),
	}
}

// Score joins the stage outputs on customer id and blends them into the
// composite score. Every customer in feats must have a propensity score, a
// survival estimate, and a downgrade risk; a missing join is an upstream
// bug and fails the run instead of silently dropping the customer.
func (b *Blender) Score(
	feats []model.CustomerFeatures,
	propensities []model.PropensityScore,
	estimates []model.SurvivalEstimate,
	downgrade map[int]float64,
) (model.FinalScores, error) {
	if len(feats) == 0 {
		return nil, fmt.Errorf("%w: no feature rows", common.ErrEmptyDataset)
	}

	propByID := make(map[int]float64, len(propensities))
	for _, p := range propensities {
		propByID[p.CustomerID] = p.Probability
	}
	estByID := make(map[int]model.SurvivalEstimate, len(estimates))
	for _, e := range estimates {
		estByID[e.CustomerID] = e
	}

	n := len(feats)
	prop := make([]float64, n)
	horizon := make([]float64, n)
	expected := make([]float64, n)
	risk := make([]float64, n)

	scores := make(model.FinalScores, n)
	for i, f := range feats {
		p, ok := propByID[f.CustomerID]
		if !ok {
			return nil, fmt.Errorf("%w: customer %d has no propensity score",
				common.ErrDegenerateInput, f.CustomerID)
		}
		est, ok := estByID[f.CustomerID]
		if !ok {
			return nil, fmt.Errorf("%w: customer %d has no survival estimate",
				common.ErrDegenerateInput, f.CustomerID)
		}
		dr, ok := downgrade[f.CustomerID]
		if !ok {
			return nil, fmt.Errorf("%w: customer %d has no downgrade risk",
				common.ErrDegenerateInput, f.CustomerID)
		}

		prop[i] = p
		horizon[i] = est.PAdopt3M
		expected[i] = est.ExpectedMonths
		risk[i] = dr

		scores[i] = model.FinalScore{
			CustomerID:     f.CustomerID,
			Cluster:        f.Cluster,
			ClusterName:    f.ClusterName,
			Propensity:     p,
			PAdopt3M:       est.PAdopt3M,
			ExpectedMonths: est.ExpectedMonths,
			DowngradeRisk:  dr,
		}
	}

	propNorm := minMax(prop)
	horizonNorm := minMax(horizon)
	expectedNorm := minMax(expected)
	riskNorm := minMax(risk)

	for i := range scores {
		// Adopting soon and adopting fast both raise urgency.
		urgency := b.cfg.WHorizon*horizonNorm[i] + b.cfg.WExpectedTime*(1-expectedNorm[i])

		scores[i].PropensityNorm = propNorm[i]
		scores[i].UrgencyNorm = urgency
		scores[i].RiskNorm = riskNorm[i]

		composite := b.cfg.WPropensity*propNorm[i] +
			b.cfg.WUrgency*urgency +
			b.cfg.WRisk*riskNorm[i]
		scores[i].Score = round6(composite)
		scores[i].Band = model.BandForScore(scores[i].Score)
	}

	scores.Sort()

	bands := make(map[model.PriorityBand]int, 3)
	for _, s := range scores {
		bands[s.Band]++
	}
	b.logger.Info("final scores blended",
		"customers", len(scores),
		"high", bands[model.BandHigh],
		"medium", bands[model.BandMedium],
		"low", bands[model.BandLow])

	return scores, nil
}

// minMax rescales values to [0, 1]. A constant signal carries no ranking
// information and maps to all zeros.
func minMax(values []float64) []float64 {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := make([]float64, len(values))
	if hi == lo {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
