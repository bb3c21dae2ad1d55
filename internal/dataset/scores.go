package dataset

import (
	"github.com/garimpo-ds/garimpo/internal/model"
)

var propensityColumns = []string{"customer_id", "probability"}

// WritePropensityScores writes the per-customer adoption probabilities.
func WritePropensityScores(path string, scores []model.PropensityScore) error {
	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, []string{formatInt(s.CustomerID), formatFloat(s.Probability)})
	}
	return writeTable(path, propensityColumns, rows)
}

// ReadPropensityScores loads the scores written by the propensity stage.
func ReadPropensityScores(path string) ([]model.PropensityScore, error) {
	var scores []model.PropensityScore
	err := forEachRecord(path, "garimpo propensity", propensityColumns, func(rec record) error {
		var (
			s   model.PropensityScore
			err error
		)
		if s.CustomerID, err = rec.Int("customer_id"); err != nil {
			return err
		}
		if s.Probability, err = rec.Float("probability"); err != nil {
			return err
		}
		scores = append(scores, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// WritePropensityMetrics writes the holdout evaluation table.
func WritePropensityMetrics(path string, m model.PropensityMetrics) error {
	header := []string{"algorithm", "auc", "ks", "recall_at_10", "recall_at_20", "train_rows", "test_rows", "positives"}
	row := []string{
		m.Algorithm,
		formatFloat4(m.AUC),
		formatFloat4(m.KS),
		formatFloat4(m.Recall10),
		formatFloat4(m.Recall20),
		formatInt(m.TrainRows),
		formatInt(m.TestRows),
		formatInt(m.Positives),
	}
	return writeTable(path, header, [][]string{row})
}

var survivalColumns = []string{"customer_id", "p_adopt_3m", "p_adopt_6m", "p_adopt_9m"}

// WriteSurvivalProbabilities writes per-customer adoption probabilities at
// the fixed horizons.
func WriteSurvivalProbabilities(path string, estimates []model.SurvivalEstimate) error {
	rows := make([][]string, 0, len(estimates))
	for _, e := range estimates {
		rows = append(rows, []string{
			formatInt(e.CustomerID),
			formatFloat(e.PAdopt3M),
			formatFloat(e.PAdopt6M),
			formatFloat(e.PAdopt9M),
		})
	}
	return writeTable(path, survivalColumns, rows)
}

// ReadSurvivalProbabilities loads the horizon table written by the survival
// stage.
func ReadSurvivalProbabilities(path string) ([]model.SurvivalEstimate, error) {
	var estimates []model.SurvivalEstimate
	err := forEachRecord(path, "garimpo survival", survivalColumns, func(rec record) error {
		var (
			e   model.SurvivalEstimate
			err error
		)
		if e.CustomerID, err = rec.Int("customer_id"); err != nil {
			return err
		}
		if e.PAdopt3M, err = rec.Float("p_adopt_3m"); err != nil {
			return err
		}
		if e.PAdopt6M, err = rec.Float("p_adopt_6m"); err != nil {
			return err
		}
		if e.PAdopt9M, err = rec.Float("p_adopt_9m"); err != nil {
			return err
		}
		estimates = append(estimates, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return estimates, nil
}

var expectedTimeColumns = []string{"customer_id", "expected_time_months"}

// WriteSurvivalExpectedTime writes per-customer expected months to adoption.
func WriteSurvivalExpectedTime(path string, estimates []model.SurvivalEstimate) error {
	rows := make([][]string, 0, len(estimates))
	for _, e := range estimates {
		rows = append(rows, []string{formatInt(e.CustomerID), formatFloat(e.ExpectedMonths)})
	}
	return writeTable(path, expectedTimeColumns, rows)
}

// ReadSurvivalExpectedTime loads the expected-time table written by the
// survival stage, keyed by customer id.
func ReadSurvivalExpectedTime(path string) (map[int]float64, error) {
	expected := make(map[int]float64)
	err := forEachRecord(path, "garimpo survival", expectedTimeColumns, func(rec record) error {
		id, err := rec.Int("customer_id")
		if err != nil {
			return err
		}
		months, err := rec.Float("expected_time_months")
		if err != nil {
			return err
		}
		expected[id] = months
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expected, nil
}

// WriteCoxSummary writes the fitted coefficient table.
func WriteCoxSummary(path string, coefs []model.CoxCoefficient) error {
	header := []string{"feature", "coef", "hazard_ratio", "se", "z", "p"}
	rows := make([][]string, 0, len(coefs))
	for _, c := range coefs {
		rows = append(rows, []string{
			c.Feature,
			formatFloat6(c.Coef),
			formatFloat6(c.HazardRatio),
			formatFloat6(c.SE),
			formatFloat4(c.Z),
			formatFloat6(c.P),
		})
	}
	return writeTable(path, header, rows)
}

var finalScoreColumns = []string{
	"customer_id",
	"cluster",
	"cluster_name",
	"propensity",
	"p_adopt_3m",
	"expected_time_months",
	"downgrade_risk",
	"propensity_norm",
	"urgency_norm",
	"risk_norm",
	"final_score",
	"priority",
}

// WriteFinalScores writes the blended priority table, highest scores first.
func WriteFinalScores(path string, scores model.FinalScores) error {
	scores.Sort()
	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, []string{
			formatInt(s.CustomerID),
			formatInt(s.Cluster),
			s.ClusterName,
			formatFloat(s.Propensity),
			formatFloat(s.PAdopt3M),
			formatFloat(s.ExpectedMonths),
			formatFloat(s.DowngradeRisk),
			formatFloat(s.PropensityNorm),
			formatFloat(s.UrgencyNorm),
			formatFloat(s.RiskNorm),
			formatFloat(s.Score),
			string(s.Band),
		})
	}
	return writeTable(path, finalScoreColumns, rows)
}

// ReadFinalScores loads the blended priority table.
func ReadFinalScores(path string) (model.FinalScores, error) {
	var scores model.FinalScores
	err := forEachRecord(path, "garimpo score", finalScoreColumns, func(rec record) error {
		var (
			s   model.FinalScore
			err error
		)
		if s.CustomerID, err = rec.Int("customer_id"); err != nil {
			return err
		}
		if s.Cluster, err = rec.Int("cluster"); err != nil {
			return err
		}
		if s.ClusterName, err = rec.String("cluster_name"); err != nil {
			return err
		}
		if s.Propensity, err = rec.Float("propensity"); err != nil {
			return err
		}
		if s.PAdopt3M, err = rec.Float("p_adopt_3m"); err != nil {
			return err
		}
		if s.ExpectedMonths, err = rec.Float("expected_time_months"); err != nil {
			return err
		}
		if s.DowngradeRisk, err = rec.Float("downgrade_risk"); err != nil {
			return err
		}
		if s.PropensityNorm, err = rec.Float("propensity_norm"); err != nil {
			return err
		}
		if s.UrgencyNorm, err = rec.Float("urgency_norm"); err != nil {
			return err
		}
		if s.RiskNorm, err = rec.Float("risk_norm"); err != nil {
			return err
		}
		if s.Score, err = rec.Float("final_score"); err != nil {
			return err
		}
		band, err := rec.String("priority")
		if err != nil {
			return err
		}
		s.Band = model.PriorityBand(band)
		scores = append(scores, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}
