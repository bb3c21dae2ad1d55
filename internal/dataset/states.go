package dataset

import (
	"fmt"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/model"
)

var stateColumns = []string{"customer_id", "state", "downgrade_risk"}

// WriteStates writes the per-customer state summary: the last observed
// engagement state and the downgrade risk implied by the transition matrix.
func WriteStates(path string, summaries []model.StateSummary) error {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			formatInt(s.CustomerID),
			s.State.String(),
			formatFloat(s.DowngradeRisk),
		})
	}
	return writeTable(path, stateColumns, rows)
}

// ReadStates loads the state summary table written by the markov stage.
func ReadStates(path string) ([]model.StateSummary, error) {
	var summaries []model.StateSummary
	err := forEachRecord(path, "garimpo markov", stateColumns, func(rec record) error {
		var (
			s   model.StateSummary
			err error
		)
		if s.CustomerID, err = rec.Int("customer_id"); err != nil {
			return err
		}
		raw, err := rec.String("state")
		if err != nil {
			return err
		}
		if s.State, err = model.ParseBehaviorState(raw); err != nil {
			return fmt.Errorf("%w: %s line %d: %v", common.ErrMalformedRow, rec.path, rec.line, err)
		}
		if s.DowngradeRisk, err = rec.Float("downgrade_risk"); err != nil {
			return err
		}
		summaries = append(summaries, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
