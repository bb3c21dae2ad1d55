package dataset

import (
	"github.com/garimpo-ds/garimpo/internal/model"
)

// panelColumns is the artifact schema of the raw monthly panel.
var panelColumns = []string{
	"customer_id",
	"month",
	"age",
	"income",
	"balance",
	"card_spend",
	"pix_count",
	"app_sessions",
	"credit_limit",
	"utilization",
	"late_payment",
	"uses_card",
	"uses_credit",
	"digital_activity_score",
	"adopt_investment",
	"time_to_investment",
	"event_investment",
	"first_adopt_month",
}

// WritePanel writes the synthetic monthly panel.
func WritePanel(path string, rows []model.PanelRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			formatInt(r.CustomerID),
			formatInt(r.Month),
			formatInt(r.Age),
			formatFloat(r.Income),
			formatFloat(r.Balance),
			formatFloat(r.CardSpend),
			formatInt(r.PixCount),
			formatInt(r.AppSessions),
			formatFloat(r.CreditLimit),
			formatFloat(r.Utilization),
			formatInt(r.LatePayment),
			formatInt(r.UsesCard),
			formatInt(r.UsesCredit),
			formatFloat(r.DigitalActivity),
			formatInt(r.AdoptInvestment),
			formatInt(r.TimeToInvestment),
			formatInt(r.EventInvestment),
			formatInt(r.FirstAdoptMonth),
		})
	}
	return writeTable(path, panelColumns, out)
}

// ReadPanel loads the monthly panel written by the generate stage.
func ReadPanel(path string) ([]model.PanelRow, error) {
	var rows []model.PanelRow
	err := forEachRecord(path, "garimpo generate", panelColumns, func(rec record) error {
		var (
			r   model.PanelRow
			err error
		)
		if r.CustomerID, err = rec.Int("customer_id"); err != nil {
			return err
		}
		if r.Month, err = rec.Int("month"); err != nil {
			return err
		}
		if r.Age, err = rec.Int("age"); err != nil {
			return err
		}
		if r.Income, err = rec.Float("income"); err != nil {
			return err
		}
		if r.Balance, err = rec.Float("balance"); err != nil {
			return err
		}
		if r.CardSpend, err = rec.Float("card_spend"); err != nil {
			return err
		}
		if r.PixCount, err = rec.Int("pix_count"); err != nil {
			return err
		}
		if r.AppSessions, err = rec.Int("app_sessions"); err != nil {
			return err
		}
		if r.CreditLimit, err = rec.Float("credit_limit"); err != nil {
			return err
		}
		if r.Utilization, err = rec.Float("utilization"); err != nil {
			return err
		}
		if r.LatePayment, err = rec.Int("late_payment"); err != nil {
			return err
		}
		if r.UsesCard, err = rec.Int("uses_card"); err != nil {
			return err
		}
		if r.UsesCredit, err = rec.Int("uses_credit"); err != nil {
			return err
		}
		if r.DigitalActivity, err = rec.Float("digital_activity_score"); err != nil {
			return err
		}
		if r.AdoptInvestment, err = rec.Int("adopt_investment"); err != nil {
			return err
		}
		if r.TimeToInvestment, err = rec.Int("time_to_investment"); err != nil {
			return err
		}
		if r.EventInvestment, err = rec.Int("event_investment"); err != nil {
			return err
		}
		if r.FirstAdoptMonth, err = rec.Int("first_adopt_month"); err != nil {
			return err
		}
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
