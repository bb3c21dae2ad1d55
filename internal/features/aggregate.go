// Package features aggregates the monthly panel into one row per customer:
// full-window behavioral summaries for clustering and survival, plus
// early-window summaries the propensity model can use without looking at
// outcomes it is trying to predict.
package features

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// EarlyWindow is the number of leading months summarized by the m3_*
// columns. The propensity stage trains on these and predicts adoption in
// the months right after, so the window also fixes the earliest month a
// training label may come from.
const EarlyWindow = 3

// Build aggregates panel rows into per-customer features, sorted by
// customer id. Customers with fewer than EarlyWindow months are aggregated
// over what they have.
func Build(rows []model.PanelRow) ([]model.CustomerFeatures, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty panel", common.ErrEmptyDataset)
	}

	byCustomer := make(map[int][]model.PanelRow)
	for _, r := range rows {
		byCustomer[r.CustomerID] = append(byCustomer[r.CustomerID], r)
	}

	features := make([]model.CustomerFeatures, 0, len(byCustomer))
	for _, months := range byCustomer {
		sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
		features = append(features, aggregate(months))
	}

	sort.Slice(features, func(i, j int) bool {
		return features[i].CustomerID < features[j].CustomerID
	})
	return features, nil
}

func aggregate(months []model.PanelRow) model.CustomerFeatures {
	first := months[0]

	cut := len(months)
	if cut > EarlyWindow {
		cut = EarlyWindow
	}

	full := window(months)
	early := window(months[:cut])

	return model.CustomerFeatures{
		CustomerID:         first.CustomerID,
		Age:                float64(first.Age),
		Income:             first.Income,
		M12MeanBalance:     full.meanBalance,
		M12StdBalance:      full.stdBalance,
		M12MeanCardSpend:   full.meanCardSpend,
		M12MeanUtilization: full.meanUtilization,
		M12MeanPix:         full.meanPix,
		M12MeanDigital:     full.meanDigital,
		M12LatePaymentRate: full.lateRate,
		M12BalanceSlope:    full.balanceSlope,
		M3MeanBalance:      early.meanBalance,
		M3StdBalance:       early.stdBalance,
		M3MeanCardSpend:    early.meanCardSpend,
		M3MeanUtilization:  early.meanUtilization,
		M3MeanPix:          early.meanPix,
		M3MeanDigital:      early.meanDigital,
		M3LatePaymentRate:  early.lateRate,
		AdoptedEver:        first.EventInvestment,
		TimeToInvestment:   first.TimeToInvestment,
		FirstAdoptMonth:    first.FirstAdoptMonth,
		Cluster:            model.ClusterUnassigned,
	}
}

type windowStats struct {
	meanBalance     float64
	stdBalance      float64
	meanCardSpend   float64
	meanUtilization float64
	meanPix         float64
	meanDigital     float64
	lateRate        float64
	balanceSlope    float64
}

func window(months []model.PanelRow) windowStats {
	n := len(months)
	balances := make([]float64, n)
	monthIdx := make([]float64, n)
	spend := make([]float64, n)
	util := make([]float64, n)
	pix := make([]float64, n)
	digital := make([]float64, n)
	late := make([]float64, n)

	for i, r := range months {
		balances[i] = r.Balance
		monthIdx[i] = float64(r.Month)
		spend[i] = r.CardSpend
		util[i] = r.Utilization
		pix[i] = float64(r.PixCount)
		digital[i] = r.DigitalActivity
		late[i] = float64(r.LatePayment)
	}

	// Slope of balance over the month index captures whether a customer is
	// accumulating or drawing down. Undefined below two points, like std.
	slope := 0.0
	if n >= 2 {
		_, slope = stat.LinearRegression(monthIdx, balances, nil, false)
	}

	return windowStats{
		meanBalance:     stat.Mean(balances, nil),
		stdBalance:      stdDev(balances),
		meanCardSpend:   stat.Mean(spend, nil),
		meanUtilization: stat.Mean(util, nil),
		meanPix:         stat.Mean(pix, nil),
		meanDigital:     stat.Mean(digital, nil),
		lateRate:        stat.Mean(late, nil),
		balanceSlope:    slope,
	}
}

// stdDev is the sample standard deviation, with 0 instead of NaN when there
// are not enough observations to estimate spread.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
