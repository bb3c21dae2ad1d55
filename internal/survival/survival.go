// Package survival fits a Cox proportional-hazards model on time to
// investment adoption. Customers who never adopt inside the panel are
// right-censored at the final month and still contribute to every risk set
// they survive through, which is what separates this stage from a plain
// classifier. The fit runs on standardized covariates for conditioning;
// coefficients are reported back on the original scale.
package survival

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// Horizons are the months at which adoption probabilities are reported.
var Horizons = [3]int{3, 6, 9}

// covariateNames lists the model covariates in design-matrix order, which
// follows the feature artifact column order.
func covariateNames() []string {
	return []string{
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
		"cluster",
	}
}

func covariateVector(f model.CustomerFeatures) []float64 {
	return []float64{
		f.Age,
		f.Income,
		f.M12MeanBalance,
		f.M12StdBalance,
		f.M12MeanCardSpend,
		f.M12MeanUtilization,
		f.M12MeanPix,
		f.M12MeanDigital,
		f.M12LatePaymentRate,
		f.M12BalanceSlope,
		f.M3MeanBalance,
		f.M3StdBalance,
		f.M3MeanCardSpend,
		f.M3MeanUtilization,
		f.M3MeanPix,
		f.M3MeanDigital,
		f.M3LatePaymentRate,
		float64(f.Cluster),
	}
}

// Result is the fitted model plus per-customer predictions.
type Result struct {
	Coefficients []model.CoxCoefficient
	Estimates    []model.SurvivalEstimate
	Converged    bool
	Iterations   int
	LogLik       float64
}

// Fitter runs the survival stage.
type Fitter struct {
	cfg      config.Survival
	logger   *slog.Logger
	progress func(done, total int)
}

// New creates a Fitter.
func New(cfg config.Survival) *Fitter {
	return &Fitter{
		cfg:    cfg,
		logger: slog.Default().With("component", "survival"),
	}
}

// OnProgress registers a callback invoked per customer while the fitted
// model is evaluated into horizon probabilities.
func (f *Fitter) OnProgress(fn func(done, total int)) {
	f.progress = fn
}

// Fit estimates the Cox model and produces horizon probabilities and
// expected adoption times for every customer. A fit that runs out of
// Newton iterations is still returned with Converged=false so the caller
// can surface the warning instead of losing the run.
func (f *Fitter) Fit(ctx context.Context, feats []model.CustomerFeatures) (*Result, error) {
	n := len(feats)
	if n == 0 {
		return nil, fmt.Errorf("%w: no feature rows", common.ErrEmptyDataset)
	}

	events := 0
	maxT := 0
	for _, ft := range feats {
		if ft.TimeToInvestment <= 0 {
			return nil, fmt.Errorf("%w: customer %d has non-positive duration %d",
				common.ErrDegenerateInput, ft.CustomerID, ft.TimeToInvestment)
		}
		if ft.AdoptedEver == 1 {
			events++
		}
		if ft.TimeToInvestment > maxT {
			maxT = ft.TimeToInvestment
		}
	}
	if events == 0 {
		return nil, fmt.Errorf("%w: no adoption events observed", common.ErrDegenerateInput)
	}

	f.logger.Info("fitting cox model",
		"customers", n,
		"events", events,
		"censored", n-events)

	cox, err := f.newtonFit(ctx, feats)
	if err != nil {
		return nil, err
	}
	if !cox.converged {
		f.logger.Warn("cox model did not converge",
			"iterations", cox.iterations,
			"max_iter", f.cfg.MaxIter)
	}

	baseline := cox.baselineHazard()

	estimates := make([]model.SurvivalEstimate, n)
	for i, ft := range feats {
		risk := math.Exp(cox.eta[i])
		e := model.SurvivalEstimate{CustomerID: ft.CustomerID}
		e.PAdopt3M = 1 - survivalAt(baseline, Horizons[0], risk)
		e.PAdopt6M = 1 - survivalAt(baseline, Horizons[1], risk)
		e.PAdopt9M = 1 - survivalAt(baseline, Horizons[2], risk)

		expected := 0.0
		for t := 1; t <= maxT; t++ {
			expected += survivalAt(baseline, t, risk)
		}
		e.ExpectedMonths = expected
		estimates[i] = e

		if f.progress != nil {
			f.progress(i+1, n)
		}
	}

	coefs := cox.coefficients(covariateNames())

	f.logger.Info("cox model fitted",
		"converged", cox.converged,
		"iterations", cox.iterations,
		"log_likelihood", fmt.Sprintf("%.2f", cox.loglik))

	return &Result{
		Coefficients: coefs,
		Estimates:    estimates,
		Converged:    cox.converged,
		Iterations:   cox.iterations,
		LogLik:       cox.loglik,
	}, nil
}

// hazardPoint is the cumulative baseline hazard at one event time.
type hazardPoint struct {
	time int
	cum  float64
}

// survivalAt evaluates S(t | risk) from the step-function baseline.
func survivalAt(baseline []hazardPoint, t int, risk float64) float64 {
	cum := 0.0
	for _, hp := range baseline {
		if hp.time > t {
			break
		}
		cum = hp.cum
	}
	return math.Exp(-cum * risk)
}
