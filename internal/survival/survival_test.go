package survival

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// riskCohort simulates a panel where monthly adoption hazard is driven by
// m12_mean_pix: odd customers are heavy pix users with a much higher hazard.
func riskCohort(n int, seed int64) []model.CustomerFeatures {
	rng := rand.New(rand.NewSource(seed))
	feats := make([]model.CustomerFeatures, n)
	for i := range feats {
		pix := 4 + rng.Float64()*3
		hazard := 0.03
		if i%2 == 1 {
			pix = 28 + rng.Float64()*4
			hazard = 0.30
		}

		duration := 12
		event := 0
		for t := 1; t <= 12; t++ {
			if rng.Float64() < hazard {
				duration = t
				event = 1
				break
			}
		}

		first := 0
		if event == 1 {
			first = duration
		}

		feats[i] = model.CustomerFeatures{
			CustomerID:         i,
			Age:                22 + rng.Float64()*48,
			Income:             3000 + rng.Float64()*9000,
			M12MeanBalance:     2000 + rng.Float64()*6000,
			M12StdBalance:      100 + rng.Float64()*900,
			M12MeanCardSpend:   500 + rng.Float64()*2500,
			M12MeanUtilization: rng.Float64(),
			M12MeanPix:         pix,
			M12MeanDigital:     pix + 3 + rng.Float64()*6,
			M12LatePaymentRate: rng.Float64() * 0.3,
			M12BalanceSlope:    rng.Float64()*200 - 100,
			M3MeanBalance:      2000 + rng.Float64()*6000,
			M3StdBalance:       100 + rng.Float64()*900,
			M3MeanCardSpend:    500 + rng.Float64()*2500,
			M3MeanUtilization:  rng.Float64(),
			M3MeanPix:          3 + rng.Float64()*10,
			M3MeanDigital:      8 + rng.Float64()*10,
			M3LatePaymentRate:  rng.Float64() * 0.3,
			AdoptedEver:        event,
			TimeToInvestment:   duration,
			FirstAdoptMonth:    first,
			Cluster:            rng.Intn(4),
		}
	}
	return feats
}

func TestFitProducesValidEstimates(t *testing.T) {
	feats := riskCohort(240, 11)
	fitter := New(config.Default().Survival)

	res, err := fitter.Fit(context.Background(), feats)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !res.Converged {
		t.Errorf("expected convergence, stopped after %d iterations", res.Iterations)
	}
	if len(res.Estimates) != len(feats) {
		t.Fatalf("got %d estimates, want %d", len(res.Estimates), len(feats))
	}
	if len(res.Coefficients) != len(covariateNames()) {
		t.Fatalf("got %d coefficients, want %d", len(res.Coefficients), len(covariateNames()))
	}

	for _, e := range res.Estimates {
		for _, p := range []float64{e.PAdopt3M, e.PAdopt6M, e.PAdopt9M} {
			if p < 0 || p > 1 || math.IsNaN(p) {
				t.Fatalf("customer %d: probability %v out of range", e.CustomerID, p)
			}
		}
		if e.PAdopt3M > e.PAdopt6M || e.PAdopt6M > e.PAdopt9M {
			t.Fatalf("customer %d: adoption probability not monotone in horizon: %v %v %v",
				e.CustomerID, e.PAdopt3M, e.PAdopt6M, e.PAdopt9M)
		}
		if e.ExpectedMonths <= 0 || e.ExpectedMonths > 12 {
			t.Fatalf("customer %d: expected months %v outside (0, 12]", e.CustomerID, e.ExpectedMonths)
		}
	}

	for _, c := range res.Coefficients {
		if math.Abs(c.HazardRatio-math.Exp(c.Coef)) > 1e-9 {
			t.Errorf("%s: hazard ratio %v does not match exp(coef) %v", c.Feature, c.HazardRatio, math.Exp(c.Coef))
		}
		if c.SE < 0 {
			t.Errorf("%s: negative standard error %v", c.Feature, c.SE)
		}
		if c.P < 0 || c.P > 1 {
			t.Errorf("%s: p-value %v out of range", c.Feature, c.P)
		}
	}
}

func TestFitRecoversRiskDirection(t *testing.T) {
	feats := riskCohort(240, 5)
	fitter := New(config.Default().Survival)

	res, err := fitter.Fit(context.Background(), feats)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	var pixCoef *model.CoxCoefficient
	for i := range res.Coefficients {
		if res.Coefficients[i].Feature == "m12_mean_pix" {
			pixCoef = &res.Coefficients[i]
		}
	}
	if pixCoef == nil {
		t.Fatal("m12_mean_pix coefficient missing from summary")
	}
	if pixCoef.Coef <= 0 {
		t.Errorf("m12_mean_pix drives the hazard up, got coefficient %v", pixCoef.Coef)
	}
	if pixCoef.HazardRatio <= 1 {
		t.Errorf("expected hazard ratio above 1, got %v", pixCoef.HazardRatio)
	}

	var highSum, lowSum float64
	var highN, lowN int
	for i, e := range res.Estimates {
		if feats[i].M12MeanPix > 20 {
			highSum += e.PAdopt6M
			highN++
		} else {
			lowSum += e.PAdopt6M
			lowN++
		}
	}
	if highSum/float64(highN) <= lowSum/float64(lowN) {
		t.Errorf("heavy pix users should adopt sooner: high %.3f vs low %.3f",
			highSum/float64(highN), lowSum/float64(lowN))
	}
}

func TestFitDeterministic(t *testing.T) {
	feats := riskCohort(120, 3)
	fitter := New(config.Default().Survival)

	a, err := fitter.Fit(context.Background(), feats)
	if err != nil {
		t.Fatalf("first Fit: %v", err)
	}
	b, err := fitter.Fit(context.Background(), feats)
	if err != nil {
		t.Fatalf("second Fit: %v", err)
	}

	for i := range a.Coefficients {
		if a.Coefficients[i].Coef != b.Coefficients[i].Coef {
			t.Fatalf("coefficient %s differs between runs: %v vs %v",
				a.Coefficients[i].Feature, a.Coefficients[i].Coef, b.Coefficients[i].Coef)
		}
	}
	for i := range a.Estimates {
		if a.Estimates[i] != b.Estimates[i] {
			t.Fatalf("estimate for customer %d differs between runs", a.Estimates[i].CustomerID)
		}
	}
}

func TestFitErrors(t *testing.T) {
	valid := riskCohort(40, 9)

	zeroDuration := riskCohort(40, 9)
	zeroDuration[3].TimeToInvestment = 0

	allCensored := riskCohort(40, 9)
	for i := range allCensored {
		allCensored[i].AdoptedEver = 0
		allCensored[i].TimeToInvestment = 12
		allCensored[i].FirstAdoptMonth = 0
	}

	tests := []struct {
		name  string
		feats []model.CustomerFeatures
		want  error
	}{
		{"empty input", nil, common.ErrEmptyDataset},
		{"non-positive duration", zeroDuration, common.ErrDegenerateInput},
		{"no events", allCensored, common.ErrDegenerateInput},
	}

	fitter := New(config.Default().Survival)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fitter.Fit(context.Background(), tt.feats)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := fitter.Fit(context.Background(), valid); err != nil {
		t.Errorf("valid cohort should fit: %v", err)
	}
}

func TestFitContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fitter := New(config.Default().Survival)
	_, err := fitter.Fit(ctx, riskCohort(40, 1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSurvivalAtStepFunction(t *testing.T) {
	baseline := []hazardPoint{
		{time: 2, cum: 0.1},
		{time: 5, cum: 0.3},
	}

	tests := []struct {
		name string
		t    int
		risk float64
		want float64
	}{
		{"before first event", 1, 1, 1},
		{"at first event", 2, 1, math.Exp(-0.1)},
		{"between events", 4, 1, math.Exp(-0.1)},
		{"at second event", 5, 1, math.Exp(-0.3)},
		{"after last event", 9, 1, math.Exp(-0.3)},
		{"risk multiplies hazard", 5, 2, math.Exp(-0.6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := survivalAt(baseline, tt.t, tt.risk); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("survivalAt(%d, %v) = %v, want %v", tt.t, tt.risk, got, tt.want)
			}
		})
	}
}
