// Package synth generates the synthetic monthly bank panel the rest of the
// pipeline runs on. Generation is fully deterministic for a given seed: a
// single random stream is consumed customer by customer, month by month, so
// the same configuration always yields byte-identical panels.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// Bounds applied to the sampled quantities.
const (
	minIncome      = 1500.0
	maxIncome      = 50000.0
	maxBalance     = 500000.0
	minCreditLimit = 1000.0
	maxCreditLimit = 40000.0
	minUtilization = 0.01
	maxUtilization = 0.98
	minPixRate     = 1.0
	maxPixRate     = 40.0
	minAppRate     = 1.0
	maxAppRate     = 50.0
	minAdoptProb   = 0.001
	maxAdoptProb   = 0.15
)

// Generator produces the synthetic panel.
type Generator struct {
	cfg      config.Generator
	rng      *rand.Rand
	logger   *slog.Logger
	progress func(done, total int)
}

// New creates a generator with its own random stream seeded from seed.
func New(cfg config.Generator, seed int64) *Generator {
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: slog.Default().With("component", "synth"),
	}
}

// OnProgress registers a callback invoked after each generated customer.
// Progress reporting never changes the random stream.
func (g *Generator) OnProgress(fn func(done, total int)) {
	g.progress = fn
}

// customer holds the fixed attributes sampled once per customer. The latent
// risk appetite drives balances, utilization and adoption but never reaches
// the panel: downstream models must recover it from behavior.
type customer struct {
	id     int
	age    int
	income float64
	risk   float64
}

// Panel generates one row per (customer, month) pair.
func (g *Generator) Panel(ctx context.Context) ([]model.PanelRow, error) {
	if g.cfg.Customers <= 0 || g.cfg.Months < 2 {
		return nil, fmt.Errorf("%w: need at least 1 customer and 2 months", common.ErrInvalidConfig)
	}

	g.logger.Info("generating panel",
		"customers", g.cfg.Customers,
		"months", g.cfg.Months)

	rows := make([]model.PanelRow, 0, g.cfg.Customers*g.cfg.Months)
	adopted := 0
	for id := 1; id <= g.cfg.Customers; id++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		c := g.sampleCustomer(id)
		months := g.customerMonths(c)
		if months[0].EventInvestment == 1 {
			adopted++
		}
		rows = append(rows, months...)

		if g.progress != nil {
			g.progress(id, g.cfg.Customers)
		}
	}

	g.logger.Info("panel generated",
		"rows", len(rows),
		"adoption_rate", fmt.Sprintf("%.3f", float64(adopted)/float64(g.cfg.Customers)))
	return rows, nil
}

func (g *Generator) sampleCustomer(id int) customer {
	age := 22 + g.rng.Intn(48)
	// Income rises with age on top of a lognormal base.
	ageFactor := 0.85 + float64(age-22)/48.0*0.35
	income := clip(g.lognormal(9.0, 0.45)*ageFactor, minIncome, maxIncome)

	return customer{
		id:     id,
		age:    age,
		income: income,
		risk:   g.rng.NormFloat64(),
	}
}

// customerMonths simulates the monthly behavior of one customer, including
// the first-adoption process for the investment product.
func (g *Generator) customerMonths(c customer) []model.PanelRow {
	months := g.cfg.Months
	rows := make([]model.PanelRow, 0, months)
	adopted := false
	firstAdopt := 0

	for m := 1; m <= months; m++ {
		season := math.Sin(2 * math.Pi * float64(m-1) / 12.0)

		balance := clip(
			g.lognormal(0.9*math.Log(c.income)-0.25*c.risk+0.2*season, 0.35),
			0, maxBalance)

		cardSpend := 0.06*c.income + 0.02*math.Sqrt(balance) +
			120*(season+1) + g.rng.NormFloat64()*250
		if cardSpend < 0 {
			cardSpend = 0
		}

		pixRate := clip(10+float64(60-c.age)*0.25+2.5*(season+1)+g.rng.NormFloat64(),
			minPixRate, maxPixRate)
		pixCount := g.poisson(pixRate)

		appRate := clip(8+float64(60-c.age)*0.3+3*(season+1), minAppRate, maxAppRate)
		appSessions := g.poisson(appRate)

		creditLimit := clip(0.35*c.income+g.rng.NormFloat64()*800,
			minCreditLimit, maxCreditLimit)

		utilization := clip(
			0.25+0.18*sigmoid(c.risk)+0.08*cardSpend/(creditLimit+1e-6)+
				g.rng.NormFloat64()*0.06,
			minUtilization, maxUtilization)

		lateProb := sigmoid(-2.2 + 1.2*c.risk + 2.0*(utilization-0.5) +
			g.rng.NormFloat64()*0.2)
		late := 0
		if g.rng.Float64() < lateProb {
			late = 1
		}

		usesCard := 0
		if cardSpend > 200 {
			usesCard = 1
		}
		usesCredit := 0
		if utilization > 0.45 || late == 1 {
			usesCredit = 1
		}

		digital := float64(pixCount) + 0.5*float64(appSessions)

		if !adopted {
			monthEffect := 0.6 * float64(m-1) / float64(months-1)
			adoptProb := clip(
				0.04*sigmoid(-3+0.55*math.Log(c.income)+0.25*math.Log(balance+1)-
					0.75*c.risk+monthEffect+g.rng.NormFloat64()*0.15),
				minAdoptProb, maxAdoptProb)
			if g.rng.Float64() < adoptProb {
				adopted = true
				firstAdopt = m
			}
		}

		adoptFlag := 0
		if adopted {
			adoptFlag = 1
		}

		rows = append(rows, model.PanelRow{
			CustomerID:      c.id,
			Month:           m,
			Age:             c.age,
			Income:          round2(c.income),
			Balance:         round2(balance),
			CardSpend:       round2(cardSpend),
			PixCount:        pixCount,
			AppSessions:     appSessions,
			CreditLimit:     round2(creditLimit),
			Utilization:     round4(utilization),
			LatePayment:     late,
			UsesCard:        usesCard,
			UsesCredit:      usesCredit,
			DigitalActivity: round2(digital),
			AdoptInvestment: adoptFlag,
		})
	}

	// Right-censor the adoption time at the end of the panel.
	timeTo := months
	event := 0
	if adopted {
		timeTo = firstAdopt
		event = 1
	}
	for i := range rows {
		rows[i].TimeToInvestment = timeTo
		rows[i].EventInvestment = event
		rows[i].FirstAdoptMonth = firstAdopt
	}

	return rows
}

// lognormal samples exp(N(mu, sigma)).
func (g *Generator) lognormal(mu, sigma float64) float64 {
	return math.Exp(mu + sigma*g.rng.NormFloat64())
}

// poisson samples a Poisson count by multiplying uniforms until the product
// drops below e^-lambda. Rates here stay below ~50, well inside the range
// where the product stays representable.
func (g *Generator) poisson(lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= g.rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
