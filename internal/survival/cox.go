package survival

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/model"
)

const maxStepHalvings = 10

// coxFit holds the working state of one Newton-Raphson maximization of the
// Efron partial likelihood.
type coxFit struct {
	cfg config.Survival

	X      *mat.Dense // standardized covariates
	means  []float64
	stds   []float64
	events []bool

	timesDesc []int         // distinct durations, largest first
	byTime    map[int][]int // duration -> customer indices
	eventsAt  map[int][]int // duration -> indices with an observed event

	beta       []float64
	se         []float64
	eta        []float64
	loglik     float64
	converged  bool
	iterations int
}

func (f *Fitter) newtonFit(ctx context.Context, feats []model.CustomerFeatures) (*coxFit, error) {
	n := len(feats)
	d := len(covariateNames())

	c := &coxFit{
		cfg:      f.cfg,
		X:        mat.NewDense(n, d, nil),
		events:   make([]bool, n),
		byTime:   make(map[int][]int),
		eventsAt: make(map[int][]int),
	}

	for i, ft := range feats {
		c.X.SetRow(i, covariateVector(ft))
		c.events[i] = ft.AdoptedEver == 1
		t := ft.TimeToInvestment
		c.byTime[t] = append(c.byTime[t], i)
		if c.events[i] {
			c.eventsAt[t] = append(c.eventsAt[t], i)
		}
	}
	for t := range c.byTime {
		c.timesDesc = append(c.timesDesc, t)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(c.timesDesc)))

	c.standardize()
	c.beta = make([]float64, d)

	prevLL := c.partialLogLik(c.beta)
	for iter := 1; iter <= f.cfg.MaxIter; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		c.iterations = iter

		_, grad, info := c.stats(c.beta)

		var delta mat.VecDense
		if err := delta.SolveVec(info, mat.NewVecDense(d, grad)); err != nil {
			return nil, fmt.Errorf("%w: singular information matrix: %v",
				common.ErrDegenerateInput, err)
		}

		// Take the Newton step, halving until the likelihood improves.
		step := 1.0
		candidate := make([]float64, d)
		var candLL float64
		for halving := 0; ; halving++ {
			for j := 0; j < d; j++ {
				candidate[j] = c.beta[j] + step*delta.AtVec(j)
			}
			candLL = c.partialLogLik(candidate)
			if candLL >= prevLL || halving >= maxStepHalvings {
				break
			}
			step /= 2
		}

		maxMove := 0.0
		for j := 0; j < d; j++ {
			if m := math.Abs(candidate[j] - c.beta[j]); m > maxMove {
				maxMove = m
			}
		}
		copy(c.beta, candidate)

		if maxMove < f.cfg.Tolerance || math.Abs(candLL-prevLL) < f.cfg.Tolerance {
			c.converged = true
			prevLL = candLL
			break
		}
		prevLL = candLL
	}
	c.loglik = prevLL

	// Final pass at the optimum for predictions and standard errors.
	ll, _, info := c.stats(c.beta)
	c.loglik = ll
	if err := c.standardErrors(info); err != nil {
		return nil, err
	}

	c.eta = make([]float64, n)
	for i := 0; i < n; i++ {
		c.eta[i] = dot(c.X.RawRowView(i), c.beta)
	}

	return c, nil
}

// standardize centers and scales each covariate column in place. Constant
// columns are centered only.
func (c *coxFit) standardize() {
	n, d := c.X.Dims()
	c.means = make([]float64, d)
	c.stds = make([]float64, d)

	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, c.X)
		c.means[j] = stat.Mean(col, nil)
		c.stds[j] = stat.StdDev(col, nil)
		if c.stds[j] == 0 || math.IsNaN(c.stds[j]) {
			c.stds[j] = 1
		}
		for i := 0; i < n; i++ {
			c.X.Set(i, j, (col[i]-c.means[j])/c.stds[j])
		}
	}
}

// partialLogLik evaluates the ridge-penalized Efron partial log likelihood.
func (c *coxFit) partialLogLik(beta []float64) float64 {
	n, _ := c.X.Dims()

	eta := make([]float64, n)
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		eta[i] = dot(c.X.RawRowView(i), beta)
		w[i] = math.Exp(eta[i])
	}

	ll := 0.0
	sumRisk := 0.0
	for _, t := range c.timesDesc {
		for _, i := range c.byTime[t] {
			sumRisk += w[i]
		}

		deaths := c.eventsAt[t]
		if len(deaths) == 0 {
			continue
		}

		sumDead := 0.0
		for _, i := range deaths {
			sumDead += w[i]
			ll += eta[i]
		}

		dcount := float64(len(deaths))
		for l := 0; l < len(deaths); l++ {
			frac := float64(l) / dcount
			ll -= math.Log(sumRisk - frac*sumDead)
		}
	}

	for _, b := range beta {
		ll -= 0.5 * c.cfg.Penalizer * b * b
	}
	return ll
}

// stats evaluates the penalized likelihood together with its gradient and
// the (negated) Hessian at beta, walking the risk sets from the longest
// duration down so each customer enters the running sums exactly once.
func (c *coxFit) stats(beta []float64) (float64, []float64, *mat.Dense) {
	n, d := c.X.Dims()

	eta := make([]float64, n)
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		eta[i] = dot(c.X.RawRowView(i), beta)
		w[i] = math.Exp(eta[i])
	}

	ll := 0.0
	grad := make([]float64, d)
	info := mat.NewDense(d, d, nil)

	sumRisk := 0.0
	v1 := make([]float64, d)
	v2 := mat.NewDense(d, d, nil)

	w1Dead := make([]float64, d)
	w2Dead := mat.NewDense(d, d, nil)
	u := make([]float64, d)

	for _, t := range c.timesDesc {
		for _, i := range c.byTime[t] {
			row := c.X.RawRowView(i)
			sumRisk += w[i]
			for a := 0; a < d; a++ {
				v1[a] += w[i] * row[a]
				for b := a; b < d; b++ {
					v2.Set(a, b, v2.At(a, b)+w[i]*row[a]*row[b])
				}
			}
		}

		deaths := c.eventsAt[t]
		if len(deaths) == 0 {
			continue
		}

		sumDead := 0.0
		for a := range w1Dead {
			w1Dead[a] = 0
		}
		w2Dead.Zero()
		for _, i := range deaths {
			row := c.X.RawRowView(i)
			sumDead += w[i]
			ll += eta[i]
			for a := 0; a < d; a++ {
				grad[a] += row[a]
				w1Dead[a] += w[i] * row[a]
				for b := a; b < d; b++ {
					w2Dead.Set(a, b, w2Dead.At(a, b)+w[i]*row[a]*row[b])
				}
			}
		}

		dcount := float64(len(deaths))
		for l := 0; l < len(deaths); l++ {
			frac := float64(l) / dcount
			phi := sumRisk - frac*sumDead
			ll -= math.Log(phi)

			for a := 0; a < d; a++ {
				u[a] = (v1[a] - frac*w1Dead[a]) / phi
				grad[a] -= u[a]
			}
			for a := 0; a < d; a++ {
				for b := a; b < d; b++ {
					z2 := (v2.At(a, b) - frac*w2Dead.At(a, b)) / phi
					info.Set(a, b, info.At(a, b)+z2-u[a]*u[b])
				}
			}
		}
	}

	for _, b := range beta {
		ll -= 0.5 * c.cfg.Penalizer * b * b
	}
	for a := 0; a < d; a++ {
		grad[a] -= c.cfg.Penalizer * beta[a]
		info.Set(a, a, info.At(a, a)+c.cfg.Penalizer)
		for b := 0; b < a; b++ {
			info.Set(a, b, info.At(b, a))
		}
	}

	return ll, grad, info
}

// standardErrors inverts the information matrix at the optimum.
func (c *coxFit) standardErrors(info *mat.Dense) error {
	_, d := c.X.Dims()

	var inv mat.Dense
	if err := inv.Inverse(info); err != nil {
		return fmt.Errorf("%w: information matrix not invertible: %v",
			common.ErrDegenerateInput, err)
	}

	c.se = make([]float64, d)
	for j := 0; j < d; j++ {
		v := inv.At(j, j)
		if v < 0 {
			v = 0
		}
		c.se[j] = math.Sqrt(v)
	}
	return nil
}

// baselineHazard accumulates the cumulative baseline hazard at each event
// time, using the same tie adjustment as the likelihood.
func (c *coxFit) baselineHazard() []hazardPoint {
	w := make([]float64, len(c.eta))
	for i, e := range c.eta {
		w[i] = math.Exp(e)
	}

	// Walk descending to build risk sums, record per-time increments.
	increments := make(map[int]float64)
	sumRisk := 0.0
	for _, t := range c.timesDesc {
		for _, i := range c.byTime[t] {
			sumRisk += w[i]
		}
		deaths := c.eventsAt[t]
		if len(deaths) == 0 {
			continue
		}
		sumDead := 0.0
		for _, i := range deaths {
			sumDead += w[i]
		}
		dcount := float64(len(deaths))
		inc := 0.0
		for l := 0; l < len(deaths); l++ {
			inc += 1.0 / (sumRisk - (float64(l)/dcount)*sumDead)
		}
		increments[t] = inc
	}

	times := make([]int, 0, len(increments))
	for t := range increments {
		times = append(times, t)
	}
	sort.Ints(times)

	baseline := make([]hazardPoint, 0, len(times))
	cum := 0.0
	for _, t := range times {
		cum += increments[t]
		baseline = append(baseline, hazardPoint{time: t, cum: cum})
	}
	return baseline
}

// coefficients reports the fit on the original covariate scale.
func (c *coxFit) coefficients(names []string) []model.CoxCoefficient {
	coefs := make([]model.CoxCoefficient, len(names))
	for j, name := range names {
		coef := c.beta[j] / c.stds[j]
		se := c.se[j] / c.stds[j]
		z := 0.0
		if c.se[j] > 0 {
			z = c.beta[j] / c.se[j]
		}
		coefs[j] = model.CoxCoefficient{
			Feature:     name,
			Coef:        coef,
			HazardRatio: math.Exp(coef),
			SE:          se,
			Z:           z,
			P:           pValue(z),
		}
	}
	return coefs
}

// pValue is the two-sided normal tail probability for a Wald statistic.
func pValue(z float64) float64 {
	return math.Erfc(math.Abs(z) / math.Sqrt2)
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
