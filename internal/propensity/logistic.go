package propensity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
)

const (
	irlsMaxIter = 100
	irlsTol     = 1e-8
)

// logistic is a ridge-penalized logistic regression fitted with iteratively
// reweighted least squares. Features are standardized internally so the
// penalty treats them evenly; the intercept is unpenalized.
type logistic struct {
	cfg   config.Propensity
	means []float64
	stds  []float64
	beta  []float64 // beta[0] is the intercept
}

func newLogistic(cfg config.Propensity) *logistic {
	return &logistic{cfg: cfg}
}

func (l *logistic) Name() string { return "logistic" }

func (l *logistic) Fit(X *mat.Dense, y []float64) error {
	n, d := X.Dims()
	if n != len(y) {
		return fmt.Errorf("%w: %d rows vs %d labels", common.ErrDegenerateInput, n, len(y))
	}

	Z := l.standardizeFit(X)
	p := d + 1
	l.beta = make([]float64, p)

	eta := make([]float64, n)
	w := make([]float64, n)
	resid := make([]float64, n)

	for iter := 0; iter < irlsMaxIter; iter++ {
		for i := 0; i < n; i++ {
			eta[i] = dot(Z.RawRowView(i), l.beta)
			mu := sigmoid(eta[i])
			w[i] = math.Max(mu*(1-mu), 1e-6)
			resid[i] = y[i] - mu
		}

		// Gradient and Hessian of the penalized log likelihood.
		g := make([]float64, p)
		H := mat.NewDense(p, p, nil)
		for i := 0; i < n; i++ {
			row := Z.RawRowView(i)
			for a := 0; a < p; a++ {
				g[a] += row[a] * resid[i]
				for b := a; b < p; b++ {
					H.Set(a, b, H.At(a, b)+w[i]*row[a]*row[b])
				}
			}
		}
		for a := 1; a < p; a++ {
			g[a] -= l.cfg.L2 * l.beta[a]
			H.Set(a, a, H.At(a, a)+l.cfg.L2)
		}
		for a := 0; a < p; a++ {
			for b := 0; b < a; b++ {
				H.Set(a, b, H.At(b, a))
			}
		}

		var delta mat.VecDense
		if err := delta.SolveVec(H, mat.NewVecDense(p, g)); err != nil {
			return fmt.Errorf("%w: singular IRLS system: %v", common.ErrDegenerateInput, err)
		}

		maxStep := 0.0
		for a := 0; a < p; a++ {
			step := delta.AtVec(a)
			l.beta[a] += step
			if s := math.Abs(step); s > maxStep {
				maxStep = s
			}
		}
		if maxStep < irlsTol {
			return nil
		}
	}

	return fmt.Errorf("%w: logistic IRLS after %d iterations", common.ErrNotConverged, irlsMaxIter)
}

func (l *logistic) PredictProba(X *mat.Dense) []float64 {
	n, d := X.Dims()
	out := make([]float64, n)
	z := make([]float64, d+1)
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		z[0] = 1
		for j := 0; j < d; j++ {
			z[j+1] = (row[j] - l.means[j]) / l.stds[j]
		}
		out[i] = sigmoid(dot(z, l.beta))
	}
	return out
}

// standardizeFit learns per-column means and deviations and returns the
// standardized matrix with a leading intercept column.
func (l *logistic) standardizeFit(X *mat.Dense) *mat.Dense {
	n, d := X.Dims()
	l.means = make([]float64, d)
	l.stds = make([]float64, d)

	col := make([]float64, n)
	Z := mat.NewDense(n, d+1, nil)
	for j := 0; j < d; j++ {
		mat.Col(col, j, X)
		l.means[j] = stat.Mean(col, nil)
		l.stds[j] = stat.StdDev(col, nil)
		if l.stds[j] == 0 || math.IsNaN(l.stds[j]) {
			l.stds[j] = 1
		}
		for i := 0; i < n; i++ {
			Z.Set(i, j+1, (col[i]-l.means[j])/l.stds[j])
		}
	}
	for i := 0; i < n; i++ {
		Z.Set(i, 0, 1)
	}
	return Z
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
