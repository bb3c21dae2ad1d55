package propensity

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
)

// minLeaf is the smallest number of training rows a tree leaf may hold.
const minLeaf = 5

// gbm is a gradient-boosted tree classifier for log loss: shallow
// regression trees fitted to the probability residuals, each leaf taking a
// single regularized Newton step.
type gbm struct {
	cfg      config.Propensity
	rng      *rand.Rand
	base     float64
	trees    []*treeNode
	progress func(done, total int)
}

func newGBM(cfg config.Propensity, seed int64) *gbm {
	return &gbm{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

func (g *gbm) Name() string { return "gbm" }

func (g *gbm) Fit(X *mat.Dense, y []float64) error {
	n, _ := X.Dims()
	if n != len(y) {
		return fmt.Errorf("%w: %d rows vs %d labels", common.ErrDegenerateInput, n, len(y))
	}

	rate := 0.0
	for _, v := range y {
		rate += v
	}
	rate /= float64(n)
	if rate <= 0 || rate >= 1 {
		return fmt.Errorf("%w: single-class training labels", common.ErrDegenerateInput)
	}
	g.base = math.Log(rate / (1 - rate))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = g.base
	}

	grad := make([]float64, n)
	hess := make([]float64, n)
	g.trees = g.trees[:0]

	for round := 0; round < g.cfg.Rounds; round++ {
		for i := 0; i < n; i++ {
			p := sigmoid(scores[i])
			grad[i] = y[i] - p
			hess[i] = p * (1 - p)
		}

		tree := g.grow(X, grad, hess, g.subsample(n), g.cfg.MaxDepth)
		g.trees = append(g.trees, tree)

		for i := 0; i < n; i++ {
			scores[i] += g.cfg.LearningRate * tree.predict(X.RawRowView(i))
		}

		if g.progress != nil {
			g.progress(round+1, g.cfg.Rounds)
		}
	}

	return nil
}

func (g *gbm) PredictProba(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		score := g.base
		for _, tree := range g.trees {
			score += g.cfg.LearningRate * tree.predict(row)
		}
		out[i] = sigmoid(score)
	}
	return out
}

// subsample draws the configured row fraction without replacement. Each
// boosting round sees a different subset, which decorrelates the trees.
func (g *gbm) subsample(n int) []int {
	if g.cfg.Subsample >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	m := int(float64(n) * g.cfg.Subsample)
	if m < 2*minLeaf {
		m = n
	}
	return g.rng.Perm(n)[:m]
}

// treeNode is one node of a regression tree. Leaves hold the Newton-step
// value; internal nodes route on feature <= threshold.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

func (t *treeNode) predict(row []float64) float64 {
	node := t
	for !node.leaf {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

func (g *gbm) grow(X *mat.Dense, grad, hess []float64, idx []int, depth int) *treeNode {
	sumG, sumH := sums(grad, hess, idx)

	if depth == 0 || len(idx) < 2*minLeaf {
		return g.leaf(sumG, sumH)
	}

	feature, threshold, ok := g.bestSplit(X, grad, hess, idx, sumG, sumH)
	if !ok {
		return g.leaf(sumG, sumH)
	}

	var left, right []int
	for _, i := range idx {
		if X.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      g.grow(X, grad, hess, left, depth-1),
		right:     g.grow(X, grad, hess, right, depth-1),
	}
}

func (g *gbm) leaf(sumG, sumH float64) *treeNode {
	return &treeNode{leaf: true, value: sumG / (sumH + g.cfg.L2)}
}

// bestSplit scans every feature for the threshold with the largest gain
// over keeping the node whole, requiring minLeaf rows on both sides.
func (g *gbm) bestSplit(X *mat.Dense, grad, hess []float64, idx []int, sumG, sumH float64) (int, float64, bool) {
	_, cols := X.Dims()
	lambda := g.cfg.L2
	parent := sumG * sumG / (sumH + lambda)

	bestGain := 1e-12
	bestFeature := -1
	bestThreshold := 0.0

	order := make([]int, len(idx))
	for j := 0; j < cols; j++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return X.At(order[a], j) < X.At(order[b], j)
		})

		leftG, leftH := 0.0, 0.0
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			leftG += grad[i]
			leftH += hess[i]

			v, next := X.At(i, j), X.At(order[pos+1], j)
			if v == next {
				continue
			}
			if pos+1 < minLeaf || len(order)-pos-1 < minLeaf {
				continue
			}

			rightG := sumG - leftG
			rightH := sumH - leftH
			gain := leftG*leftG/(leftH+lambda) + rightG*rightG/(rightH+lambda) - parent
			if gain > bestGain {
				bestGain = gain
				bestFeature = j
				bestThreshold = (v + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func sums(grad, hess []float64, idx []int) (float64, float64) {
	sumG, sumH := 0.0, 0.0
	for _, i := range idx {
		sumG += grad[i]
		sumH += hess[i]
	}
	return sumG, sumH
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
