package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/garimpo-ds/garimpo/internal/common"
)

// silhouette computes the mean silhouette coefficient over all points.
// It needs at least two non-empty clusters to be defined; points in
// singleton clusters score zero by convention.
func silhouette(X *mat.Dense, assignments []int, k int) (float64, error) {
	if k < 2 {
		return 0, fmt.Errorf("%w: silhouette undefined for k=%d", common.ErrDegenerateInput, k)
	}

	sizes := make([]int, k)
	for _, cl := range assignments {
		sizes[cl]++
	}
	nonEmpty := 0
	for _, s := range sizes {
		if s > 0 {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return 0, fmt.Errorf("%w: silhouette needs 2 non-empty clusters, have %d",
			common.ErrDegenerateInput, nonEmpty)
	}

	n, _ := X.Dims()
	total := 0.0
	sumDist := make([]float64, k)
	for i := 0; i < n; i++ {
		own := assignments[i]
		if sizes[own] <= 1 {
			continue
		}

		for cl := range sumDist {
			sumDist[cl] = 0
		}
		row := X.RawRowView(i)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			sumDist[assignments[j]] += math.Sqrt(sqDist(row, X.RawRowView(j)))
		}

		a := sumDist[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for cl := 0; cl < k; cl++ {
			if cl == own || sizes[cl] == 0 {
				continue
			}
			if m := sumDist[cl] / float64(sizes[cl]); m < b {
				b = m
			}
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}

	return total / float64(n), nil
}
