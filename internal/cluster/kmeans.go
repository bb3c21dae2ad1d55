package cluster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// standardize z-scores each column. Constant columns keep their centered
// zeros instead of dividing by a zero deviation.
func standardize(X *mat.Dense) *mat.Dense {
	n, d := X.Dims()
	out := mat.NewDense(n, d, nil)

	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, X)
		mean := stat.Mean(col, nil)
		std := stat.StdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for i := 0; i < n; i++ {
			out.Set(i, j, (col[i]-mean)/std)
		}
	}
	return out
}

// fit is one converged K-Means run.
type fit struct {
	assignments []int
	centroids   [][]float64
	wss         float64
}

// lloyd runs one K-Means fit: k-means++ seeding followed by Lloyd
// iterations until assignments stop changing or the iteration cap hits.
func (c *Clusterer) lloyd(X *mat.Dense) *fit {
	n, d := X.Dims()
	k := c.cfg.K

	centroids := c.seedCentroids(X)
	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}

	for iter := 0; iter < c.cfg.MaxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			row := X.RawRowView(i)
			nearest := nearestCentroid(row, centroids)
			if nearest != assignments[i] {
				assignments[i] = nearest
				changed = true
			}
		}
		if !changed {
			break
		}

		// Recompute centroids as member means.
		counts := make([]int, k)
		next := make([][]float64, k)
		for j := range next {
			next[j] = make([]float64, d)
		}
		for i := 0; i < n; i++ {
			cl := assignments[i]
			counts[cl]++
			row := X.RawRowView(i)
			for j, v := range row {
				next[cl][j] += v
			}
		}
		for cl := 0; cl < k; cl++ {
			if counts[cl] == 0 {
				// An empty cluster grabs the point farthest from its
				// current centroid so no cluster dies mid-fit.
				far := farthestPoint(X, assignments, centroids)
				copy(next[cl], X.RawRowView(far))
				assignments[far] = cl
				continue
			}
			for j := range next[cl] {
				next[cl][j] /= float64(counts[cl])
			}
		}
		centroids = next
	}

	wss := 0.0
	for i := 0; i < n; i++ {
		wss += sqDist(X.RawRowView(i), centroids[assignments[i]])
	}

	return &fit{assignments: assignments, centroids: centroids, wss: wss}
}

// seedCentroids picks initial centroids with k-means++: the first uniformly,
// the rest proportional to squared distance from the nearest chosen one.
func (c *Clusterer) seedCentroids(X *mat.Dense) [][]float64 {
	n, _ := X.Dims()
	k := c.cfg.K

	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneRow(X, c.rng.Intn(n)))

	d2 := make([]float64, n)
	for len(centroids) < k {
		total := 0.0
		for i := 0; i < n; i++ {
			row := X.RawRowView(i)
			best := math.Inf(1)
			for _, cen := range centroids {
				if d := sqDist(row, cen); d < best {
					best = d
				}
			}
			d2[i] = best
			total += best
		}

		if total == 0 {
			// Every point coincides with a centroid already.
			centroids = append(centroids, cloneRow(X, c.rng.Intn(n)))
			continue
		}
		centroids = append(centroids, cloneRow(X, sampleProportional(c.rng, d2, total)))
	}
	return centroids
}

func sampleProportional(rng *rand.Rand, weights []float64, total float64) int {
	target := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for cl, cen := range centroids {
		if d := sqDist(row, cen); d < bestDist {
			bestDist = d
			best = cl
		}
	}
	return best
}

func farthestPoint(X *mat.Dense, assignments []int, centroids [][]float64) int {
	n, _ := X.Dims()
	far := 0
	farDist := -1.0
	for i := 0; i < n; i++ {
		d := sqDist(X.RawRowView(i), centroids[assignments[i]])
		if d > farDist {
			farDist = d
			far = i
		}
	}
	return far
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneRow(X *mat.Dense, i int) []float64 {
	row := X.RawRowView(i)
	out := make([]float64, len(row))
	copy(out, row)
	return out
}
