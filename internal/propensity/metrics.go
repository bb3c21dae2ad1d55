package propensity

import (
	"math"
	"sort"
)

// AUC is the area under the ROC curve, computed from Mann-Whitney rank
// sums. Tied scores receive their average rank. Returns 0.5 when a class
// is absent, the no-information value.
func AUC(y, scores []float64) float64 {
	n := len(y)
	nPos := 0
	for _, v := range y {
		if v == 1 {
			nPos++
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	ranks := make([]float64, n)
	for start := 0; start < n; {
		end := start
		for end < n && scores[order[end]] == scores[order[start]] {
			end++
		}
		// Average rank for the tie group; ranks are 1-based.
		avg := float64(start+end+1) / 2.0
		for k := start; k < end; k++ {
			ranks[order[k]] = avg
		}
		start = end
	}

	sumPos := 0.0
	for i, v := range y {
		if v == 1 {
			sumPos += ranks[i]
		}
	}

	return (sumPos - float64(nPos)*float64(nPos+1)/2.0) / (float64(nPos) * float64(nNeg))
}

// KS is the Kolmogorov-Smirnov separation between the score distributions
// of the two classes: the largest gap between their cumulative shares when
// walking the scores in order. Tied scores move both curves together.
func KS(y, scores []float64) float64 {
	n := len(y)
	nPos, nNeg := 0, 0
	for _, v := range y {
		if v == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	maxGap := 0.0
	cumPos, cumNeg := 0, 0
	for start := 0; start < n; {
		end := start
		for end < n && scores[order[end]] == scores[order[start]] {
			if y[order[end]] == 1 {
				cumPos++
			} else {
				cumNeg++
			}
			end++
		}
		gap := math.Abs(float64(cumPos)/float64(nPos) - float64(cumNeg)/float64(nNeg))
		if gap > maxGap {
			maxGap = gap
		}
		start = end
	}

	return maxGap
}

// RecallAtFraction is the share of true positives found in the top given
// fraction of customers ranked by score, which is what a campaign with
// fixed outreach capacity captures.
func RecallAtFraction(y, scores []float64, fraction float64) float64 {
	n := len(y)
	nPos := 0
	for _, v := range y {
		if v == 1 {
			nPos++
		}
	}
	if nPos == 0 || n == 0 {
		return 0
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b]
	})

	top := int(fraction * float64(n))
	if top < 1 {
		top = 1
	}
	if top > n {
		top = n
	}

	hits := 0
	for _, i := range order[:top] {
		if y[i] == 1 {
			hits++
		}
	}
	return float64(hits) / float64(nPos)
}
