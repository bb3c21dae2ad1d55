package propensity

import (
	"math"
	"testing"
)

func TestAUC(t *testing.T) {
	tests := []struct {
		name   string
		y      []float64
		scores []float64
		want   float64
	}{
		{
			name:   "perfect ranking",
			y:      []float64{0, 0, 1, 1},
			scores: []float64{0.1, 0.2, 0.8, 0.9},
			want:   1.0,
		},
		{
			name:   "inverted ranking",
			y:      []float64{1, 1, 0, 0},
			scores: []float64{0.1, 0.2, 0.8, 0.9},
			want:   0.0,
		},
		{
			name:   "all scores tied",
			y:      []float64{0, 1, 0, 1},
			scores: []float64{0.5, 0.5, 0.5, 0.5},
			want:   0.5,
		},
		{
			name:   "single class",
			y:      []float64{1, 1, 1},
			scores: []float64{0.1, 0.5, 0.9},
			want:   0.5,
		},
		{
			name:   "partial separation",
			y:      []float64{0, 1, 0, 1},
			scores: []float64{0.1, 0.4, 0.5, 0.8},
			// 3 of 4 positive-negative pairs correctly ordered.
			want: 0.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AUC(tt.y, tt.scores); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AUC() = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestKS(t *testing.T) {
	tests := []struct {
		name   string
		y      []float64
		scores []float64
		want   float64
	}{
		{
			name:   "perfect separation",
			y:      []float64{0, 0, 1, 1},
			scores: []float64{0.1, 0.2, 0.8, 0.9},
			want:   1.0,
		},
		{
			name:   "no separation with ties",
			y:      []float64{0, 1, 0, 1},
			scores: []float64{0.5, 0.5, 0.5, 0.5},
			want:   0.0,
		},
		{
			name:   "single class",
			y:      []float64{0, 0},
			scores: []float64{0.2, 0.4},
			want:   0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KS(tt.y, tt.scores); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("KS() = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestRecallAtFraction(t *testing.T) {
	// Ten customers, three positives, ranked by score: positives sit at
	// ranks 1, 2 and 6.
	y := []float64{1, 1, 0, 0, 0, 1, 0, 0, 0, 0}
	scores := []float64{0.95, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1}

	if got := RecallAtFraction(y, scores, 0.10); math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("Recall@10%% = %g, want 1/3", got)
	}
	if got := RecallAtFraction(y, scores, 0.20); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("Recall@20%% = %g, want 2/3", got)
	}
	if got := RecallAtFraction(y, scores, 1.0); got != 1.0 {
		t.Errorf("Recall@100%% = %g, want 1", got)
	}
}

func TestRecallMonotoneInFraction(t *testing.T) {
	y := []float64{1, 0, 1, 0, 0, 1, 0, 1, 0, 0, 1, 0}
	scores := []float64{0.9, 0.85, 0.8, 0.75, 0.7, 0.65, 0.6, 0.55, 0.5, 0.45, 0.4, 0.35}

	r10 := RecallAtFraction(y, scores, 0.10)
	r20 := RecallAtFraction(y, scores, 0.20)
	if r10 > r20 {
		t.Errorf("Recall@10%% = %g exceeds Recall@20%% = %g", r10, r20)
	}
}
