// Package markov estimates month-to-month movement between behavioral
// engagement states. Customers are bucketed each month into Low, Medium or
// High digital engagement by population terciles, transitions between
// consecutive months are counted, and the row-normalized matrix yields a
// stationary distribution plus a per-customer downgrade risk.
package markov

import (
	"fmt"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// Thresholds are the digital-activity tercile cut points that define the
// state of a customer-month.
type Thresholds struct {
	LowMax    float64
	MediumMax float64
}

// StateFor buckets one digital-activity score.
func (t Thresholds) StateFor(score float64) model.BehaviorState {
	switch {
	case score <= t.LowMax:
		return model.StateLow
	case score <= t.MediumMax:
		return model.StateMedium
	default:
		return model.StateHigh
	}
}

// Analyzer estimates the behavioral chain.
type Analyzer struct {
	cfg    config.Markov
	logger *slog.Logger
}

// New creates an Analyzer.
func New(cfg config.Markov) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		logger: slog.Default().With("component", "markov"),
	}
}

// States assigns every customer-month to an engagement state using
// population terciles of the digital-activity score. The output is sorted
// by customer then month.
func States(rows []model.PanelRow) ([]model.CustomerState, Thresholds, error) {
	if len(rows) == 0 {
		return nil, Thresholds{}, fmt.Errorf("%w: empty panel", common.ErrEmptyDataset)
	}

	scores := make([]float64, len(rows))
	for i, r := range rows {
		scores[i] = r.DigitalActivity
	}
	sort.Float64s(scores)

	t := Thresholds{
		LowMax:    stat.Quantile(1.0/3.0, stat.Empirical, scores, nil),
		MediumMax: stat.Quantile(2.0/3.0, stat.Empirical, scores, nil),
	}

	states := make([]model.CustomerState, len(rows))
	for i, r := range rows {
		states[i] = model.CustomerState{
			CustomerID: r.CustomerID,
			Month:      r.Month,
			State:      t.StateFor(r.DigitalActivity),
		}
	}
	sort.Slice(states, func(i, j int) bool {
		if states[i].CustomerID != states[j].CustomerID {
			return states[i].CustomerID < states[j].CustomerID
		}
		return states[i].Month < states[j].Month
	})

	return states, t, nil
}

// Transitions counts state changes between consecutive months of the same
// customer and row-normalizes the counts into a transition matrix. A state
// never observed as an origin gets a uniform row so the matrix stays
// row-stochastic.
func (a *Analyzer) Transitions(states []model.CustomerState) ([][]int, [][]float64, error) {
	if len(states) == 0 {
		return nil, nil, fmt.Errorf("%w: no states", common.ErrEmptyDataset)
	}

	bySeq := make([]model.CustomerState, len(states))
	copy(bySeq, states)
	sort.Slice(bySeq, func(i, j int) bool {
		if bySeq[i].CustomerID != bySeq[j].CustomerID {
			return bySeq[i].CustomerID < bySeq[j].CustomerID
		}
		return bySeq[i].Month < bySeq[j].Month
	})

	counts := make([][]int, model.NumStates)
	for i := range counts {
		counts[i] = make([]int, model.NumStates)
	}

	observed := 0
	for i := 1; i < len(bySeq); i++ {
		prev, cur := bySeq[i-1], bySeq[i]
		if prev.CustomerID != cur.CustomerID || cur.Month != prev.Month+1 {
			continue
		}
		counts[prev.State][cur.State]++
		observed++
	}
	if observed == 0 {
		return nil, nil, fmt.Errorf("%w: no consecutive-month transitions observed",
			common.ErrDegenerateInput)
	}

	matrix := make([][]float64, model.NumStates)
	for i := range matrix {
		matrix[i] = make([]float64, model.NumStates)
		total := 0
		for _, c := range counts[i] {
			total += c
		}
		if total == 0 {
			// Unobserved origin state: assume no information, stay
			// row-stochastic with a uniform row.
			for j := range matrix[i] {
				matrix[i][j] = 1.0 / float64(model.NumStates)
			}
			a.logger.Warn("state has no observed transitions, using uniform row",
				"state", model.BehaviorState(i).String())
			continue
		}
		for j, c := range counts[i] {
			matrix[i][j] = float64(c) / float64(total)
		}
	}

	return counts, matrix, nil
}

// Stationary finds the long-run state distribution by power iteration from
// a uniform start, reporting how many iterations the L1 tolerance took. The
// returned distribution always sums to one; the error reports failure to
// reach the tolerance within the iteration cap.
func (a *Analyzer) Stationary(matrix [][]float64) ([]float64, int, error) {
	n := len(matrix)

	flat := make([]float64, 0, n*n)
	for _, row := range matrix {
		flat = append(flat, row...)
	}
	p := mat.NewDense(n, n, flat)

	pi := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		pi.SetVec(i, 1.0/float64(n))
	}

	next := mat.NewVecDense(n, nil)
	for iter := 1; iter <= a.cfg.MaxIter; iter++ {
		// pi_next = pi P, i.e. P^T pi as a column vector.
		next.MulVec(p.T(), pi)

		diff := 0.0
		for i := 0; i < n; i++ {
			diff += abs(next.AtVec(i) - pi.AtVec(i))
		}
		pi, next = next, pi

		if diff < a.cfg.Tolerance {
			return vecSlice(pi), iter, nil
		}
	}

	return vecSlice(pi), a.cfg.MaxIter, fmt.Errorf("%w: stationary distribution after %d iterations",
		common.ErrNotConverged, a.cfg.MaxIter)
}

func vecSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// DowngradeRisk is the probability of moving to a strictly lower engagement
// state in the next month, given the current one.
func DowngradeRisk(matrix [][]float64, state model.BehaviorState) float64 {
	risk := 0.0
	for j := 0; j < int(state); j++ {
		risk += matrix[state][j]
	}
	return risk
}

// LastStates returns each customer's state in their final observed month.
func LastStates(states []model.CustomerState) map[int]model.BehaviorState {
	lastMonth := make(map[int]int)
	last := make(map[int]model.BehaviorState)
	for _, s := range states {
		if m, ok := lastMonth[s.CustomerID]; !ok || s.Month > m {
			lastMonth[s.CustomerID] = s.Month
			last[s.CustomerID] = s.State
		}
	}
	return last
}

// Summarize reduces the chain to one row per customer: the last observed
// state and the downgrade risk implied by the transition matrix from that
// state. Output is sorted by customer id.
func Summarize(states []model.CustomerState, matrix [][]float64) []model.StateSummary {
	last := LastStates(states)

	summaries := make([]model.StateSummary, 0, len(last))
	for id, state := range last {
		summaries = append(summaries, model.StateSummary{
			CustomerID:    id,
			State:         state,
			DowngradeRisk: DowngradeRisk(matrix, state),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CustomerID < summaries[j].CustomerID
	})
	return summaries
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
