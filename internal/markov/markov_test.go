package markov

import (
	"errors"
	"math"
	"testing"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/model"
)

func testMarkovConfig() config.Markov {
	return config.Markov{Tolerance: 1e-10, MaxIter: 10000}
}

func digitalRow(id, month int, digital float64) model.PanelRow {
	return model.PanelRow{CustomerID: id, Month: month, DigitalActivity: digital}
}

func TestStatesUsesTerciles(t *testing.T) {
	var rows []model.PanelRow
	for i := 1; i <= 9; i++ {
		rows = append(rows, digitalRow(i, 1, float64(i)))
	}

	states, thresholds, err := States(rows)
	if err != nil {
		t.Fatalf("States() = %v", err)
	}

	if thresholds.LowMax != 3 || thresholds.MediumMax != 6 {
		t.Fatalf("thresholds = %+v, want LowMax 3 MediumMax 6", thresholds)
	}

	counts := map[model.BehaviorState]int{}
	for _, s := range states {
		counts[s.State]++
	}
	for _, st := range model.BehaviorStates() {
		if counts[st] != 3 {
			t.Errorf("state %s has %d rows, want 3", st, counts[st])
		}
	}
}

func TestStatesEmpty(t *testing.T) {
	_, _, err := States(nil)
	if !errors.Is(err, common.ErrEmptyDataset) {
		t.Errorf("States(nil) error = %v, want ErrEmptyDataset", err)
	}
}

func TestTransitionsCountsConsecutiveMonthsOnly(t *testing.T) {
	states := []model.CustomerState{
		{CustomerID: 1, Month: 1, State: model.StateLow},
		{CustomerID: 1, Month: 2, State: model.StateMedium},
		{CustomerID: 1, Month: 3, State: model.StateHigh},
		// Month gap: 2 -> 4 must not count.
		{CustomerID: 2, Month: 1, State: model.StateLow},
		{CustomerID: 2, Month: 2, State: model.StateLow},
		{CustomerID: 2, Month: 4, State: model.StateHigh},
		// Customer boundary must not count either.
		{CustomerID: 3, Month: 5, State: model.StateHigh},
	}

	counts, matrix, err := New(testMarkovConfig()).Transitions(states)
	if err != nil {
		t.Fatalf("Transitions() = %v", err)
	}

	if counts[model.StateLow][model.StateMedium] != 1 {
		t.Errorf("Low->Medium = %d, want 1", counts[model.StateLow][model.StateMedium])
	}
	if counts[model.StateMedium][model.StateHigh] != 1 {
		t.Errorf("Medium->High = %d, want 1", counts[model.StateMedium][model.StateHigh])
	}
	if counts[model.StateLow][model.StateLow] != 1 {
		t.Errorf("Low->Low = %d, want 1", counts[model.StateLow][model.StateLow])
	}
	if counts[model.StateLow][model.StateHigh] != 0 {
		t.Errorf("Low->High = %d, want 0 (gap months must not count)", counts[model.StateLow][model.StateHigh])
	}

	total := 0
	for i := range counts {
		for j := range counts[i] {
			total += counts[i][j]
		}
	}
	if total != 3 {
		t.Errorf("total transitions = %d, want 3", total)
	}

	// Every row must sum to 1, including the unobserved High row that falls
	// back to uniform.
	for i, row := range matrix {
		sum := 0.0
		for _, p := range row {
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %s sums to %g, want 1", model.BehaviorState(i), sum)
		}
	}
	for j := range matrix[model.StateHigh] {
		if math.Abs(matrix[model.StateHigh][j]-1.0/3.0) > 1e-9 {
			t.Errorf("High row should be uniform, got %v", matrix[model.StateHigh])
		}
	}
}

func TestTransitionsNoObservations(t *testing.T) {
	states := []model.CustomerState{
		{CustomerID: 1, Month: 1, State: model.StateLow},
		{CustomerID: 2, Month: 5, State: model.StateHigh},
	}

	_, _, err := New(testMarkovConfig()).Transitions(states)
	if !errors.Is(err, common.ErrDegenerateInput) {
		t.Errorf("Transitions() error = %v, want ErrDegenerateInput", err)
	}
}

func TestStationary(t *testing.T) {
	matrix := [][]float64{
		{0.9, 0.1, 0.0},
		{0.1, 0.8, 0.1},
		{0.0, 0.1, 0.9},
	}

	pi, iterations, err := New(testMarkovConfig()).Stationary(matrix)
	if err != nil {
		t.Fatalf("Stationary() = %v", err)
	}
	if iterations < 1 {
		t.Errorf("iterations = %d, want at least 1", iterations)
	}

	sum := 0.0
	for _, p := range pi {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("stationary sums to %g, want 1", sum)
	}

	// This chain is symmetric, so the stationary distribution is uniform.
	for i, p := range pi {
		if math.Abs(p-1.0/3.0) > 1e-6 {
			t.Errorf("pi[%d] = %g, want 1/3", i, p)
		}
	}

	// Fixpoint check: pi P = pi.
	for j := 0; j < 3; j++ {
		got := 0.0
		for i := 0; i < 3; i++ {
			got += pi[i] * matrix[i][j]
		}
		if math.Abs(got-pi[j]) > 1e-8 {
			t.Errorf("(pi P)[%d] = %g, want %g", j, got, pi[j])
		}
	}
}

func TestStationaryAsymmetric(t *testing.T) {
	// Two-state chain with known stationary (0.75, 0.25): detailed balance
	// gives pi_0 * 0.1 = pi_1 * 0.3.
	matrix := [][]float64{
		{0.9, 0.1},
		{0.3, 0.7},
	}

	pi, _, err := New(testMarkovConfig()).Stationary(matrix)
	if err != nil {
		t.Fatalf("Stationary() = %v", err)
	}
	if math.Abs(pi[0]-0.75) > 1e-6 || math.Abs(pi[1]-0.25) > 1e-6 {
		t.Errorf("pi = %v, want (0.75, 0.25)", pi)
	}
}

func TestStationaryIterationCap(t *testing.T) {
	matrix := [][]float64{
		{0.5, 0.5, 0},
		{0.5, 0.5, 0},
		{0, 0, 1},
	}

	_, _, err := New(config.Markov{Tolerance: 1e-10, MaxIter: 0}).Stationary(matrix)
	if !errors.Is(err, common.ErrNotConverged) {
		t.Errorf("Stationary() with no iterations allowed = %v, want ErrNotConverged", err)
	}
}

func TestDowngradeRisk(t *testing.T) {
	matrix := [][]float64{
		{0.7, 0.2, 0.1},
		{0.3, 0.5, 0.2},
		{0.15, 0.25, 0.6},
	}

	tests := []struct {
		state model.BehaviorState
		want  float64
	}{
		{model.StateLow, 0},
		{model.StateMedium, 0.3},
		{model.StateHigh, 0.4},
	}

	for _, tt := range tests {
		if got := DowngradeRisk(matrix, tt.state); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("DowngradeRisk(%s) = %g, want %g", tt.state, got, tt.want)
		}
	}
}

func TestLastStates(t *testing.T) {
	states := []model.CustomerState{
		{CustomerID: 1, Month: 3, State: model.StateHigh},
		{CustomerID: 1, Month: 12, State: model.StateLow},
		{CustomerID: 1, Month: 7, State: model.StateMedium},
		{CustomerID: 2, Month: 1, State: model.StateMedium},
	}

	last := LastStates(states)
	if last[1] != model.StateLow {
		t.Errorf("customer 1 last state = %s, want Low", last[1])
	}
	if last[2] != model.StateMedium {
		t.Errorf("customer 2 last state = %s, want Medium", last[2])
	}
}

func TestSummarize(t *testing.T) {
	states := []model.CustomerState{
		{CustomerID: 7, Month: 1, State: model.StateLow},
		{CustomerID: 7, Month: 2, State: model.StateHigh},
		{CustomerID: 2, Month: 1, State: model.StateMedium},
		{CustomerID: 2, Month: 2, State: model.StateMedium},
	}
	matrix := [][]float64{
		{0.7, 0.2, 0.1},
		{0.3, 0.5, 0.2},
		{0.15, 0.25, 0.6},
	}

	summaries := Summarize(states, matrix)
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	// Sorted by customer id regardless of input order.
	if summaries[0].CustomerID != 2 || summaries[1].CustomerID != 7 {
		t.Fatalf("summary ids = %d, %d, want 2, 7", summaries[0].CustomerID, summaries[1].CustomerID)
	}

	if summaries[0].State != model.StateMedium {
		t.Errorf("customer 2 state = %s, want Medium", summaries[0].State)
	}
	if math.Abs(summaries[0].DowngradeRisk-0.3) > 1e-9 {
		t.Errorf("customer 2 downgrade risk = %g, want 0.3", summaries[0].DowngradeRisk)
	}

	if summaries[1].State != model.StateHigh {
		t.Errorf("customer 7 state = %s, want High", summaries[1].State)
	}
	if math.Abs(summaries[1].DowngradeRisk-0.4) > 1e-9 {
		t.Errorf("customer 7 downgrade risk = %g, want 0.4", summaries[1].DowngradeRisk)
	}
}
