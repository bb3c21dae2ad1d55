package dataset

import (
	"fmt"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// matrixColumns is the schema of the square state-by-state tables: one row
// per origin state, one column per destination state.
func matrixColumns() []string {
	cols := []string{"state"}
	for _, s := range model.BehaviorStates() {
		cols = append(cols, s.String())
	}
	return cols
}

// WriteTransitionCounts writes the raw transition count matrix.
func WriteTransitionCounts(path string, counts [][]int) error {
	rows := make([][]string, 0, len(counts))
	for i, s := range model.BehaviorStates() {
		row := []string{s.String()}
		for j := range model.BehaviorStates() {
			row = append(row, formatInt(counts[i][j]))
		}
		rows = append(rows, row)
	}
	return writeTable(path, matrixColumns(), rows)
}

// WriteTransitionMatrix writes the row-normalized transition matrix.
func WriteTransitionMatrix(path string, matrix [][]float64) error {
	rows := make([][]string, 0, len(matrix))
	for i, s := range model.BehaviorStates() {
		row := []string{s.String()}
		for j := range model.BehaviorStates() {
			row = append(row, formatFloat(matrix[i][j]))
		}
		rows = append(rows, row)
	}
	return writeTable(path, matrixColumns(), rows)
}

// ReadTransitionMatrix loads the transition matrix written by the markov
// stage, indexed [from][to] in ascending state order.
func ReadTransitionMatrix(path string) ([][]float64, error) {
	matrix := make([][]float64, model.NumStates)
	seen := make([]bool, model.NumStates)

	err := forEachRecord(path, "garimpo markov", matrixColumns(), func(rec record) error {
		raw, err := rec.String("state")
		if err != nil {
			return err
		}
		from, err := model.ParseBehaviorState(raw)
		if err != nil {
			return fmt.Errorf("%w: %s line %d: %v", common.ErrMalformedRow, rec.path, rec.line, err)
		}
		row := make([]float64, model.NumStates)
		for j, to := range model.BehaviorStates() {
			if row[j], err = rec.Float(to.String()); err != nil {
				return err
			}
		}
		matrix[from] = row
		seen[from] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: %s is missing the %s row",
				common.ErrMalformedRow, path, model.BehaviorState(i))
		}
	}
	return matrix, nil
}

// WriteStationary writes the stationary distribution of the chain.
func WriteStationary(path string, dist []float64) error {
	rows := make([][]string, 0, len(dist))
	for i, s := range model.BehaviorStates() {
		rows = append(rows, []string{s.String(), formatFloat(dist[i])})
	}
	return writeTable(path, []string{"state", "probability"}, rows)
}
