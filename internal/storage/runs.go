package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// defaultListLimit bounds ListRuns when the caller passes no limit.
const defaultListLimit = 50

// StartRun records a new run in the running state.
func (s *SQLiteLedger) StartRun(ctx context.Context, run *model.Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if run == nil {
		return ErrNilRun
	}
	if err := validateString(run.ID, "run.ID"); err != nil {
		return err
	}

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = model.RunRunning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status, seed, customers, months, config)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.Status, run.Seed, run.Customers, run.Months, run.Config)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun closes a run with its terminal status. A non-empty runErr is
// kept alongside failed runs so the ledger explains itself later.
func (s *SQLiteLedger) FinishRun(ctx context.Context, runID string, status model.RunStatus, runErr string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?
	`, time.Now().UTC(), status, nullString(runErr), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: run %s", common.ErrNotFound, runID)
	}
	return nil
}

// GetRun fetches a single run by id.
func (s *SQLiteLedger) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, seed, customers, months, config, error
		FROM runs WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", common.ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteLedger) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, status, seed, customers, months, config, error
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan run: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// StartStage records a stage opening under a run.
func (s *SQLiteLedger) StartStage(ctx context.Context, runID, stage string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}
	if err := validateString(stage, "stage"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_stages (run_id, stage, started_at, status)
		VALUES (?, ?, ?, ?)
	`, runID, stage, time.Now().UTC(), model.RunRunning)
	if err != nil {
		return fmt.Errorf("failed to insert stage: %w", err)
	}
	return nil
}

// FinishStage closes the most recent open record of a stage within a run.
func (s *SQLiteLedger) FinishStage(ctx context.Context, runID, stage string, status model.RunStatus, rowCount int, detail string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}
	if err := validateString(stage, "stage"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE run_stages SET finished_at = ?, status = ?, row_count = ?, detail = ?
		WHERE id = (
			SELECT id FROM run_stages
			WHERE run_id = ? AND stage = ?
			ORDER BY started_at DESC, id DESC LIMIT 1
		)
	`, time.Now().UTC(), status, rowCount, nullString(detail), runID, stage)
	if err != nil {
		return fmt.Errorf("failed to finish stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: stage %s of run %s", common.ErrNotFound, stage, runID)
	}
	return nil
}

// GetStages returns the stage records of a run in execution order.
func (s *SQLiteLedger) GetStages(ctx context.Context, runID string) ([]model.StageRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, stage, started_at, finished_at, status, row_count, detail
		FROM run_stages WHERE run_id = ? ORDER BY started_at ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stages []model.StageRecord
	for rows.Next() {
		var (
			rec      model.StageRecord
			finished sql.NullTime
			detail   sql.NullString
		)
		if scanErr := rows.Scan(&rec.RunID, &rec.Stage, &rec.StartedAt, &finished, &rec.Status, &rec.Rows, &detail); scanErr != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", scanErr)
		}
		if finished.Valid {
			t := finished.Time
			rec.FinishedAt = &t
		}
		rec.Detail = detail.String
		stages = append(stages, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stages: %w", err)
	}
	return stages, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	var (
		run      model.Run
		finished sql.NullTime
		runErr   sql.NullString
	)
	err := row.Scan(&run.ID, &run.StartedAt, &finished, &run.Status,
		&run.Seed, &run.Customers, &run.Months, &run.Config, &runErr)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	run.Error = runErr.String
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
