// Package service defines the interfaces the pipeline depends on.
package service

import (
	"context"

	"github.com/garimpo-ds/garimpo/internal/model"
)

// Ledger defines the contract for run bookkeeping. The pipeline records
// every run and stage it executes so results stay attributable to the seed
// and configuration that produced them.
type Ledger interface {
	// Run operations
	StartRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, runID string, status model.RunStatus, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Stage operations
	StartStage(ctx context.Context, runID, stage string) error
	FinishStage(ctx context.Context, runID, stage string, status model.RunStatus, rows int, detail string) error
	GetStages(ctx context.Context, runID string) ([]model.StageRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}
