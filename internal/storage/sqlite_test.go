package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/garimpo-ds/garimpo/internal/common"
	"github.com/garimpo-ds/garimpo/internal/model"
)

// Helper function to create a migrated test ledger.
func createTestLedger(t *testing.T) (*SQLiteLedger, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	ledger, err := NewSQLiteLedger(dbPath)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}

	ctx := context.Background()
	if err := ledger.Migrate(ctx); err != nil {
		_ = ledger.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return ledger, func() { _ = ledger.Close() }
}

func testRun(id string, seed int64) *model.Run {
	return &model.Run{
		ID:        id,
		Seed:      seed,
		Customers: 1000,
		Months:    12,
		Config:    `{"seed":42}`,
	}
}

func TestSQLiteLedger_RunLifecycle(t *testing.T) {
	ledger, cleanup := createTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	run := testRun("run-1", 42)
	if err := ledger.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	got, err := ledger.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != model.RunRunning {
		t.Errorf("status = %s, want running", got.Status)
	}
	if got.FinishedAt != nil {
		t.Errorf("open run should have no finish time, got %v", got.FinishedAt)
	}
	if got.Seed != 42 || got.Customers != 1000 || got.Months != 12 {
		t.Errorf("run parameters not round-tripped: %+v", got)
	}
	if got.Config != `{"seed":42}` {
		t.Errorf("config snapshot = %q", got.Config)
	}

	if err := ledger.FinishRun(ctx, "run-1", model.RunCompleted, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err = ledger.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun after finish: %v", err)
	}
	if got.Status != model.RunCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.FinishedAt == nil {
		t.Error("finished run should have a finish time")
	}
	if got.Duration() < 0 {
		t.Errorf("negative duration %v", got.Duration())
	}
	if got.Error != "" {
		t.Errorf("completed run should carry no error, got %q", got.Error)
	}
}

func TestSQLiteLedger_FailedRunKeepsError(t *testing.T) {
	ledger, cleanup := createTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	if err := ledger.StartRun(ctx, testRun("run-1", 7)); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := ledger.FinishRun(ctx, "run-1", model.RunFailed, "cluster: degenerate input"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := ledger.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != model.RunFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.Error != "cluster: degenerate input" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestSQLiteLedger_GetRunNotFound(t *testing.T) {
	ledger, cleanup := createTestLedger(t)
	defer cleanup()

	_, err := ledger.GetRun(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("got %v, want not found", err)
	}

	err = ledger.FinishRun(context.Background(), "missing", model.RunCompleted, "")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("FinishRun on missing run: got %v, want not found", err)
	}
}

func TestSQLiteLedger_ListRunsNewestFirst(t *testing.T) {
	ledger, cleanup := createTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := testRun(id, int64(i))
		if err := ledger.StartRun(ctx, run); err != nil {
			t.Fatalf("StartRun %s: %v", id, err)
		}
	}

	runs, err := ledger.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Errorf("runs not ordered newest first at %d", i)
		}
	}

	limited, err := ledger.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d runs, want 2", len(limited))
	}
}

func TestSQLiteLedger_StageLifecycle(t *testing.T) {
	ledger, cleanup := createTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	if err := ledger.StartRun(ctx, testRun("run-1", 42)); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	for _, stage := range []string{"generate", "features"} {
		if err := ledger.StartStage(ctx, "run-1", stage); err != nil {
			t.Fatalf("StartStage %s: %v", stage, err)
		}
	}
	if err := ledger.FinishStage(ctx, "run-1", "generate", model.RunCompleted, 12000, `{"customers":1000}`); err != nil {
		t.Fatalf("FinishStage: %v", err)
	}

	stages, err := ledger.GetStages(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetStages: %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("got %d stages, want 2", len(stages))
	}

	if stages[0].Stage != "generate" {
		t.Errorf("first stage = %s, want generate", stages[0].Stage)
	}
	if stages[0].Status != model.RunCompleted {
		t.Errorf("generate status = %s, want completed", stages[0].Status)
	}
	if stages[0].Rows != 12000 {
		t.Errorf("generate rows = %d, want 12000", stages[0].Rows)
	}
	if stages[0].Detail != `{"customers":1000}` {
		t.Errorf("generate detail = %q", stages[0].Detail)
	}
	if stages[0].FinishedAt == nil {
		t.Error("finished stage should have a finish time")
	}

	if stages[1].Stage != "features" {
		t.Errorf("second stage = %s, want features", stages[1].Stage)
	}
	if stages[1].Status != model.RunRunning {
		t.Errorf("features status = %s, want running", stages[1].Status)
	}
	if stages[1].FinishedAt != nil {
		t.Error("open stage should have no finish time")
	}
}

func TestSQLiteLedger_FinishStageNotFound(t *testing.T) {
	ledger, cleanup := createTestLedger(t)
	defer cleanup()

	err := ledger.FinishStage(context.Background(), "run-1", "generate", model.RunCompleted, 0, "")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestSQLiteLedger_ValidationErrors(t *testing.T) {
	ledger, cleanup := createTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	if err := ledger.StartRun(ctx, nil); !errors.Is(err, ErrNilRun) {
		t.Errorf("nil run: got %v", err)
	}
	if err := ledger.StartRun(ctx, testRun("", 1)); !errors.Is(err, ErrEmptyString) {
		t.Errorf("empty id: got %v", err)
	}
	if err := ledger.StartStage(ctx, "run-1", "  "); !errors.Is(err, ErrEmptyString) {
		t.Errorf("blank stage: got %v", err)
	}
	if _, err := ledger.GetRun(ctx, ""); !errors.Is(err, ErrEmptyString) {
		t.Errorf("empty run id: got %v", err)
	}
}

func TestSQLiteLedger_MigrateIdempotent(t *testing.T) {
	ledger, cleanup := createTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	// A second migration pass over an up-to-date schema is a no-op.
	if err := ledger.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	if err := ledger.StartRun(ctx, testRun("run-1", 42)); err != nil {
		t.Fatalf("StartRun after re-migrate: %v", err)
	}
}

func TestNewSQLiteLedgerRejectsEmptyPath(t *testing.T) {
	if _, err := NewSQLiteLedger(""); !errors.Is(err, ErrEmptyString) {
		t.Errorf("got %v, want empty string error", err)
	}
}
