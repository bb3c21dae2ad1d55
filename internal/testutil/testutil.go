// Package testutil provides shared helpers for pipeline tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/garimpo-ds/garimpo/internal/config"
	"github.com/garimpo-ds/garimpo/internal/service"
	"github.com/garimpo-ds/garimpo/internal/storage"
)

// SetupTestLedger creates a migrated in-memory ledger that is closed when
// the test finishes.
func SetupTestLedger(t *testing.T) service.Ledger {
	t.Helper()

	ledger, err := storage.NewSQLiteLedger(":memory:")
	if err != nil {
		t.Fatalf("failed to create test ledger: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })

	if err := ledger.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test ledger: %v", err)
	}
	return ledger
}

// TempPaths returns an artifact layout rooted in a fresh temp directory.
func TempPaths(t *testing.T) config.Paths {
	t.Helper()

	root := t.TempDir()
	paths := config.Paths{
		DataDir:    filepath.Join(root, "data"),
		ReportsDir: filepath.Join(root, "reports"),
		Ledger:     filepath.Join(root, "data", "garimpo.db"),
	}
	if err := paths.EnsureDirs(); err != nil {
		t.Fatalf("failed to create artifact directories: %v", err)
	}
	return paths
}
