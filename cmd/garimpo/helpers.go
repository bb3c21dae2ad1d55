package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/garimpo-ds/garimpo/internal/service"
	"github.com/garimpo-ds/garimpo/internal/storage"
)

// initLedger opens the run ledger database and applies any pending
// migrations.
func initLedger(ctx context.Context) (service.Ledger, error) {
	ledgerPath := viper.GetString("paths.ledger")

	ledger, err := storage.NewSQLiteLedger(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	if err := ledger.Migrate(ctx); err != nil {
		_ = ledger.Close()
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}

	return ledger, nil
}
