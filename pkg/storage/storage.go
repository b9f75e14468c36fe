package storage

import (
	"context"
	"errors"
	"fmt"

	"flightsnap/config"
	"flightsnap/internal/snapshot"
	"flightsnap/pkg/storage/postgres"
	"flightsnap/pkg/storage/sqlite"
)

// Sink keeps a price history next to the CSV snapshots.
type Sink interface {
	// SavePrices stores rows and returns how many were new.
	SavePrices(ctx context.Context, rows []snapshot.PriceRow) (int, error)
	Close() error
}

// History is a Sink that can also report what it holds.
type History interface {
	Sink
	// Count returns the number of stored rows for a snapshot date.
	Count(ctx context.Context, date string) (int, error)
}

// Open returns the history selected by cfg.History.Driver, or nil for "none".
func Open(ctx context.Context, cfg *config.Config) (History, error) {
	switch cfg.History.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite history: %w", err)
		}
		return db, nil
	case "postgres":
		client, err := postgres.InitializeAndMigratePriceRecord(cfg.Postgres, cfg.Postgres.CreateDB)
		if err != nil {
			return nil, fmt.Errorf("open postgres history: %w", err)
		}
		if !client.IsHealthy(ctx) {
			_ = client.Close()
			return nil, errors.New("open postgres history: database is not reachable")
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.History.Driver)
	}
}
