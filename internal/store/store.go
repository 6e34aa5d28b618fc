// Package store opens the configured trip destination and runs its schema
// migrations.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/JonMunkholm/TripLoader/internal/config"
	"github.com/JonMunkholm/TripLoader/internal/core"
	"github.com/JonMunkholm/TripLoader/internal/store/postgres"
	"github.com/JonMunkholm/TripLoader/internal/store/sqlserver"
	"github.com/JonMunkholm/TripLoader/migrations"
)

// Store is a trip destination. It accepts bulk loads, answers reports and
// keeps the import log.
type Store interface {
	core.BulkInserter
	core.Reporter
	core.ImportLog
	core.ImportPruner

	DB() *sql.DB
	Dialect() goose.Dialect
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*postgres.Store)(nil)
	_ Store = (*sqlserver.Store)(nil)
)

// Open connects to the destination selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, table string) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres, "":
		return postgres.Open(ctx, cfg, table)
	case config.DriverSQLServer:
		return sqlserver.Open(ctx, cfg, table)
	default:
		return nil, fmt.Errorf("store.Open: unsupported driver %q", cfg.Driver)
	}
}

// NewMigrator returns a goose provider over the embedded migrations for the
// store's dialect.
func NewMigrator(s Store) (*goose.Provider, error) {
	driver := config.DriverPostgres
	if s.Dialect() == goose.DialectMSSQL {
		driver = config.DriverSQLServer
	}

	fsys, err := migrations.FS(driver)
	if err != nil {
		return nil, fmt.Errorf("store.NewMigrator: %w", err)
	}

	provider, err := goose.NewProvider(s.Dialect(), s.DB(), fsys)
	if err != nil {
		return nil, fmt.Errorf("store.NewMigrator: create goose provider: %w", err)
	}
	return provider, nil
}

// MigrateUp applies all pending migrations and returns how many ran.
func MigrateUp(ctx context.Context, s Store) (int, error) {
	provider, err := NewMigrator(s)
	if err != nil {
		return 0, err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("store.MigrateUp: %w", err)
	}
	return len(results), nil
}
