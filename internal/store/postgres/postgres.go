// Package postgres implements the trip destination on PostgreSQL using pgx.
// Bulk loads use the COPY protocol; reports are plain SQL over the pool.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/JonMunkholm/TripLoader/internal/config"
	"github.com/JonMunkholm/TripLoader/internal/core"
)

// Store is the PostgreSQL trip destination.
type Store struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
	table pgx.Identifier
}

// Open connects a pool using the database settings and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig, table string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: parse url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.Open: ping: %w", err)
	}

	return New(pool, table), nil
}

// New wraps an existing pool. table may be schema-qualified.
func New(pool *pgxpool.Pool, table string) *Store {
	if table == "" {
		table = core.DefaultTable
	}
	return &Store{
		pool:  pool,
		sqlDB: stdlib.OpenDBFromPool(pool),
		table: identifier(table),
	}
}

func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

// DB returns a database/sql handle sharing the pool, for migrations.
func (s *Store) DB() *sql.DB {
	return s.sqlDB
}

// Dialect returns the goose dialect for this destination.
func (s *Store) Dialect() goose.Dialect {
	return goose.DialectPostgres
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	err := s.sqlDB.Close()
	s.pool.Close()
	return err
}

// BulkInsert copies the staged rows into table in batches of batchSize.
// All batches run inside one transaction; any failure rolls back the lot.
func (s *Store) BulkInsert(ctx context.Context, table string, st *core.Staging, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = core.DefaultBatchSize
	}
	ident := s.table
	if table != "" {
		ident = identifier(table)
	}
	cols := st.Names()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres.Store.BulkInsert: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var total int64
	for start := 0; start < len(st.Rows); start += batchSize {
		end := min(start+batchSize, len(st.Rows))

		batch := make([][]any, 0, end-start)
		for _, row := range st.Rows[start:end] {
			batch = append(batch, copyRow(st.Columns, row))
		}

		n, err := tx.CopyFrom(ctx, ident, cols, pgx.CopyFromRows(batch))
		if err != nil {
			return 0, fmt.Errorf("postgres.Store.BulkInsert: copy rows %d-%d: %w", start, end-1, err)
		}
		total += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres.Store.BulkInsert: commit: %w", err)
	}
	return total, nil
}

// copyRow converts staged values into types pgx encodes for COPY.
func copyRow(cols []core.Column, row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		if cols[i].Type == core.ColumnDecimal {
			if m, ok := v.(core.Money); ok {
				out[i] = moneyNumeric(m)
				continue
			}
		}
		out[i] = v
	}
	return out
}

// moneyNumeric represents cents exactly as a NUMERIC with two decimal places.
func moneyNumeric(m core.Money) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(m.Cents()), Exp: -2, Valid: true}
}
