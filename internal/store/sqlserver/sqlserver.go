// Package sqlserver implements the trip destination on Microsoft SQL Server.
// Bulk loads go through the TDS bulk-copy protocol via go-mssqldb's CopyIn.
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/pressly/goose/v3"

	"github.com/JonMunkholm/TripLoader/internal/config"
	"github.com/JonMunkholm/TripLoader/internal/core"
)

// Store is the SQL Server trip destination.
type Store struct {
	db    *sql.DB
	table string // quoted
}

// Open connects using the database settings and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig, table string) (*Store, error) {
	db, err := sql.Open("sqlserver", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("sqlserver.Open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlserver.Open: ping: %w", err)
	}
	return New(db, table), nil
}

// New wraps an open database handle. table may be schema-qualified.
func New(db *sql.DB, table string) *Store {
	if table == "" {
		table = core.DefaultTable
	}
	return &Store{db: db, table: quoteName(table)}
}

// quoteName brackets each part of a possibly schema-qualified name.
func quoteName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
	}
	return strings.Join(parts, ".")
}

// DB returns the underlying handle, for migrations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the goose dialect for this destination.
func (s *Store) Dialect() goose.Dialect {
	return goose.DialectMSSQL
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// BulkInsert bulk-copies the staged rows into table, batchSize rows per
// batch, inside a single transaction.
func (s *Store) BulkInsert(ctx context.Context, table string, st *core.Staging, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = core.DefaultBatchSize
	}
	target := s.table
	if table != "" {
		target = quoteName(table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlserver.Store.BulkInsert: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var total int64
	for start := 0; start < len(st.Rows); start += batchSize {
		end := min(start+batchSize, len(st.Rows))

		n, err := copyBatch(ctx, tx, target, st.Columns, st.Rows[start:end], batchSize)
		if err != nil {
			return 0, fmt.Errorf("sqlserver.Store.BulkInsert: copy rows %d-%d: %w", start, end-1, err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlserver.Store.BulkInsert: commit: %w", err)
	}
	return total, nil
}

func copyBatch(ctx context.Context, tx *sql.Tx, table string, cols []core.Column, rows [][]any, batchSize int) (int64, error) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{
		RowsPerBatch: batchSize,
		KeepNulls:    true,
		Tablock:      true,
	}, names...))
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, bulkRow(cols, row)...); err != nil {
			return 0, err
		}
	}

	// An Exec with no arguments flushes the buffered rows.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	return res.RowsAffected()
}

// bulkRow converts staged values into types the bulk-copy encoder accepts.
func bulkRow(cols []core.Column, row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		if cols[i].Type == core.ColumnDecimal {
			if m, ok := v.(core.Money); ok {
				out[i] = m.String()
				continue
			}
		}
		out[i] = v
	}
	return out
}
