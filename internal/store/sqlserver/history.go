package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/google/uuid"

	"github.com/JonMunkholm/TripLoader/internal/core"
)

// RecordImport inserts one import log entry.
func (s *Store) RecordImport(ctx context.Context, rec core.ImportRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("sqlserver.Store.RecordImport: id: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO imports (id, file_name, table_name, status, started_at, finished_at,
			total_rows, unique_rows, duplicates, skipped, inserted, error_code, error)
		VALUES (@id, @file_name, @table_name, @status, @started_at, @finished_at,
			@total_rows, @unique_rows, @duplicates, @skipped, @inserted, @error_code, @error)`,
		sql.Named("id", mssql.UniqueIdentifier(id)),
		sql.Named("file_name", rec.FileName),
		sql.Named("table_name", rec.Table),
		sql.Named("status", string(rec.Status)),
		sql.Named("started_at", rec.StartedAt.UTC()),
		sql.Named("finished_at", rec.FinishedAt.UTC()),
		sql.Named("total_rows", rec.TotalRows),
		sql.Named("unique_rows", rec.Unique),
		sql.Named("duplicates", rec.Duplicates),
		sql.Named("skipped", rec.Skipped),
		sql.Named("inserted", rec.Inserted),
		sql.Named("error_code", nullString(rec.ErrorCode)),
		sql.Named("error", nullString(rec.Error)),
	)
	if err != nil {
		return fmt.Errorf("sqlserver.Store.RecordImport: %w", err)
	}
	return nil
}

// RecentImports returns the latest import log entries, newest first.
func (s *Store) RecentImports(ctx context.Context, limit int) ([]core.ImportRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT TOP (@limit) id, file_name, table_name, status, started_at, finished_at,
			total_rows, unique_rows, duplicates, skipped, inserted, error_code, error
		FROM imports
		ORDER BY started_at DESC`,
		sql.Named("limit", core.ClampLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("sqlserver.Store.RecentImports: %w", err)
	}
	defer rows.Close()

	var out []core.ImportRecord
	for rows.Next() {
		var (
			rec             core.ImportRecord
			id              mssql.UniqueIdentifier
			status          string
			errCode, errMsg sql.NullString
		)
		if err := rows.Scan(&id, &rec.FileName, &rec.Table, &status, &rec.StartedAt, &rec.FinishedAt,
			&rec.TotalRows, &rec.Unique, &rec.Duplicates, &rec.Skipped, &rec.Inserted,
			&errCode, &errMsg); err != nil {
			return nil, fmt.Errorf("sqlserver.Store.RecentImports: scan: %w", err)
		}
		rec.ID = uuid.UUID(id).String()
		rec.Status = core.ImportStatus(status)
		rec.ErrorCode = errCode.String
		rec.Error = errMsg.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlserver.Store.RecentImports: rows: %w", err)
	}
	return out, nil
}

// PruneImports deletes import log entries started before cutoff.
func (s *Store) PruneImports(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM imports WHERE started_at < @cutoff`,
		sql.Named("cutoff", cutoff.UTC()))
	if err != nil {
		return 0, fmt.Errorf("sqlserver.Store.PruneImports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlserver.Store.PruneImports: rows affected: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
