package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/TripLoader/internal/core"
)

// RecordImport inserts one import log entry.
func (s *Store) RecordImport(ctx context.Context, rec core.ImportRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("postgres.Store.RecordImport: id: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO imports (id, file_name, table_name, status, started_at, finished_at,
			total_rows, unique_rows, duplicates, skipped, inserted, error_code, error)
		VALUES (@id, @file_name, @table_name, @status, @started_at, @finished_at,
			@total_rows, @unique_rows, @duplicates, @skipped, @inserted, @error_code, @error)`,
		pgx.NamedArgs{
			"id":          pgtype.UUID{Bytes: id, Valid: true},
			"file_name":   rec.FileName,
			"table_name":  rec.Table,
			"status":      string(rec.Status),
			"started_at":  rec.StartedAt,
			"finished_at": rec.FinishedAt,
			"total_rows":  rec.TotalRows,
			"unique_rows": rec.Unique,
			"duplicates":  rec.Duplicates,
			"skipped":     rec.Skipped,
			"inserted":    rec.Inserted,
			"error_code":  toPgText(rec.ErrorCode),
			"error":       toPgText(rec.Error),
		})
	if err != nil {
		return fmt.Errorf("postgres.Store.RecordImport: %w", err)
	}
	return nil
}

// RecentImports returns the latest import log entries, newest first.
func (s *Store) RecentImports(ctx context.Context, limit int) ([]core.ImportRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, table_name, status, started_at, finished_at,
			total_rows, unique_rows, duplicates, skipped, inserted, error_code, error
		FROM imports
		ORDER BY started_at DESC
		LIMIT @limit`,
		pgx.NamedArgs{"limit": core.ClampLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("postgres.Store.RecentImports: %w", err)
	}
	defer rows.Close()

	var out []core.ImportRecord
	for rows.Next() {
		var (
			rec             core.ImportRecord
			id              pgtype.UUID
			status          string
			errCode, errMsg pgtype.Text
		)
		if err := rows.Scan(&id, &rec.FileName, &rec.Table, &status, &rec.StartedAt, &rec.FinishedAt,
			&rec.TotalRows, &rec.Unique, &rec.Duplicates, &rec.Skipped, &rec.Inserted,
			&errCode, &errMsg); err != nil {
			return nil, fmt.Errorf("postgres.Store.RecentImports: scan: %w", err)
		}
		rec.ID = uuid.UUID(id.Bytes).String()
		rec.Status = core.ImportStatus(status)
		rec.ErrorCode = errCode.String
		rec.Error = errMsg.String
		rec.StartedAt = rec.StartedAt.UTC()
		rec.FinishedAt = rec.FinishedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.Store.RecentImports: rows: %w", err)
	}
	return out, nil
}

// PruneImports deletes import log entries started before cutoff.
func (s *Store) PruneImports(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM imports WHERE started_at < @cutoff`,
		pgx.NamedArgs{"cutoff": cutoff})
	if err != nil {
		return 0, fmt.Errorf("postgres.Store.PruneImports: %w", err)
	}
	return tag.RowsAffected(), nil
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
