package core

// history.go keeps a log of import runs.
//
// Each run that gets past the import limiter is recorded once, successful or
// not, in a table separate from the trips. The entry is written after the
// trips transaction has finished and a failure to write it is only logged:
// the log is informational and never changes the outcome of an import.

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"
)

// ImportStatus is the outcome of a recorded import.
type ImportStatus string

const (
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
)

// historyWriteTimeout bounds the write of one log entry.
const historyWriteTimeout = 5 * time.Second

// ImportRecord is one entry in the import log.
type ImportRecord struct {
	ID         string       `json:"id"`
	FileName   string       `json:"file_name"`
	Table      string       `json:"table"`
	Status     ImportStatus `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	TotalRows  int          `json:"total_rows"`
	Unique     int          `json:"unique"`
	Duplicates int          `json:"duplicates"`
	Skipped    int          `json:"skipped"`
	Inserted   int64        `json:"inserted"`
	ErrorCode  string       `json:"error_code,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// ImportLog persists and lists import records.
type ImportLog interface {
	RecordImport(ctx context.Context, rec ImportRecord) error

	// RecentImports returns the latest records, newest first.
	RecentImports(ctx context.Context, limit int) ([]ImportRecord, error)
}

// maxErrorLen caps the stored error text.
const maxErrorLen = 1000

func newImportRecord(result *ImportResult, table string, started time.Time, err error) ImportRecord {
	rec := ImportRecord{
		ID:         result.ImportID,
		FileName:   result.FileName,
		Table:      table,
		Status:     ImportCompleted,
		StartedAt:  started.UTC(),
		FinishedAt: started.Add(result.Duration).UTC(),
		TotalRows:  result.TotalRows,
		Unique:     result.Unique,
		Duplicates: result.Duplicates,
		Skipped:    result.Skipped,
		Inserted:   result.Inserted,
	}
	if err != nil {
		rec.Status = ImportFailed
		rec.Inserted = 0
		rec.ErrorCode = MapError(err).Code
		rec.Error = truncateUTF8(err.Error(), maxErrorLen)
	}
	return rec
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// record writes rec to the import log, if one is configured. The import's own
// context may already be cancelled, so the write runs detached from it.
func (s *Service) record(ctx context.Context, rec ImportRecord, log *slog.Logger) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := s.history.RecordImport(ctx, rec); err != nil {
		log.WarnContext(ctx, "import log write failed", "status", rec.Status, "error", err)
	}
}
