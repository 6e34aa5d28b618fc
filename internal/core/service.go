package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultImportTimeout bounds one import including the bulk insert.
const DefaultImportTimeout = 10 * time.Minute

// DefaultDuplicatesPath is where the overflow file is written.
const DefaultDuplicatesPath = "duplicates.csv"

// DefaultTable is the destination table name.
const DefaultTable = "trips"

// Options configures the import pipeline.
type Options struct {
	Table          string
	BatchSize      int
	DuplicatesPath string
	Timeout        time.Duration
	MaxFileSize    int64 // bytes; 0 disables the check
}

func (o Options) withDefaults() Options {
	if o.Table == "" {
		o.Table = DefaultTable
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.DuplicatesPath == "" {
		o.DuplicatesPath = DefaultDuplicatesPath
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultImportTimeout
	}
	return o
}

// ImportResult summarizes a completed import.
type ImportResult struct {
	ImportID       string        `json:"import_id"`
	FileName       string        `json:"file_name"`
	TotalRows      int           `json:"total_rows"`
	Unique         int           `json:"unique"`
	Duplicates     int           `json:"duplicates"`
	Skipped        int           `json:"skipped"`
	Inserted       int64         `json:"inserted"`
	DuplicatesPath string        `json:"duplicates_path"`
	Duration       time.Duration `json:"duration_ns"`
}

// Service runs the trip import pipeline: parse, deduplicate, write the
// overflow file, stage and bulk insert.
type Service struct {
	dest    BulkInserter
	norm    *Normalizer
	parser  *Parser
	opts    Options
	limiter *ImportLimiter
	history ImportLog
}

// NewService creates a Service writing to dest. A nil limiter allows
// concurrent imports; callers sharing a destination should pass one.
func NewService(dest BulkInserter, norm *Normalizer, opts Options, limiter *ImportLimiter) *Service {
	return &Service{
		dest:    dest,
		norm:    norm,
		parser:  NewParser(norm),
		opts:    opts.withDefaults(),
		limiter: limiter,
	}
}

// Options returns the effective options.
func (s *Service) Options() Options {
	return s.opts
}

// WithHistory makes the service record every import it runs in h.
func (s *Service) WithHistory(h ImportLog) *Service {
	s.history = h
	return s
}

// History returns the import log, which may be nil.
func (s *Service) History() ImportLog {
	return s.history
}

// Limiter returns the import limiter, which may be nil.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Import loads the CSV at path into the destination table.
//
// Every step completes before the next starts. A parse failure aborts before
// anything is written; an insert failure leaves the overflow file in place
// but commits no rows. Returned errors wrap ErrInput, ErrParse, ErrOverflow,
// ErrPersist or ErrImportBusy.
func (s *Service) Import(ctx context.Context, path string) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{
		ImportID:       uuid.New().String(),
		FileName:       filepath.Base(path),
		DuplicatesPath: s.opts.DuplicatesPath,
	}
	log := slog.With("import_id", result.ImportID, "file", result.FileName)

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx, result.FileName); err != nil {
			return nil, err
		}
		defer s.limiter.Release()
	}

	err := s.run(ctx, path, result, log)
	result.Duration = time.Since(start)
	s.record(ctx, newImportRecord(result, s.opts.Table, start, err), log)
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "import completed",
		"total", result.TotalRows,
		"unique", result.Unique,
		"duplicates", result.Duplicates,
		"skipped", result.Skipped,
		"inserted", result.Inserted,
		"duration", result.Duration,
	)
	return result, nil
}

// run executes the pipeline steps, filling in result as it goes.
func (s *Service) run(ctx context.Context, path string, result *ImportResult, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.checkInput(path); err != nil {
		log.WarnContext(ctx, "import rejected", "error", err)
		return err
	}

	log.InfoContext(ctx, "import started", "table", s.opts.Table)

	unique, dups, err := Deduplicate(s.parser.Records(path))
	if err != nil {
		if !errors.Is(err, ErrInput) && !errors.Is(err, ErrParse) {
			err = fmt.Errorf("%w: %w", ErrParse, err)
		}
		log.ErrorContext(ctx, "parse failed", "error", err)
		return err
	}
	result.Unique = len(unique)
	result.Duplicates = len(dups)
	result.TotalRows = len(unique) + len(dups)

	if err := s.norm.WriteDuplicates(s.opts.DuplicatesPath, dups); err != nil {
		log.ErrorContext(ctx, "overflow write failed", "path", s.opts.DuplicatesPath, "error", err)
		return fmt.Errorf("%w: %w", ErrOverflow, err)
	}

	staging, skipped := Stage(ctx, unique, log)
	result.Skipped = skipped

	if staging.Len() == 0 {
		return nil
	}
	inserted, err := s.dest.BulkInsert(ctx, s.opts.Table, staging, s.opts.BatchSize)
	if err != nil {
		log.ErrorContext(ctx, "bulk insert failed", "rows", staging.Len(), "error", err)
		return fmt.Errorf("%w: bulk insert into %s: %w", ErrPersist, s.opts.Table, err)
	}
	result.Inserted = inserted
	return nil
}

func (s *Service) checkInput(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no file path given", ErrInput)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInput, path)
	}
	if s.opts.MaxFileSize > 0 && info.Size() > s.opts.MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrInput, path, info.Size(), s.opts.MaxFileSize)
	}
	return nil
}
