package core

// scheduler.go runs background maintenance for the import log.
//
// The retention job deletes import records older than the configured
// retention, once on start and then every interval. Failures are logged and
// retried on the next tick; they never stop the application.

import (
	"context"
	"log/slog"
	"time"
)

// Retention defaults, used when the corresponding field is zero.
const (
	DefaultHistoryRetention = 90 * 24 * time.Hour
	DefaultPruneInterval    = 24 * time.Hour
)

// ImportPruner deletes old import records.
type ImportPruner interface {
	// PruneImports deletes records started before cutoff and returns how many.
	PruneImports(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig controls the import log retention job.
type RetentionConfig struct {
	Retention time.Duration // Age after which records are deleted (default: 90 days)
	Interval  time.Duration // How often to run (default: 24h)

	now func() time.Time
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.Retention <= 0 {
		c.Retention = DefaultHistoryRetention
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPruneInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// RunRetention prunes the import log immediately and then every
// cfg.Interval until ctx is cancelled.
func RunRetention(ctx context.Context, p ImportPruner, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("import log retention started",
		"retention", cfg.Retention,
		"interval", cfg.Interval,
	)

	pruneOnce(ctx, p, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("import log retention stopped")
			return
		case <-ticker.C:
			pruneOnce(ctx, p, cfg)
		}
	}
}

// pruneOnce performs one retention cycle.
func pruneOnce(ctx context.Context, p ImportPruner, cfg RetentionConfig) (int64, error) {
	start := time.Now()
	cutoff := cfg.now().Add(-cfg.Retention).UTC()

	n, err := p.PruneImports(ctx, cutoff)
	if err != nil {
		slog.Error("import log prune failed", "error", err)
		return 0, err
	}
	slog.Info("pruned import log",
		"entries_deleted", n,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n, nil
}
