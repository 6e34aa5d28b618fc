package core

// limiter.go serializes imports within a process.
//
// Only one import may write to the trips table at a time. A second caller
// waits up to maxWait for the slot, then fails with ErrImportBusy.
// WaitForDrain lets shutdown block until the running import finishes.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrImportBusy is returned when another import holds the slot past the wait timeout.
var ErrImportBusy = errors.New("another import is in progress")

// DefaultMaxWaitTime is how long to wait for the import slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ImportLimiter guards the single import slot.
type ImportLimiter struct {
	slot    chan struct{}
	maxWait time.Duration

	mu      sync.RWMutex
	active  bool
	since   time.Time
	current string
}

// NewImportLimiter creates a limiter; callers wait at most maxWait for the slot.
func NewImportLimiter(maxWait time.Duration) *ImportLimiter {
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ImportLimiter{
		slot:    make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// Acquire takes the slot for the named import.
// The caller MUST call Release when done (use defer).
func (l *ImportLimiter) Acquire(ctx context.Context, name string) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slot <- struct{}{}:
		l.mu.Lock()
		l.active = true
		l.since = time.Now()
		l.current = name
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrImportBusy
	}
}

// Release frees the slot. Must be called exactly once per successful Acquire.
func (l *ImportLimiter) Release() {
	l.mu.Lock()
	l.active = false
	l.current = ""
	l.since = time.Time{}
	l.mu.Unlock()

	<-l.slot
}

// Busy reports whether an import currently holds the slot.
func (l *ImportLimiter) Busy() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no import is running or ctx is done.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !l.Busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ImportLimiterStatus is a snapshot of the limiter.
type ImportLimiterStatus struct {
	Busy    bool      `json:"busy"`
	Current string    `json:"current,omitempty"`
	Since   time.Time `json:"since,omitzero"`
}

// Status returns the current limiter state for the health endpoint.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ImportLimiterStatus{
		Busy:    l.active,
		Current: l.current,
		Since:   l.since,
	}
}
