package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/TripLoader/internal/config"
	"github.com/JonMunkholm/TripLoader/internal/core"
	"github.com/JonMunkholm/TripLoader/internal/store"
)

// memStore is an in-memory store.Store for exercising the commands.
type memStore struct {
	inserted int
	closed   bool
	zone     int
	imports  []core.ImportRecord
}

func (m *memStore) BulkInsert(_ context.Context, _ string, s *core.Staging, _ int) (int64, error) {
	m.inserted += s.Len()
	return int64(s.Len()), nil
}

func (m *memStore) TopByDistance(context.Context, int) ([]core.Trip, error) { return nil, nil }

func (m *memStore) TopByDuration(context.Context, int) ([]core.TripDuration, error) { return nil, nil }

func (m *memStore) TopTipZone(context.Context) (core.ZoneTip, error) {
	return core.ZoneTip{PULocationID: 132, AvgTip: 350, Trips: 12}, nil
}

func (m *memStore) AvgTipForZone(_ context.Context, zone int) (core.ZoneTip, error) {
	return core.ZoneTip{}, fmt.Errorf("zone %d: %w", zone, core.ErrNoTrips)
}

func (m *memStore) TripsByZone(_ context.Context, zone, _ int) ([]core.Trip, error) {
	m.zone = zone
	return nil, nil
}

func (m *memStore) RecordImport(_ context.Context, rec core.ImportRecord) error {
	m.imports = append([]core.ImportRecord{rec}, m.imports...)
	return nil
}

func (m *memStore) RecentImports(_ context.Context, limit int) ([]core.ImportRecord, error) {
	if limit < len(m.imports) {
		return m.imports[:limit], nil
	}
	return m.imports, nil
}

func (m *memStore) PruneImports(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []core.ImportRecord
	for _, rec := range m.imports {
		if !rec.StartedAt.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	n := int64(len(m.imports) - len(kept))
	m.imports = kept
	return n, nil
}

func (m *memStore) DB() *sql.DB                { return nil }
func (m *memStore) Dialect() goose.Dialect     { return goose.DialectPostgres }
func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { m.closed = true; return nil }

var _ store.Store = (*memStore)(nil)

func run(t *testing.T, mem *memStore, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("IMPORT_DUPLICATES_PATH", filepath.Join(t.TempDir(), "duplicates.csv"))

	var out, errOut bytes.Buffer
	rt := &session{
		stdin:  strings.NewReader(""),
		stdout: &out,
		stderr: &errOut,
		openStore: func(context.Context, config.DatabaseConfig, string) (store.Store, error) {
			return mem, nil
		},
	}
	cmd := newRootCommand(rt)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTrips(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trips.csv")
	lines := append([]string{strings.Join(core.DefaultColumns.Header(), ",")}, rows...)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func TestImportCommand(t *testing.T) {
	mem := &memStore{}
	dupPath := filepath.Join(t.TempDir(), "dups.csv")
	path := writeTrips(t,
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,1.5,N,132,48,12.50,2.00",
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,3.0,N,132,48,12.50,2.00",
		"2020-01-01 00:05:00,2020-01-01 00:20:00,2,2.0,N,132,48,14.00,3.00",
	)

	out, err := run(t, mem, "import", path, "--duplicates", dupPath, "--json")
	require.NoError(t, err)

	var result core.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Unique)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, dupPath, result.DuplicatesPath)
	assert.Equal(t, 2, mem.inserted)
	assert.True(t, mem.closed, "store should be closed after the command")
	assert.FileExists(t, dupPath)

	require.Len(t, mem.imports, 1)
	assert.Equal(t, result.ImportID, mem.imports[0].ID)
	assert.Equal(t, core.ImportCompleted, mem.imports[0].Status)
}

func TestImportCommand_MalformedRow(t *testing.T) {
	mem := &memStore{}
	path := writeTrips(t, "2020-01-01 00:00:00,2020-01-01 00:10:00,1,far,N,132,48,12.50,2.00")

	_, err := run(t, mem, "import", path)
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
	assert.Contains(t, describe(err), "VAL001")
	assert.Zero(t, mem.inserted)

	require.Len(t, mem.imports, 1)
	assert.Equal(t, core.ImportFailed, mem.imports[0].Status)
	assert.Equal(t, "VAL001", mem.imports[0].ErrorCode)
}

func TestHistoryCommand(t *testing.T) {
	mem := &memStore{}
	path := writeTrips(t, "2020-01-01 00:00:00,2020-01-01 00:10:00,1,1.5,N,132,48,12.50,2.00")
	_, err := run(t, mem, "import", path)
	require.NoError(t, err)

	out, err := run(t, mem, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "trips.csv")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "(1 imports)")

	out, err = run(t, mem, "history", "--json", "-n", "5")
	require.NoError(t, err)
	var recs []core.ImportRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].Inserted)
}

func TestImportCommand_DryRun(t *testing.T) {
	mem := &memStore{}
	dupPath := filepath.Join(t.TempDir(), "dups.csv")
	path := writeTrips(t,
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,1.5,N,132,48,12.50,2.00",
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,3.0,N,132,48,12.50,2.00",
	)

	out, err := run(t, mem, "import", path, "--dry-run", "--duplicates", dupPath, "--json")
	require.NoError(t, err)

	var result core.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 1, result.Unique)
	assert.Equal(t, 1, result.Duplicates)
	assert.Zero(t, result.Inserted)
	assert.Zero(t, mem.inserted)
	assert.Empty(t, mem.imports)
	assert.NoFileExists(t, dupPath)
}

func TestImportCommand_DryRunSkippedHour(t *testing.T) {
	path := writeTrips(t, "2024-03-10 02:30:00,2024-03-10 03:10:00,1,1.5,N,132,48,12.50,2.00")

	_, err := run(t, &memStore{}, "import", path, "--dry-run")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
}

func TestImportCommand_BadZoneFlag(t *testing.T) {
	_, err := run(t, &memStore{}, "import", "x.csv", "--source-tz", "Mars/Olympus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMPORT_SOURCE_TZ")
}

func TestHistoryPruneCommand(t *testing.T) {
	now := time.Now().UTC()
	mem := &memStore{imports: []core.ImportRecord{
		{ID: "new", StartedAt: now.Add(-time.Hour)},
		{ID: "old", StartedAt: now.Add(-40 * 24 * time.Hour)},
	}}

	out, err := run(t, mem, "history", "prune", "--older-than", "720h")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 import record(s)")
	require.Len(t, mem.imports, 1)
	assert.Equal(t, "new", mem.imports[0].ID)

	_, err = run(t, mem, "history", "prune", "--older-than", "0s")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestReportCommands(t *testing.T) {
	mem := &memStore{}

	out, err := run(t, mem, "report", "top-tip-zone")
	require.NoError(t, err)
	assert.Contains(t, out, "132")
	assert.Contains(t, out, "3.50")

	_, err = run(t, mem, "report", "avg-tip", "--zone", "7")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoTrips))
	assert.Contains(t, describe(err), "RPT001")

	_, err = run(t, mem, "trips", "-z", "48")
	require.NoError(t, err)
	assert.Equal(t, 48, mem.zone)
}

func TestTripsCommand_RequiresZone(t *testing.T) {
	_, err := run(t, &memStore{}, "trips")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zone")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("boom"), 1},
		{fmt.Errorf("%w: missing", core.ErrInput), 2},
		{&core.ParseError{Line: 2, Column: "fare_amount", Err: errors.New("bad")}, 3},
		{fmt.Errorf("%w: denied", core.ErrOverflow), 4},
		{fmt.Errorf("%w: refused", core.ErrPersist), 5},
		{core.ErrImportBusy, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}
