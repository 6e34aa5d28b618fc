package sqlserver_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/TripLoader/internal/core"
	"github.com/JonMunkholm/TripLoader/internal/store/sqlserver"
	"github.com/JonMunkholm/TripLoader/internal/testutil"
	"github.com/JonMunkholm/TripLoader/migrations"
)

func TestMain(m *testing.M) {
	dsn := os.Getenv(testutil.SQLServerEnv)
	if dsn == "" {
		os.Exit(m.Run())
	}

	db := testutil.MustOpenSQLDB("sqlserver", dsn)
	fsys, err := migrations.FS("sqlserver")
	if err != nil {
		log.Fatalf("TestMain: migrations: %v", err)
	}
	provider, err := goose.NewProvider(goose.DialectMSSQL, db, fsys)
	if err != nil {
		log.Fatalf("TestMain: create goose provider: %v", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		log.Fatalf("TestMain: run migrations: %v", err)
	}
	db.Close()

	os.Exit(m.Run())
}

func newTestStore(t *testing.T) (*sqlserver.Store, *sql.DB) {
	t.Helper()
	db := testutil.NewSQLServerDB(t)

	for _, table := range []string{"trips", "imports"} {
		_, err := db.ExecContext(context.Background(), "TRUNCATE TABLE "+table)
		require.NoError(t, err, "truncate %s", table)
	}

	return sqlserver.New(db, "trips"), db
}

func countTrips(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT_BIG(*) FROM trips").Scan(&n))
	return n
}

func TestStore_BulkInsert(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	records := testutil.StandardTrips()
	staging, _ := core.Stage(ctx, records, nil)

	n, err := s.BulkInsert(ctx, "", staging, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(len(records)), n)
	assert.Equal(t, int64(len(records)), countTrips(t, db))
}

func TestStore_BulkInsert_RollsBackOnFailure(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	records := testutil.StandardTrips()
	records = append(records[:2], records[0])
	staging, _ := core.Stage(ctx, records, nil)

	_, err := s.BulkInsert(ctx, "", staging, 1)
	require.Error(t, err)
	assert.Zero(t, countTrips(t, db))
}

func TestStore_Reports(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	staging, _ := core.Stage(ctx, testutil.StandardTrips(), nil)
	_, err := s.BulkInsert(ctx, "", staging, 100)
	require.NoError(t, err)

	distance, err := s.TopByDistance(ctx, 1)
	require.NoError(t, err)
	require.Len(t, distance, 1)
	assert.Equal(t, 9.5, distance[0].TripDistance)

	duration, err := s.TopByDuration(ctx, 2)
	require.NoError(t, err)
	require.Len(t, duration, 2)
	assert.Equal(t, int64(45), duration[0].Minutes)
	assert.Equal(t, int64(20), duration[1].Minutes)

	zt, err := s.TopTipZone(ctx)
	require.NoError(t, err)
	assert.Equal(t, 132, zt.PULocationID)
	assert.Equal(t, core.Money(500), zt.AvgTip)

	_, err = s.AvgTipForZone(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNoTrips)

	trips, err := s.TripsByZone(ctx, 132, 10)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	want := time.Date(2020, 1, 1, 5, 0, 0, 0, time.UTC)
	assert.True(t, trips[0].PickupTime.Equal(want), "got %s", trips[0].PickupTime)
	assert.Equal(t, core.Money(400), trips[0].TipAmount)
}

func TestStore_ImportLog(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := core.ImportRecord{
		ID:         uuid.NewString(),
		FileName:   "yellow.csv",
		Table:      "trips",
		Status:     core.ImportCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		TotalRows:  4,
		Unique:     3,
		Duplicates: 1,
		Inserted:   3,
	}
	second := core.ImportRecord{
		ID:         uuid.NewString(),
		FileName:   "again.csv",
		Table:      "trips",
		Status:     core.ImportFailed,
		StartedAt:  started.Add(time.Hour),
		FinishedAt: started.Add(time.Hour),
		ErrorCode:  "DB001",
		Error:      "duplicate key",
	}
	require.NoError(t, s.RecordImport(ctx, first))
	require.NoError(t, s.RecordImport(ctx, second))

	recs, err := s.RecentImports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, second.ID, recs[0].ID, "uuid must survive the round trip")
	assert.Equal(t, "DB001", recs[0].ErrorCode)
	assert.Equal(t, first.ID, recs[1].ID)
	assert.Equal(t, 1, recs[1].Duplicates)
	assert.Empty(t, recs[1].Error)
}

func TestStore_PruneImports(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, started := range []time.Time{now, now.AddDate(0, -6, 0)} {
		require.NoError(t, s.RecordImport(ctx, core.ImportRecord{
			ID:         uuid.NewString(),
			FileName:   "trips.csv",
			Table:      "trips",
			Status:     core.ImportCompleted,
			StartedAt:  started,
			FinishedAt: started,
		}))
	}

	n, err := s.PruneImports(ctx, now.AddDate(0, -1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
