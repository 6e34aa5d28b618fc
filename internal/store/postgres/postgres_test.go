package postgres_test

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/TripLoader/internal/core"
	"github.com/JonMunkholm/TripLoader/internal/store/postgres"
	"github.com/JonMunkholm/TripLoader/internal/testutil"
	"github.com/JonMunkholm/TripLoader/migrations"
)

// TestMain applies the migrations once before any test in the package.
func TestMain(m *testing.M) {
	dsn := os.Getenv(testutil.PostgresEnv)
	if dsn == "" {
		os.Exit(m.Run())
	}

	db := testutil.MustOpenSQLDB("pgx", dsn)
	fsys, err := migrations.FS("postgres")
	if err != nil {
		log.Fatalf("TestMain: migrations: %v", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		log.Fatalf("TestMain: create goose provider: %v", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		log.Fatalf("TestMain: run migrations: %v", err)
	}
	db.Close()

	os.Exit(m.Run())
}

// newTestStore returns a Store over emptied trips and imports tables.
func newTestStore(t *testing.T) (*postgres.Store, *pgxpool.Pool) {
	t.Helper()
	pool := testutil.NewPool(t)

	_, err := pool.Exec(context.Background(), "TRUNCATE trips, imports RESTART IDENTITY")
	require.NoError(t, err, "truncate trips and imports")

	return postgres.New(pool, "trips"), pool
}

func load(t *testing.T, s *postgres.Store, records []core.Record, batchSize int) int64 {
	t.Helper()
	staging, skipped := core.Stage(context.Background(), records, nil)
	require.Zero(t, skipped)

	n, err := s.BulkInsert(context.Background(), "trips", staging, batchSize)
	require.NoError(t, err)
	return n
}

func countTrips(t *testing.T, pool *pgxpool.Pool) int64 {
	t.Helper()
	var n int64
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM trips").Scan(&n))
	return n
}

func TestStore_BulkInsert(t *testing.T) {
	s, pool := newTestStore(t)

	records := testutil.StandardTrips()
	n := load(t, s, records, 2)

	assert.Equal(t, int64(len(records)), n)
	assert.Equal(t, int64(len(records)), countTrips(t, pool))
}

func TestStore_BulkInsert_RoundTripsValues(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	in := testutil.TripFixture(0, 12*time.Minute, 3.75, 7, 333)
	in.FareAmount = 1999
	in.StoreAndFwdFlag = core.FlagYes
	load(t, s, []core.Record{in}, 10)

	trips, err := s.TripsByZone(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, trips, 1)

	got := trips[0]
	assert.NotZero(t, got.ID)
	assert.True(t, got.PickupTime.Equal(in.PickupTime), "pickup mismatch")
	assert.True(t, got.DropoffTime.Equal(in.DropoffTime), "dropoff mismatch")
	require.NotNil(t, got.PassengerCount)
	assert.Equal(t, 1, *got.PassengerCount)
	assert.Equal(t, 3.75, got.TripDistance)
	assert.Equal(t, core.FlagYes, got.StoreAndFwdFlag)
	assert.Equal(t, core.Money(1999), got.FareAmount)
	assert.Equal(t, core.Money(333), got.TipAmount)
}

func TestStore_BulkInsert_RollsBackOnFailure(t *testing.T) {
	s, pool := newTestStore(t)

	// The third row repeats the first row's key, which the unique index rejects.
	records := testutil.StandardTrips()
	records = append(records[:2], records[0])

	staging, _ := core.Stage(context.Background(), records, nil)
	_, err := s.BulkInsert(context.Background(), "trips", staging, 1)
	require.Error(t, err)
	assert.Equal(t, "DB001", core.MapError(err).Code)

	assert.Zero(t, countTrips(t, pool), "no batch may survive a failed call")
}

func TestStore_BulkInsert_NullPassengersNotUnique(t *testing.T) {
	s, pool := newTestStore(t)

	a := testutil.TripFixture(0, 10*time.Minute, 1, 5, 0)
	a.PassengerCount = nil
	b := a
	b.TripDistance = 2

	load(t, s, []core.Record{a, b}, 10)
	assert.Equal(t, int64(2), countTrips(t, pool))
}

func TestStore_Reports(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	load(t, s, testutil.StandardTrips(), 100)

	t.Run("top by distance", func(t *testing.T) {
		trips, err := s.TopByDistance(ctx, 2)
		require.NoError(t, err)
		require.Len(t, trips, 2)
		assert.Equal(t, 9.5, trips[0].TripDistance)
		assert.Equal(t, 3.0, trips[1].TripDistance)
	})

	t.Run("top by duration", func(t *testing.T) {
		trips, err := s.TopByDuration(ctx, 0)
		require.NoError(t, err)
		require.Len(t, trips, 5)
		assert.Equal(t, int64(45), trips[0].Minutes)
		assert.Equal(t, int64(5), trips[4].Minutes)
	})

	t.Run("top tip zone", func(t *testing.T) {
		zt, err := s.TopTipZone(ctx)
		require.NoError(t, err)
		assert.Equal(t, 132, zt.PULocationID)
		assert.Equal(t, core.Money(500), zt.AvgTip)
		assert.Equal(t, int64(2), zt.Trips)
	})

	t.Run("avg tip for zone", func(t *testing.T) {
		zt, err := s.AvgTipForZone(ctx, 48)
		require.NoError(t, err)
		assert.Equal(t, core.Money(100), zt.AvgTip)
		assert.Equal(t, int64(3), zt.Trips)
	})

	t.Run("avg tip for empty zone", func(t *testing.T) {
		_, err := s.AvgTipForZone(ctx, 999)
		assert.True(t, errors.Is(err, core.ErrNoTrips), "got %v", err)
	})

	t.Run("trips by zone", func(t *testing.T) {
		trips, err := s.TripsByZone(ctx, 48, 10)
		require.NoError(t, err)
		require.Len(t, trips, 3)
		assert.True(t, trips[0].PickupTime.Before(trips[1].PickupTime))
		assert.Nil(t, trips[2].PassengerCount)
	})
}

func TestStore_TopTipZone_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.TopTipZone(context.Background())
	assert.ErrorIs(t, err, core.ErrNoTrips)
}

func TestStore_ImportLog(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ok := core.ImportRecord{
		ID:         uuid.NewString(),
		FileName:   "yellow.csv",
		Table:      "trips",
		Status:     core.ImportCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		TotalRows:  10,
		Unique:     8,
		Duplicates: 2,
		Inserted:   8,
	}
	failed := core.ImportRecord{
		ID:         uuid.NewString(),
		FileName:   "broken.csv",
		Table:      "trips",
		Status:     core.ImportFailed,
		StartedAt:  started.Add(time.Minute),
		FinishedAt: started.Add(time.Minute),
		ErrorCode:  "PARSE001",
		Error:      "row 3: bad pickup time",
	}
	require.NoError(t, s.RecordImport(ctx, ok))
	require.NoError(t, s.RecordImport(ctx, failed))

	recs, err := s.RecentImports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, failed.ID, recs[0].ID, "newest first")
	assert.Equal(t, core.ImportFailed, recs[0].Status)
	assert.Equal(t, "PARSE001", recs[0].ErrorCode)
	assert.Equal(t, failed.Error, recs[0].Error)

	assert.Equal(t, ok.ID, recs[1].ID)
	assert.Equal(t, 8, recs[1].Unique)
	assert.Equal(t, int64(8), recs[1].Inserted)
	assert.Empty(t, recs[1].ErrorCode)
	assert.True(t, recs[1].StartedAt.Equal(started))

	recs, err = s.RecentImports(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestStore_PruneImports(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{time.Hour, 100 * 24 * time.Hour, 200 * 24 * time.Hour} {
		require.NoError(t, s.RecordImport(ctx, core.ImportRecord{
			ID:         uuid.NewString(),
			FileName:   "old.csv",
			Table:      "trips",
			Status:     core.ImportCompleted,
			StartedAt:  now.Add(-age),
			FinishedAt: now.Add(-age),
		}))
	}

	n, err := s.PruneImports(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	recs, err := s.RecentImports(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestStore_RecordImport_BadID(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.RecordImport(context.Background(), core.ImportRecord{ID: "not-a-uuid"})
	assert.Error(t, err)
}
