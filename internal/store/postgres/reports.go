package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/TripLoader/internal/core"
)

// tripColumns selects a trip with money already converted to cents.
const tripColumns = `id, pickup_time, dropoff_time, passenger_count, trip_distance,
	store_and_fwd_flag, pu_location_id, do_location_id,
	(fare_amount * 100)::bigint, (tip_amount * 100)::bigint`

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(s scanner, extra ...any) (core.Trip, error) {
	var (
		t          core.Trip
		passengers *int64
		pu, do     int64
		fare, tip  int64
	)
	dest := append([]any{
		&t.ID, &t.PickupTime, &t.DropoffTime, &passengers, &t.TripDistance,
		&t.StoreAndFwdFlag, &pu, &do, &fare, &tip,
	}, extra...)

	if err := s.Scan(dest...); err != nil {
		return core.Trip{}, err
	}

	t.Record = core.RecordFromRow(t.PickupTime, t.DropoffTime, passengers, t.TripDistance,
		t.StoreAndFwdFlag, pu, do, core.Money(fare), core.Money(tip))
	return t, nil
}

func (s *Store) queryTrips(ctx context.Context, op, q string, args ...any) ([]core.Trip, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres.Store.%s: %w", op, err)
	}
	defer rows.Close()

	var trips []core.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres.Store.%s: scan: %w", op, err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.Store.%s: rows: %w", op, err)
	}
	return trips, nil
}

// TopByDistance returns the longest trips, longest first.
func (s *Store) TopByDistance(ctx context.Context, limit int) ([]core.Trip, error) {
	q := `SELECT ` + tripColumns + `
		FROM ` + s.table.Sanitize() + `
		ORDER BY trip_distance DESC, id
		LIMIT @limit`

	return s.queryTrips(ctx, "TopByDistance", q, pgx.NamedArgs{"limit": core.ClampLimit(limit)})
}

// TopByDuration returns the trips with the most whole minutes between pickup and dropoff.
func (s *Store) TopByDuration(ctx context.Context, limit int) ([]core.TripDuration, error) {
	q := `SELECT ` + tripColumns + `,
			TRUNC(EXTRACT(EPOCH FROM (dropoff_time - pickup_time)) / 60)::bigint AS minutes
		FROM ` + s.table.Sanitize() + `
		ORDER BY minutes DESC, id
		LIMIT @limit`

	rows, err := s.pool.Query(ctx, q, pgx.NamedArgs{"limit": core.ClampLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("postgres.Store.TopByDuration: %w", err)
	}
	defer rows.Close()

	var out []core.TripDuration
	for rows.Next() {
		var minutes int64
		t, err := scanTrip(rows, &minutes)
		if err != nil {
			return nil, fmt.Errorf("postgres.Store.TopByDuration: scan: %w", err)
		}
		out = append(out, core.TripDuration{Trip: t, Minutes: minutes})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.Store.TopByDuration: rows: %w", err)
	}
	return out, nil
}

// TopTipZone returns the pickup zone with the highest average tip.
func (s *Store) TopTipZone(ctx context.Context) (core.ZoneTip, error) {
	q := `SELECT pu_location_id, ROUND(AVG(tip_amount) * 100)::bigint, COUNT(*)
		FROM ` + s.table.Sanitize() + `
		GROUP BY pu_location_id
		ORDER BY AVG(tip_amount) DESC, pu_location_id
		LIMIT 1`

	var (
		zt  core.ZoneTip
		pu  int64
		avg int64
	)
	err := s.pool.QueryRow(ctx, q).Scan(&pu, &avg, &zt.Trips)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ZoneTip{}, fmt.Errorf("postgres.Store.TopTipZone: %w", core.ErrNoTrips)
	}
	if err != nil {
		return core.ZoneTip{}, fmt.Errorf("postgres.Store.TopTipZone: %w", err)
	}
	zt.PULocationID = int(pu)
	zt.AvgTip = core.Money(avg)
	return zt, nil
}

// AvgTipForZone returns the average tip for trips picked up in zone.
func (s *Store) AvgTipForZone(ctx context.Context, zone int) (core.ZoneTip, error) {
	q := `SELECT COALESCE(ROUND(AVG(tip_amount) * 100), 0)::bigint, COUNT(*)
		FROM ` + s.table.Sanitize() + `
		WHERE pu_location_id = @zone`

	zt := core.ZoneTip{PULocationID: zone}
	var avg int64
	if err := s.pool.QueryRow(ctx, q, pgx.NamedArgs{"zone": zone}).Scan(&avg, &zt.Trips); err != nil {
		return core.ZoneTip{}, fmt.Errorf("postgres.Store.AvgTipForZone: %w", err)
	}
	if zt.Trips == 0 {
		return core.ZoneTip{}, fmt.Errorf("postgres.Store.AvgTipForZone: zone %d: %w", zone, core.ErrNoTrips)
	}
	zt.AvgTip = core.Money(avg)
	return zt, nil
}

// TripsByZone returns trips picked up in zone, earliest first.
func (s *Store) TripsByZone(ctx context.Context, zone int, limit int) ([]core.Trip, error) {
	q := `SELECT ` + tripColumns + `
		FROM ` + s.table.Sanitize() + `
		WHERE pu_location_id = @zone
		ORDER BY pickup_time, id
		LIMIT @limit`

	return s.queryTrips(ctx, "TripsByZone", q, pgx.NamedArgs{"zone": zone, "limit": core.ClampLimit(limit)})
}
