package core

import (
	"context"
	"log/slog"
	"time"
)

// DefaultBatchSize is the number of rows sent to the destination per batch.
const DefaultBatchSize = 5000

// ColumnType is the destination type of a staged column.
type ColumnType int

const (
	ColumnTimestamp ColumnType = iota // time.Time, UTC
	ColumnInt                         // int64
	ColumnFloat                       // float64
	ColumnDecimal                     // Money
	ColumnText                        // string
)

func (t ColumnType) String() string {
	switch t {
	case ColumnTimestamp:
		return "timestamp"
	case ColumnInt:
		return "int"
	case ColumnFloat:
		return "float"
	case ColumnDecimal:
		return "decimal"
	case ColumnText:
		return "text"
	default:
		return "unknown"
	}
}

// Column describes one destination column.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// TripColumns is the destination layout of the trips table, excluding the
// store-assigned id. Staged rows carry values in this order.
var TripColumns = []Column{
	{Name: "pickup_time", Type: ColumnTimestamp},
	{Name: "dropoff_time", Type: ColumnTimestamp},
	{Name: "passenger_count", Type: ColumnInt, Nullable: true},
	{Name: "trip_distance", Type: ColumnFloat},
	{Name: "store_and_fwd_flag", Type: ColumnText},
	{Name: "pu_location_id", Type: ColumnInt},
	{Name: "do_location_id", Type: ColumnInt},
	{Name: "fare_amount", Type: ColumnDecimal},
	{Name: "tip_amount", Type: ColumnDecimal},
}

// Staging is the tabular form handed to a BulkInserter.
// Null values are represented by a nil entry.
type Staging struct {
	Columns []Column
	Rows    [][]any
}

// Names returns the column names in order.
func (s *Staging) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of staged rows.
func (s *Staging) Len() int {
	return len(s.Rows)
}

// Stage converts records into rows matching TripColumns. Records with a zero
// pickup or dropoff time cannot satisfy the destination schema and are
// dropped with a warning on log (slog.Default when nil); the count of
// dropped rows is returned.
func Stage(ctx context.Context, records []Record, log *slog.Logger) (*Staging, int) {
	if log == nil {
		log = slog.Default()
	}
	s := &Staging{
		Columns: TripColumns,
		Rows:    make([][]any, 0, len(records)),
	}

	skipped := 0
	for i, r := range records {
		if r.PickupTime.IsZero() || r.DropoffTime.IsZero() {
			skipped++
			log.WarnContext(ctx, "skipping record without trip times",
				"index", i,
				"record", r.String(),
			)
			continue
		}
		s.Rows = append(s.Rows, stageRow(r))
	}
	return s, skipped
}

func stageRow(r Record) []any {
	var passengers any
	if r.PassengerCount != nil {
		passengers = int64(*r.PassengerCount)
	}
	return []any{
		r.PickupTime.UTC(),
		r.DropoffTime.UTC(),
		passengers,
		r.TripDistance,
		r.StoreAndFwdFlag,
		int64(r.PULocationID),
		int64(r.DOLocationID),
		r.FareAmount,
		r.TipAmount,
	}
}

// BulkInserter writes staged rows to a destination table in batches.
// Implementations must apply every batch of one call atomically.
type BulkInserter interface {
	BulkInsert(ctx context.Context, table string, s *Staging, batchSize int) (int64, error)
}

// RecordFromRow rebuilds a Record from a row in TripColumns order.
// Stores use it when scanning query results into a Trip.
func RecordFromRow(pickup, dropoff time.Time, passengers *int64, distance float64, flag string, pu, do int64, fare, tip Money) Record {
	r := Record{
		PickupTime:      pickup.UTC(),
		DropoffTime:     dropoff.UTC(),
		TripDistance:    distance,
		StoreAndFwdFlag: flag,
		PULocationID:    int(pu),
		DOLocationID:    int(do),
		FareAmount:      fare,
		TipAmount:       tip,
	}
	if passengers != nil {
		n := int(*passengers)
		r.PassengerCount = &n
	}
	return r
}
