package core

import (
	"fmt"
	"strings"
)

// HeaderIndex maps header names to column positions.
type HeaderIndex map[string]int

// ColumnMap names the CSV header for each logical trip field.
type ColumnMap struct {
	PickupTime      string
	DropoffTime     string
	PassengerCount  string
	TripDistance    string
	StoreAndFwdFlag string
	PULocationID    string
	DOLocationID    string
	FareAmount      string
	TipAmount       string
}

// DefaultColumns matches the yellow-cab trip record export.
var DefaultColumns = ColumnMap{
	PickupTime:      "tpep_pickup_datetime",
	DropoffTime:     "tpep_dropoff_datetime",
	PassengerCount:  "passenger_count",
	TripDistance:    "trip_distance",
	StoreAndFwdFlag: "store_and_fwd_flag",
	PULocationID:    "PULocationID",
	DOLocationID:    "DOLocationID",
	FareAmount:      "fare_amount",
	TipAmount:       "tip_amount",
}

// Header returns the column names in output order.
func (m ColumnMap) Header() []string {
	return []string{
		m.PickupTime,
		m.DropoffTime,
		m.PassengerCount,
		m.TripDistance,
		m.StoreAndFwdFlag,
		m.PULocationID,
		m.DOLocationID,
		m.FareAmount,
		m.TipAmount,
	}
}

// required lists the columns that must be present in the header.
func (m ColumnMap) required() []string {
	return []string{
		m.PickupTime,
		m.DropoffTime,
		m.TripDistance,
		m.PULocationID,
		m.DOLocationID,
		m.FareAmount,
		m.TipAmount,
	}
}

// Validate reports header columns that are required but missing.
func (m ColumnMap) Validate(idx HeaderIndex) error {
	var missing []string
	for _, name := range m.required() {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required columns: %s", ErrParse, strings.Join(missing, ", "))
	}
	return nil
}

// Row extracts a RawRow from a CSV record using the header index.
// Cells past the end of a short row are treated as empty.
func (m ColumnMap) Row(idx HeaderIndex, record []string) RawRow {
	row := make(RawRow, len(idx))
	for _, name := range m.Header() {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			continue
		}
		row[name] = record[i]
	}
	return row
}
