package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// WriteDuplicates writes records to path in the input column layout,
// replacing any existing file. An empty slice produces a header-only file.
// Timestamps are written in the normalizer's zone with an explicit offset so
// the file parses back to the same instants.
func (n *Normalizer) WriteDuplicates(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := n.EncodeDuplicates(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// EncodeDuplicates writes the CSV form of records to w.
func (n *Normalizer) EncodeDuplicates(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(n.Columns.Header()); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(n.encodeRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (n *Normalizer) encodeRecord(r Record) []string {
	passengers := ""
	if r.PassengerCount != nil {
		passengers = strconv.Itoa(*r.PassengerCount)
	}
	return []string{
		n.InZone(r.PickupTime).Format(time.RFC3339Nano),
		n.InZone(r.DropoffTime).Format(time.RFC3339Nano),
		passengers,
		strconv.FormatFloat(r.TripDistance, 'f', -1, 64),
		r.StoreAndFwdFlag,
		strconv.Itoa(r.PULocationID),
		strconv.Itoa(r.DOLocationID),
		r.FareAmount.String(),
		r.TipAmount.String(),
	}
}
