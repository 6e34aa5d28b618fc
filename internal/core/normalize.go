package core

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone rules must not depend on the host's zoneinfo
)

// DefaultSourceZone is the zone trip timestamps are recorded in.
const DefaultSourceZone = "America/New_York"

// Normalizer converts raw trip fields into canonical form.
// The zero value is not usable; construct one with NewNormalizer.
type Normalizer struct {
	Location *time.Location
	Columns  ColumnMap
}

// NewNormalizer loads the IANA zone tzName (DefaultSourceZone when empty)
// and returns a Normalizer using DefaultColumns.
func NewNormalizer(tzName string) (*Normalizer, error) {
	if tzName == "" {
		tzName = DefaultSourceZone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", tzName, err)
	}
	return &Normalizer{Location: loc, Columns: DefaultColumns}, nil
}

// ToUTC reinterprets the wall clock of civil in the source zone and returns
// the equivalent UTC instant. Any location attached to civil is ignored.
// A wall time repeated by a DST transition resolves to standard time; one
// skipped by a transition does not exist and is an error.
func (n *Normalizer) ToUTC(civil time.Time) (time.Time, error) {
	y, mo, d := civil.Date()
	h, mi, s := civil.Clock()
	wall := time.Date(y, mo, d, h, mi, s, civil.Nanosecond(), time.UTC)

	// A transition moves the offset at most once in a day, so the offsets in
	// effect 12h either side of the naive guess cover every candidate.
	guess := time.Date(y, mo, d, h, mi, s, civil.Nanosecond(), n.Location)
	var (
		best    time.Time
		bestOff int
		found   bool
	)
	for _, at := range []time.Time{guess.Add(-12 * time.Hour), guess, guess.Add(12 * time.Hour)} {
		_, off := at.Zone()
		cand := wall.Add(-time.Duration(off) * time.Second)
		if !sameWallClock(cand.In(n.Location), wall) {
			continue
		}
		if !found || off < bestOff {
			best, bestOff, found = cand, off, true
		}
	}
	if !found {
		return time.Time{}, fmt.Errorf("%s does not exist in %s", wall.Format(time.DateTime), n.Location)
	}
	return best.UTC(), nil
}

// ParseTime parses a trip timestamp. Civil times are read in the source
// zone via ToUTC; RFC 3339 inputs keep their own offset. The result is UTC.
func (n *Normalizer) ParseTime(s string) (time.Time, error) {
	t, offset, err := parseWallClock(s)
	if err != nil || offset {
		return t, err
	}
	return n.ToUTC(t)
}

func sameWallClock(a, b time.Time) bool {
	ay, amo, ad := a.Date()
	by, bmo, bd := b.Date()
	ah, ami, as := a.Clock()
	bh, bmi, bs := b.Clock()
	return ay == by && amo == bmo && ad == bd &&
		ah == bh && ami == bmi && as == bs &&
		a.Nanosecond() == b.Nanosecond()
}

// InZone returns t expressed in the source zone.
func (n *Normalizer) InZone(t time.Time) time.Time {
	return t.In(n.Location)
}

// NormalizeFlag maps the single-letter store-and-forward flag to its
// canonical word. Unknown values pass through trimmed.
func NormalizeFlag(s string) string {
	trimmed := strings.TrimSpace(s)
	switch strings.ToUpper(trimmed) {
	case "N":
		return FlagNo
	case "Y":
		return FlagYes
	default:
		return trimmed
	}
}

// NewRecord validates a raw row and builds a canonical Record.
// The returned error is a *ParseError naming the first bad column; its Line
// is left for the caller to fill in.
func (n *Normalizer) NewRecord(row RawRow) (Record, error) {
	cols := n.Columns
	var (
		r   Record
		err error
	)

	if r.PickupTime, err = n.ParseTime(row[cols.PickupTime]); err != nil {
		return Record{}, fieldError(cols.PickupTime, row[cols.PickupTime], err)
	}
	if r.DropoffTime, err = n.ParseTime(row[cols.DropoffTime]); err != nil {
		return Record{}, fieldError(cols.DropoffTime, row[cols.DropoffTime], err)
	}
	if r.PassengerCount, err = ParseOptionalCount(row[cols.PassengerCount]); err != nil {
		return Record{}, fieldError(cols.PassengerCount, row[cols.PassengerCount], err)
	}
	if r.TripDistance, err = ParseDistance(row[cols.TripDistance]); err != nil {
		return Record{}, fieldError(cols.TripDistance, row[cols.TripDistance], err)
	}
	r.StoreAndFwdFlag = NormalizeFlag(row[cols.StoreAndFwdFlag])
	if r.PULocationID, err = ParseLocationID(row[cols.PULocationID]); err != nil {
		return Record{}, fieldError(cols.PULocationID, row[cols.PULocationID], err)
	}
	if r.DOLocationID, err = ParseLocationID(row[cols.DOLocationID]); err != nil {
		return Record{}, fieldError(cols.DOLocationID, row[cols.DOLocationID], err)
	}
	if r.FareAmount, err = ParseAmount(row[cols.FareAmount]); err != nil {
		return Record{}, fieldError(cols.FareAmount, row[cols.FareAmount], err)
	}
	if r.TipAmount, err = ParseAmount(row[cols.TipAmount]); err != nil {
		return Record{}, fieldError(cols.TipAmount, row[cols.TipAmount], err)
	}

	return r, nil
}
