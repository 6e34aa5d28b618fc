package core

// convert.go provides the field-level conversions from CSV cells to trip values.
//
// Each helper accepts the raw cell text and returns a typed value or a plain
// error describing what was wrong. Callers attach line and column context by
// wrapping the result in a ParseError.
//
// Timestamps are civil (wall-clock) times in the source zone unless they carry
// an explicit offset, in which case the offset wins.

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a plain decimal number.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Civil timestamp layouts accepted for pickup and dropoff columns, tried in order.
var timestampLayouts = []string{
	"01/02/2006 03:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
}

var errEmpty = errors.New("value is required")

// parseWallClock parses s with the accepted timestamp layouts. Civil layouts
// are returned as a wall clock in UTC with offset false; inputs carrying an
// explicit offset (RFC 3339) are returned as the instant with offset true.
func parseWallClock(s string) (t time.Time, offset bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, errEmpty
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true, nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, nil
		}
	}

	return time.Time{}, false, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseOptionalCount parses a non-negative count. An empty cell means the
// value is absent and yields nil. Integer-valued decimals such as "1.0" are
// accepted since some exports write counts as floats.
func ParseOptionalCount(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		if !numericRegex.MatchString(s) {
			return nil, fmt.Errorf("not an integer")
		}
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || f > math.MaxInt32 {
			return nil, fmt.Errorf("not an integer")
		}
		n = int(f)
	}
	if n < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return &n, nil
}

// ParseLocationID parses a taxi zone identifier, which must be positive.
func ParseLocationID(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmpty
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}

// ParseDistance parses a non-negative trip distance in miles.
func ParseDistance(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmpty
	}
	if !numericRegex.MatchString(s) {
		return 0, fmt.Errorf("not a number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if f < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return f, nil
}

// ParseAmount parses a non-negative currency amount.
func ParseAmount(s string) (Money, error) {
	if strings.TrimSpace(s) == "" {
		return 0, errEmpty
	}
	m, err := ParseMoney(s)
	if err != nil {
		return 0, err
	}
	if m < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return m, nil
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Names are matched exactly after trimming surrounding whitespace.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := CleanCell(h)
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanCell trims whitespace and a stray byte-order mark from a cell.
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.TrimSpace(s)
}
