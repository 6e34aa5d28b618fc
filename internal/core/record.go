package core

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Canonical store-and-forward flag values.
const (
	FlagYes = "Yes"
	FlagNo  = "No"
)

// RawRow is one input line keyed by header name.
type RawRow map[string]string

// Record is a single normalized trip. Timestamps are always UTC.
type Record struct {
	PickupTime      time.Time `json:"pickup_time"`
	DropoffTime     time.Time `json:"dropoff_time"`
	PassengerCount  *int      `json:"passenger_count"` // nil when the source row had no value
	TripDistance    float64   `json:"trip_distance"`
	StoreAndFwdFlag string    `json:"store_and_fwd_flag"`
	PULocationID    int       `json:"pu_location_id"`
	DOLocationID    int       `json:"do_location_id"`
	FareAmount      Money     `json:"fare_amount"`
	TipAmount       Money     `json:"tip_amount"`
}

// Key returns the identity used for duplicate detection.
func (r Record) Key() Key {
	k := Key{
		Pickup:  r.PickupTime.UTC().Round(0),
		Dropoff: r.DropoffTime.UTC().Round(0),
	}
	if r.PassengerCount != nil {
		k.Passengers = *r.PassengerCount
		k.HasPassengers = true
	}
	return k
}

// Duration returns the elapsed time between pickup and dropoff.
func (r Record) Duration() time.Duration {
	return r.DropoffTime.Sub(r.PickupTime)
}

func (r Record) String() string {
	passengers := "-"
	if r.PassengerCount != nil {
		passengers = strconv.Itoa(*r.PassengerCount)
	}
	return fmt.Sprintf("pickup=%s dropoff=%s passengers=%s distance=%.2f pu=%d do=%d fare=%s tip=%s flag=%s",
		r.PickupTime.Format(time.RFC3339), r.DropoffTime.Format(time.RFC3339), passengers,
		r.TripDistance, r.PULocationID, r.DOLocationID, r.FareAmount, r.TipAmount, r.StoreAndFwdFlag)
}

// Key is the composite duplicate-detection identity: pickup, dropoff and
// passenger count. An absent passenger count compares equal to another
// absent passenger count and never to a present one.
type Key struct {
	Pickup        time.Time
	Dropoff       time.Time
	Passengers    int
	HasPassengers bool
}

// Trip is a record that has been persisted and assigned an identity.
type Trip struct {
	ID int64 `json:"id"`
	Record
}

// Money is a fixed-point currency amount in hundredths (cents).
type Money int64

var hundred = big.NewInt(100)

// ParseMoney parses a decimal string into Money, rounding half away from
// zero to two decimal places.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if !numericRegex.MatchString(s) {
		return 0, fmt.Errorf("not a number")
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("not a number")
	}
	r.Mul(r, new(big.Rat).SetInt(hundred))

	num := new(big.Int).Set(r.Num())
	den := r.Denom()
	neg := num.Sign() < 0
	num.Abs(num)

	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if new(big.Int).Mul(rem, big.NewInt(2)).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() {
		return 0, fmt.Errorf("amount out of range")
	}
	v := q.Int64()
	if neg {
		v = -v
	}
	return Money(v), nil
}

// Cents returns the amount in hundredths.
func (m Money) Cents() int64 {
	return int64(m)
}

// Float returns the amount as a float for display and aggregation.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// String formats the amount with exactly two decimal places.
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a decimal number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}
