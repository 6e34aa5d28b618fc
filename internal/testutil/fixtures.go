package testutil

import (
	"time"

	"github.com/JonMunkholm/TripLoader/internal/core"
)

// TripFixture returns a record with sensible defaults. The pickup is minute
// minutes after 2020-01-01 05:00 UTC and the trip lasts duration.
// Callers can override fields after calling this function.
func TripFixture(minute int, duration time.Duration, distance float64, zone int, tip core.Money) core.Record {
	pickup := time.Date(2020, 1, 1, 5, 0, 0, 0, time.UTC).Add(time.Duration(minute) * time.Minute)
	passengers := 1
	return core.Record{
		PickupTime:      pickup,
		DropoffTime:     pickup.Add(duration),
		PassengerCount:  &passengers,
		TripDistance:    distance,
		StoreAndFwdFlag: core.FlagNo,
		PULocationID:    zone,
		DOLocationID:    1,
		FareAmount:      1250,
		TipAmount:       tip,
	}
}

// StandardTrips is a small data set with known report answers:
// the longest trip is 9.5 miles, the longest duration 45 minutes,
// and zone 132 has the highest average tip (5.00).
func StandardTrips() []core.Record {
	noPassengers := TripFixture(4, 5*time.Minute, 0.4, 48, 0)
	noPassengers.PassengerCount = nil

	return []core.Record{
		TripFixture(0, 10*time.Minute, 1.5, 132, 400),
		TripFixture(1, 45*time.Minute, 9.5, 132, 600),
		TripFixture(2, 20*time.Minute, 3.0, 48, 200),
		TripFixture(3, 15*time.Minute, 2.25, 48, 100),
		noPassengers,
	}
}
