package core

import (
	"context"
	"errors"
)

// DefaultReportLimit is the row count for top-N reports.
const DefaultReportLimit = 100

// ErrNoTrips is returned by aggregate reports when the table has no matching rows.
var ErrNoTrips = errors.New("no trips found")

// TripDuration pairs a trip with its elapsed minutes.
type TripDuration struct {
	Trip
	Minutes int64 `json:"minutes"`
}

// ZoneTip is the average tip for one pickup zone.
type ZoneTip struct {
	PULocationID int   `json:"pu_location_id"`
	AvgTip       Money `json:"avg_tip"`
	Trips        int64 `json:"trips"`
}

// Reporter answers the analytical queries run against the trips table.
type Reporter interface {
	// TopByDistance returns the longest trips, longest first.
	TopByDistance(ctx context.Context, limit int) ([]Trip, error)

	// TopByDuration returns the trips with the largest whole-minute duration.
	TopByDuration(ctx context.Context, limit int) ([]TripDuration, error)

	// TopTipZone returns the pickup zone with the highest average tip.
	TopTipZone(ctx context.Context) (ZoneTip, error)

	// AvgTipForZone returns the average tip for one pickup zone.
	AvgTipForZone(ctx context.Context, zone int) (ZoneTip, error)

	// TripsByZone returns trips picked up in zone, ordered by pickup time.
	TripsByZone(ctx context.Context, zone int, limit int) ([]Trip, error)
}

// ClampLimit returns limit, or DefaultReportLimit when limit is not positive.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultReportLimit
	}
	return limit
}
