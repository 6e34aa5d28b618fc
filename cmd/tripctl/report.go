package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/TripLoader/internal/application"
	"github.com/JonMunkholm/TripLoader/internal/core"
)

func newReportCommand(rt *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run a report against the loaded trips",
	}
	cmd.AddCommand(
		newTopDistanceCommand(rt),
		newTopDurationCommand(rt),
		newTopTipZoneCommand(rt),
		newAvgTipCommand(rt),
	)
	return cmd
}

func newTopDistanceCommand(rt *session) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top-distance",
		Short: "Longest trips by distance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := rt.destination(cmd.Context())
			if err != nil {
				return err
			}
			trips, err := dest.TopByDistance(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if rt.asJSON {
				return rt.printJSON(trips)
			}
			application.WriteTrips(rt.stdout, trips)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", core.DefaultReportLimit, "number of trips")
	return cmd
}

func newTopDurationCommand(rt *session) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top-duration",
		Short: "Longest trips by elapsed minutes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := rt.destination(cmd.Context())
			if err != nil {
				return err
			}
			trips, err := dest.TopByDuration(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if rt.asJSON {
				return rt.printJSON(trips)
			}
			application.WriteDurations(rt.stdout, trips)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", core.DefaultReportLimit, "number of trips")
	return cmd
}

func newTopTipZoneCommand(rt *session) *cobra.Command {
	return &cobra.Command{
		Use:   "top-tip-zone",
		Short: "Pickup zone with the highest average tip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := rt.destination(cmd.Context())
			if err != nil {
				return err
			}
			zt, err := dest.TopTipZone(cmd.Context())
			if err != nil {
				return err
			}
			if rt.asJSON {
				return rt.printJSON(zt)
			}
			application.WriteZoneTip(rt.stdout, zt)
			return nil
		},
	}
}

func newAvgTipCommand(rt *session) *cobra.Command {
	var zone int
	cmd := &cobra.Command{
		Use:   "avg-tip",
		Short: "Average tip for one pickup zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := rt.destination(cmd.Context())
			if err != nil {
				return err
			}
			zt, err := dest.AvgTipForZone(cmd.Context(), zone)
			if err != nil {
				return err
			}
			if rt.asJSON {
				return rt.printJSON(zt)
			}
			application.WriteZoneTip(rt.stdout, zt)
			return nil
		},
	}
	cmd.Flags().IntVarP(&zone, "zone", "z", 0, "pickup zone (PULocationID)")
	_ = cmd.MarkFlagRequired("zone")
	return cmd
}

func newTripsCommand(rt *session) *cobra.Command {
	var zone, limit int
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "List trips picked up in a zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := rt.destination(cmd.Context())
			if err != nil {
				return err
			}
			trips, err := dest.TripsByZone(cmd.Context(), zone, limit)
			if err != nil {
				return err
			}
			if rt.asJSON {
				return rt.printJSON(trips)
			}
			application.WriteTrips(rt.stdout, trips)
			return nil
		},
	}
	cmd.Flags().IntVarP(&zone, "zone", "z", 0, "pickup zone (PULocationID)")
	cmd.Flags().IntVarP(&limit, "limit", "n", core.DefaultReportLimit, "number of trips")
	_ = cmd.MarkFlagRequired("zone")
	return cmd
}
