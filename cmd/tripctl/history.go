package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/TripLoader/internal/application"
	"github.com/JonMunkholm/TripLoader/internal/core"
)

const defaultHistoryLimit = 20

func newHistoryCommand(rt *session) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := rt.destination(cmd.Context())
			if err != nil {
				return err
			}
			recs, err := dest.RecentImports(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if rt.asJSON {
				return rt.printJSON(recs)
			}
			application.WriteImports(rt.stdout, recs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "number of imports")
	cmd.AddCommand(newHistoryPruneCommand(rt))
	return cmd
}

func newHistoryPruneCommand(rt *session) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old import records",
		Long:  "Delete import records older than --older-than, or IMPORT_HISTORY_RETENTION when the flag is not given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("older-than") {
				olderThan = rt.cfg.Import.HistoryRetention
			}
			if olderThan <= 0 {
				return fmt.Errorf("%w: --older-than must be positive", core.ErrInput)
			}

			dest, err := rt.destination(cmd.Context())
			if err != nil {
				return err
			}
			n, err := dest.PruneImports(cmd.Context(), time.Now().Add(-olderThan).UTC())
			if err != nil {
				return err
			}
			if rt.asJSON {
				return rt.printJSON(map[string]int64{"deleted": n})
			}
			fmt.Fprintf(rt.stdout, "deleted %d import record(s)\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age of records to delete, e.g. 720h")
	return cmd
}
