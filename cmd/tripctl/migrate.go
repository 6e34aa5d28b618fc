package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/TripLoader/internal/store"
)

func newMigrateCommand(rt *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the trips table schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dest, err := rt.destination(cmd.Context())
				if err != nil {
					return err
				}
				n, err := store.MigrateUp(cmd.Context(), dest)
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.stdout, "applied %d migration(s)\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dest, err := rt.destination(cmd.Context())
				if err != nil {
					return err
				}
				provider, err := store.NewMigrator(dest)
				if err != nil {
					return err
				}
				res, err := provider.Down(cmd.Context())
				if err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Fprintf(rt.stdout, "rolled back %s\n", res.Source.Path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dest, err := rt.destination(cmd.Context())
				if err != nil {
					return err
				}
				provider, err := store.NewMigrator(dest)
				if err != nil {
					return err
				}
				statuses, err := provider.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("migrate status: %w", err)
				}

				t := table.NewWriter()
				t.SetOutputMirror(rt.stdout)
				t.AppendHeader(table.Row{"Version", "File", "State", "Applied At"})
				for _, s := range statuses {
					applied := "-"
					if !s.AppliedAt.IsZero() {
						applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
					}
					t.AppendRow(table.Row{s.Source.Version, s.Source.Path, string(s.State), applied})
				}
				t.Render()
				return nil
			},
		},
	)
	return cmd
}
