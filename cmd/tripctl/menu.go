package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/TripLoader/internal/application"
)

func newMenuCommand(rt *session) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu for imports and reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := rt.destination(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := rt.service(dest)
			if err != nil {
				return err
			}

			in, ok := rt.stdin.(io.ReadCloser)
			if !ok {
				in = io.NopCloser(rt.stdin)
			}
			return application.New(svc, dest, rt.stdout, rt.stderr).Run(cmd.Context(), in)
		},
	}
}
