package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/TripLoader/internal/config"
	"github.com/JonMunkholm/TripLoader/internal/core"
	"github.com/JonMunkholm/TripLoader/internal/logging"
	"github.com/JonMunkholm/TripLoader/internal/store"
)

// session carries state shared by every subcommand. The store is opened on
// first use so that commands failing validation never touch the database.
type session struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	envFile string
	asJSON  bool

	cfg       *config.Config
	openStore func(ctx context.Context, cfg config.DatabaseConfig, table string) (store.Store, error)
	dest      store.Store
}

// NewRootCommand builds the tripctl command tree.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rt := &session{stdin: stdin, stdout: stdout, stderr: stderr, openStore: store.Open}
	return newRootCommand(rt)
}

func newRootCommand(rt *session) *cobra.Command {
	rc := &cobra.Command{
		Use:   "tripctl",
		Short: "Load taxi trip CSV files and query them",
		Long: `tripctl parses taxi trip CSV exports, converts their timestamps to UTC,
drops duplicate trips into a separate CSV, and bulk loads the rest.

Settings come from the environment (see .env.example); flags override
the import settings for a single run.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || (cmd.HasParent() && cmd.Parent().Name() == "completion") {
				return nil
			}
			return rt.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rt.close()
		},
	}
	rc.SetIn(rt.stdin)
	rc.SetOut(rt.stdout)
	rc.SetErr(rt.stderr)

	pf := rc.PersistentFlags()
	pf.StringVar(&rt.envFile, "env-file", ".env", "dotenv file to read before the environment")
	pf.BoolVar(&rt.asJSON, "json", false, "print results as JSON")

	rc.AddCommand(newImportCommand(rt))
	rc.AddCommand(newReportCommand(rt))
	rc.AddCommand(newTripsCommand(rt))
	rc.AddCommand(newHistoryCommand(rt))
	rc.AddCommand(newMigrateCommand(rt))
	rc.AddCommand(newMenuCommand(rt))
	return rc
}

// init loads configuration and sets up logging.
func (rt *session) init() error {
	if rt.cfg != nil {
		return nil
	}
	if err := config.LoadEnvFiles(rt.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, rt.stderr)
	rt.cfg = cfg
	return nil
}

// destination opens the store on first use.
func (rt *session) destination(ctx context.Context) (store.Store, error) {
	if rt.dest != nil {
		return rt.dest, nil
	}
	dest, err := rt.openStore(ctx, rt.cfg.Database, rt.cfg.Import.Table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrPersist, err)
	}
	rt.dest = dest
	return dest, nil
}

func (rt *session) close() error {
	if rt.dest == nil {
		return nil
	}
	err := rt.dest.Close()
	rt.dest = nil
	return err
}

// service builds an import pipeline that loads into dest and records each
// run in its import log.
func (rt *session) service(dest store.Store) (*core.Service, error) {
	ic := rt.cfg.Import
	norm, err := core.NewNormalizer(ic.SourceZone)
	if err != nil {
		return nil, err
	}
	return core.NewService(dest, norm, core.Options{
		Table:          ic.Table,
		BatchSize:      ic.BatchSize,
		DuplicatesPath: ic.DuplicatesPath,
		Timeout:        ic.Timeout,
		MaxFileSize:    ic.MaxFileSize,
	}, core.NewImportLimiter(ic.MaxWait)).WithHistory(dest), nil
}

// printJSON writes v indented, for --json output.
func (rt *session) printJSON(v any) error {
	enc := json.NewEncoder(rt.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
