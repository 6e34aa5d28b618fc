package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/TripLoader/internal/application"
	"github.com/JonMunkholm/TripLoader/internal/core"
)

func newImportCommand(rt *session) *cobra.Command {
	var (
		table      string
		batchSize  int
		duplicates string
		sourceTZ   string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a trip CSV file",
		Long: `
Parses the file, writes rows whose pickup time, dropoff time and passenger
count repeat an earlier row to the duplicates file, and bulk loads the
remaining trips in a single transaction. Nothing is loaded if any row is
malformed. With --dry-run the file is only parsed and counted; nothing
is written and the database is not contacted.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ic := &rt.cfg.Import
			if cmd.Flags().Changed("table") {
				ic.Table = table
			}
			if cmd.Flags().Changed("batch-size") {
				ic.BatchSize = batchSize
			}
			if cmd.Flags().Changed("duplicates") {
				ic.DuplicatesPath = duplicates
			}
			if cmd.Flags().Changed("source-tz") {
				ic.SourceZone = sourceTZ
			}
			if err := rt.cfg.Validate(); err != nil {
				return err
			}
			if dryRun {
				return rt.checkFile(args[0])
			}

			dest, err := rt.destination(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := rt.service(dest)
			if err != nil {
				return err
			}

			result, err := svc.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rt.asJSON {
				return rt.printJSON(result)
			}
			application.WriteImportResult(rt.stdout, result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&table, "table", "", "destination table (default from IMPORT_TABLE)")
	flags.IntVar(&batchSize, "batch-size", 0, "rows per bulk-copy batch (default from IMPORT_BATCH_SIZE)")
	flags.StringVarP(&duplicates, "duplicates", "d", "", "duplicates CSV path (default from IMPORT_DUPLICATES_PATH)")
	flags.StringVar(&sourceTZ, "source-tz", "", "IANA zone of the CSV timestamps (default from IMPORT_SOURCE_TZ)")
	flags.BoolVar(&dryRun, "dry-run", false, "parse and count rows without loading them")
	return cmd
}

// checkFile parses path in memory and reports what an import would load.
func (rt *session) checkFile(path string) error {
	norm, err := core.NewNormalizer(rt.cfg.Import.SourceZone)
	if err != nil {
		return err
	}
	records, err := core.NewParser(norm).ReadAll(path)
	if err != nil {
		return err
	}
	unique, dups := core.Split(records)

	result := &core.ImportResult{
		FileName:   filepath.Base(path),
		TotalRows:  len(records),
		Unique:     len(unique),
		Duplicates: len(dups),
	}
	if rt.asJSON {
		return rt.printJSON(result)
	}
	application.WriteImportResult(rt.stdout, result)
	return nil
}
