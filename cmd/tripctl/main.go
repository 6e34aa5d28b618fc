// Command tripctl imports taxi trip CSV files and runs reports against the
// loaded trips.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/TripLoader/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		stop()
		os.Exit(exitCode(err))
	}
}

// describe prefers the mapped user message, falling back to the raw error.
func describe(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}

// Exit codes: 1 unexpected, 2 bad input file, 3 parse error,
// 4 duplicates file, 5 database, 6 another import running.
func exitCode(err error) int {
	switch {
	case errors.Is(err, core.ErrImportBusy):
		return 6
	case errors.Is(err, core.ErrInput):
		return 2
	case errors.Is(err, core.ErrParse):
		return 3
	case errors.Is(err, core.ErrOverflow):
		return 4
	case errors.Is(err, core.ErrPersist):
		return 5
	default:
		return 1
	}
}
