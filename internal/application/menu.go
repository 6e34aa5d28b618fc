// Package application implements the interactive console menu for importing
// trip files and running reports.
package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/JonMunkholm/TripLoader/internal/core"
)

// Importer runs one import of the file at path.
type Importer interface {
	Import(ctx context.Context, path string) (*core.ImportResult, error)
}

// lineReader is the part of *readline.Instance the menu uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// MenuItem is one selectable entry. Action receives a reader for follow-up
// prompts.
type MenuItem struct {
	Key    string
	Label  string
	Action func(ctx context.Context, in lineReader) error
}

// Menu is the ordered list of entries shown at the main prompt.
type Menu struct {
	Title string
	Items []MenuItem
}

const (
	promptMain = "tripctl> "
	exitKey    = "q"
)

// App is the console menu over an importer and a report source.
type App struct {
	importer Importer
	reports  core.Reporter
	out      io.Writer
	errOut   io.Writer
	menu     *Menu
}

// New creates an App writing tables to out and error messages to errOut.
func New(importer Importer, reports core.Reporter, out, errOut io.Writer) *App {
	a := &App{importer: importer, reports: reports, out: out, errOut: errOut}
	a.menu = a.buildMenu()
	return a
}

func (a *App) buildMenu() *Menu {
	return &Menu{
		Title: "Trip Loader",
		Items: []MenuItem{
			{Key: "1", Label: "Import a CSV file", Action: a.importFile},
			{Key: "2", Label: "Zone with the highest average tip", Action: a.topTipZone},
			{Key: "3", Label: "Top 100 trips by distance", Action: a.topDistance},
			{Key: "4", Label: "Top 100 trips by duration", Action: a.topDuration},
			{Key: "5", Label: "Trips and average tip for a pickup zone", Action: a.zoneTrips},
			{Key: exitKey, Label: "Quit"},
		},
	}
}

// Run reads commands from stdin until the user quits or input ends.
func (a *App) Run(ctx context.Context, stdin io.ReadCloser) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptMain,
		HistoryLimit:    -1,
		InterruptPrompt: "^C",
		EOFPrompt:       exitKey,
		Stdin:           stdin,
		Stdout:          a.out,
		Stderr:          a.errOut,
	})
	if err != nil {
		return fmt.Errorf("application.Run: readline: %w", err)
	}
	defer rl.Close()

	return a.loop(ctx, rl)
}

func (a *App) loop(ctx context.Context, in lineReader) error {
	for {
		a.printMenu()
		in.SetPrompt(promptMain)

		line, err := in.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("application.loop: %w", err)
		}

		key := strings.ToLower(strings.TrimSpace(line))
		if key == exitKey {
			return nil
		}
		if key == "" {
			continue
		}

		item, ok := a.lookup(key)
		if !ok {
			fmt.Fprintf(a.errOut, "Unknown option %q\n", key)
			continue
		}
		if err := item.Action(ctx, in); err != nil {
			a.printError(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (a *App) lookup(key string) (MenuItem, bool) {
	for _, it := range a.menu.Items {
		if it.Key == key && it.Action != nil {
			return it, true
		}
	}
	return MenuItem{}, false
}

func (a *App) printMenu() {
	fmt.Fprintf(a.out, "\n%s\n", a.menu.Title)
	for _, it := range a.menu.Items {
		fmt.Fprintf(a.out, "  %s) %s\n", it.Key, it.Label)
	}
}

func (a *App) printError(err error) {
	if core.IsUserFacing(err) {
		fmt.Fprintf(a.errOut, "Error: %s\n", core.FormatUserError(err))
		return
	}
	fmt.Fprintf(a.errOut, "Error: %v\n", err)
}

// ask shows prompt and returns the trimmed answer.
func ask(in lineReader, prompt string) (string, error) {
	in.SetPrompt(prompt)
	line, err := in.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) importFile(ctx context.Context, in lineReader) error {
	path, err := ask(in, "CSV path: ")
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("%w: no file path given", core.ErrInput)
	}

	result, err := a.importer.Import(ctx, path)
	if err != nil {
		return err
	}
	WriteImportResult(a.out, result)
	return nil
}

func (a *App) topTipZone(ctx context.Context, _ lineReader) error {
	zt, err := a.reports.TopTipZone(ctx)
	if err != nil {
		return err
	}
	WriteZoneTip(a.out, zt)
	return nil
}

func (a *App) topDistance(ctx context.Context, _ lineReader) error {
	trips, err := a.reports.TopByDistance(ctx, core.DefaultReportLimit)
	if err != nil {
		return err
	}
	WriteTrips(a.out, trips)
	return nil
}

func (a *App) topDuration(ctx context.Context, _ lineReader) error {
	trips, err := a.reports.TopByDuration(ctx, core.DefaultReportLimit)
	if err != nil {
		return err
	}
	WriteDurations(a.out, trips)
	return nil
}

func (a *App) zoneTrips(ctx context.Context, in lineReader) error {
	raw, err := ask(in, "Pickup zone: ")
	if err != nil {
		return err
	}
	zone, err := strconv.Atoi(raw)
	if err != nil || zone <= 0 {
		return fmt.Errorf("zone must be a positive integer, got %q", raw)
	}

	trips, err := a.reports.TripsByZone(ctx, zone, core.DefaultReportLimit)
	if err != nil {
		return err
	}
	WriteTrips(a.out, trips)

	zt, err := a.reports.AvgTipForZone(ctx, zone)
	if err != nil {
		return err
	}
	WriteZoneTip(a.out, zt)
	return nil
}
