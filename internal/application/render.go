package application

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"

	"github.com/JonMunkholm/TripLoader/internal/core"
)

// nullValue is shown for absent values; go-pretty does not expect nil cells.
const nullValue = "-"

var tripHeader = table.Row{
	"ID", "Pickup (UTC)", "Dropoff (UTC)", "Passengers", "Distance",
	"Flag", "PU Zone", "DO Zone", "Fare", "Tip",
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	// Keep header labels as written.
	t.Style().Format.Header = text.FormatDefault
	return t
}

func tripRow(tr core.Trip) table.Row {
	var passengers any = nullValue
	if tr.PassengerCount != nil {
		passengers = *tr.PassengerCount
	}
	return table.Row{
		tr.ID,
		tr.PickupTime.UTC().Format(time.DateTime),
		tr.DropoffTime.UTC().Format(time.DateTime),
		passengers,
		strconv.FormatFloat(tr.TripDistance, 'f', 2, 64),
		tr.StoreAndFwdFlag,
		tr.PULocationID,
		tr.DOLocationID,
		tr.FareAmount.String(),
		tr.TipAmount.String(),
	}
}

// WriteTrips renders trips as a table followed by a row count.
func WriteTrips(w io.Writer, trips []core.Trip) {
	t := newTable(w)
	t.AppendHeader(tripHeader)
	for _, tr := range trips {
		t.AppendRow(tripRow(tr))
	}
	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(trips))
}

// WriteDurations renders trips with their elapsed minutes as the first column.
func WriteDurations(w io.Writer, trips []core.TripDuration) {
	t := newTable(w)
	t.AppendHeader(append(table.Row{"Minutes"}, tripHeader...))
	for _, td := range trips {
		t.AppendRow(append(table.Row{td.Minutes}, tripRow(td.Trip)...))
	}
	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(trips))
}

// WriteZoneTip renders a single zone average.
func WriteZoneTip(w io.Writer, zt core.ZoneTip) {
	t := newTable(w)
	t.AppendHeader(table.Row{"PU Zone", "Average Tip", "Trips"})
	t.AppendRow(table.Row{zt.PULocationID, zt.AvgTip.String(), zt.Trips})
	t.Render()
}

// WriteImportResult renders an import summary as a two-column table.
func WriteImportResult(w io.Writer, r *core.ImportResult) {
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Import", r.ImportID},
		{"File", r.FileName},
		{"Rows read", r.TotalRows},
		{"Unique", r.Unique},
		{"Duplicates", r.Duplicates},
		{"Skipped", r.Skipped},
		{"Inserted", r.Inserted},
		{"Duplicates file", r.DuplicatesPath},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	})
	t.Render()
}

// WriteImports renders the import log, newest first.
func WriteImports(w io.Writer, recs []core.ImportRecord) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Started (UTC)", "File", "Status", "Rows", "Unique", "Duplicates", "Inserted", "Error"})
	for _, r := range recs {
		errCode := nullValue
		if r.ErrorCode != "" {
			errCode = r.ErrorCode
		}
		t.AppendRow(table.Row{
			r.StartedAt.UTC().Format(time.DateTime),
			r.FileName,
			string(r.Status),
			r.TotalRows,
			r.Unique,
			r.Duplicates,
			r.Inserted,
			errCode,
		})
	}
	t.Render()
	fmt.Fprintf(w, "(%d imports)\n", len(recs))
}
