package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/protoforge/pkg/persist"
)

// Render format names.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatHTML  = "html"
)

// ErrUnknownFormat indicates a render format outside table/json/yaml/html.
var ErrUnknownFormat = errors.New("unknown report format")

// Render writes the report to w in the requested format.
func Render(w io.Writer, rep *RunReport, format string) error {
	switch format {
	case FormatTable:
		return renderTable(w, rep)
	case FormatJSON:
		return renderJSON(w, rep)
	case FormatYAML:
		return renderYAML(w, rep)
	case FormatHTML:
		return RenderHTML(w, rep)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Summary returns a one-line digest of the run.
func Summary(rep *RunReport) string {
	return fmt.Sprintf("%s: %d invocations, %d failed, %s",
		rep.Status, rep.InvocationCount(), rep.Failures(), rep.Elapsed().Round(time.Millisecond))
}

func renderTable(w io.Writer, rep *RunReport) error {
	_, err := fmt.Fprintf(w, "protoforge run %s\n\n", Summary(rep))
	if err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"TARGET", "KIND", "FILE", "EXIT", "DURATION", "STATUS"})

	for _, target := range rep.TargetReports {
		for _, inv := range target.Invocations {
			tbl.AppendRow(table.Row{
				target.Name,
				inv.Kind,
				inv.File,
				invocationExit(inv),
				inv.Duration.Round(time.Millisecond).String(),
				invocationStatus(inv),
			})
		}
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d targets", len(rep.TargetReports)), "", "",
		"", "", rep.Status})

	_, err = fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write report table: %w", err)
	}

	return nil
}

// invocationExit renders the exit column: the numeric code for processes
// that ran, "spawn" for ones that never started.
func invocationExit(inv InvocationResult) string {
	if inv.Err != "" {
		return "spawn"
	}

	return fmt.Sprintf("%d", inv.ExitCode)
}

func invocationStatus(inv InvocationResult) string {
	if inv.OK() {
		return StatusOK
	}

	return StatusFailed
}

func renderJSON(w io.Writer, rep *RunReport) error {
	return persist.NewJSONCodec().Encode(w, rep)
}

func renderYAML(w io.Writer, rep *RunReport) error {
	return persist.NewYAMLCodec().Encode(w, rep)
}
