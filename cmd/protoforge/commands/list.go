package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/internal/sources"
	"github.com/Sumatoshi-tech/protoforge/pkg/safeconv"
	"github.com/Sumatoshi-tech/protoforge/pkg/textutil"
)

// ListCommand holds flags for the list command.
type ListCommand struct {
	sharedFlags
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	lc := &ListCommand{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the proto sources a run would compile",
		Long: `List enumerates the proto files under the configured source directory
and prints their size and line count. Files that open with a proto
syntax declaration but hide behind another extension are reported as
warnings on stderr.`,
		Args: cobra.NoArgs,
		RunE: lc.run,
	}

	lc.register(cmd)

	return cmd
}

func (lc *ListCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := lc.loadConfig(cmd)
	if err != nil {
		return err
	}

	files, err := sources.Collect(cfg.ProtoDir, cfg.Recursive)
	if err != nil {
		return err
	}

	renderErr := renderSourceTable(cmd, cfg.ProtoDir, files)
	if renderErr != nil {
		return renderErr
	}

	strays, err := sources.FindStrays(cfg.ProtoDir, cfg.Recursive)
	if err != nil {
		return err
	}

	warnStrays(cmd, strays)

	return nil
}

func renderSourceTable(cmd *cobra.Command, protoDir string, files []string) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"FILE", "SIZE", "LINES"})

	var totalBytes uint64

	totalLines := 0

	for _, file := range files {
		size, lines, err := sourceStats(file)
		if err != nil {
			return err
		}

		totalBytes += size
		totalLines += lines

		tbl.AppendRow(table.Row{displayPath(protoDir, file), humanize.Bytes(size), lines})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d files", len(files)),
		humanize.Bytes(totalBytes),
		totalLines,
	})

	_, err := fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
	if err != nil {
		return fmt.Errorf("write source table: %w", err)
	}

	return nil
}

func sourceStats(path string) (size uint64, lines int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", path, err)
	}

	return safeconv.MustInt64ToUint64(int64(len(data))), textutil.CountLines(data), nil
}

// displayPath shortens file to its path relative to protoDir, keeping
// the absolute path when file lives elsewhere.
func displayPath(protoDir, file string) string {
	rel, err := filepath.Rel(protoDir, file)
	if err != nil {
		return file
	}

	return rel
}

func warnStrays(cmd *cobra.Command, strays []sources.Stray) {
	yellow := color.New(color.FgYellow)

	for _, stray := range strays {
		lang := stray.Language
		if lang == "" {
			lang = "unknown"
		}

		_, _ = yellow.Fprintf(cmd.ErrOrStderr(),
			"warning: %s contains a proto definition (detected as %s); rename it to *.proto to include it\n",
			stray.Path, lang)
	}
}
