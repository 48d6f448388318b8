package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/internal/report"
	"github.com/Sumatoshi-tech/protoforge/pkg/config"
)

// ReportCommand holds flags for the report command.
type ReportCommand struct {
	configPath string
	format     string
	output     string
	silent     bool
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	rc := &ReportCommand{}

	cmd := &cobra.Command{
		Use:   "report [path]",
		Short: "Render a saved run report",
		Long: `Report renders a saved run report in the requested format. Without a
path argument the newest report in the configured report directory is
used. The html format produces a standalone page suitable for CI
artifacts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "Config file path (default: search .protoforge.yaml in . and $HOME)")
	cmd.Flags().StringVar(&rc.format, "format", report.FormatTable, "Output format: table, json, yaml, html")
	cmd.Flags().StringVarP(&rc.output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&rc.silent, "silent", false, "Disable progress output")

	return cmd
}

func (rc *ReportCommand) run(cmd *cobra.Command, args []string) error {
	path, err := rc.resolvePath(args)
	if err != nil {
		return err
	}

	rep, err := report.Load(path)
	if err != nil {
		return err
	}

	writer, closeWriter, err := rc.openOutput(cmd)
	if err != nil {
		return err
	}
	defer closeWriter()

	renderErr := report.Render(writer, rep, rc.format)
	if renderErr != nil {
		return renderErr
	}

	if rc.output != "" {
		progressf(isSilent(cmd, rc.silent), cmd.ErrOrStderr(), "report rendered to %s", rc.output)
	}

	return nil
}

// resolvePath picks the report to render: the positional argument when
// given, the newest stored report otherwise.
func (rc *ReportCommand) resolvePath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return "", err
	}

	return report.NewStore(cfg.Report).Latest()
}

func (rc *ReportCommand) openOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	if rc.output == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}

	file, err := os.Create(rc.output)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}

	return file, func() { _ = file.Close() }, nil
}
