package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/internal/target"
	"github.com/Sumatoshi-tech/protoforge/internal/toolchain"
)

// ErrMissingTools indicates at least one required executable could not
// be resolved.
var ErrMissingTools = errors.New("required tools missing")

// probeFunc resolves a tool name to an executable path, matching
// [toolchain.Probe].
type probeFunc func(tool string) (string, error)

// DoctorCommand holds flags and dependencies for the doctor command.
type DoctorCommand struct {
	sharedFlags
	versions bool

	probe  probeFunc
	runner toolchain.Runner
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return newDoctorCommandWithDeps(toolchain.Probe, toolchain.ExecRunner{})
}

func newDoctorCommandWithDeps(probe probeFunc, runner toolchain.Runner) *cobra.Command {
	dc := &DoctorCommand{probe: probe, runner: runner}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the external tools the configured targets need are installed",
		Args:  cobra.NoArgs,
		RunE:  dc.run,
	}

	dc.register(cmd)
	cmd.Flags().BoolVar(&dc.versions, "versions", false, "Also report each resolved tool's version")

	return cmd
}

func (dc *DoctorCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := dc.loadConfig(cmd)
	if err != nil {
		return err
	}

	targets, err := target.FromConfig(cfg)
	if err != nil {
		return err
	}

	tools := collectTools(targets)
	missing := 0

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, tool := range tools {
		path, probeErr := dc.probe(tool)
		if probeErr != nil {
			missing++

			_, _ = red.Fprintf(cmd.OutOrStdout(), "FAIL  %s: not found\n", tool)

			continue
		}

		_, _ = green.Fprintf(cmd.OutOrStdout(), "PASS  %s -> %s%s\n",
			tool, path, dc.versionSuffix(cmd, path))
	}

	if missing > 0 {
		return fmt.Errorf("%w: %d of %d", ErrMissingTools, missing, len(tools))
	}

	return nil
}

// versionSuffix runs "tool --version" and formats the first output line,
// or nothing when --versions is off or the probe fails.
func (dc *DoctorCommand) versionSuffix(cmd *cobra.Command, path string) string {
	if !dc.versions {
		return ""
	}

	res, err := dc.runner.Run(cmd.Context(), toolchain.Invocation{Argv: []string{path, "--version"}})
	if err != nil || !res.OK() {
		return " (version unknown)"
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(res.Output)), "\n")

	return " (" + line + ")"
}

// collectTools gathers the tools of every target, deduplicated in
// first-seen order.
func collectTools(targets []*target.Target) []string {
	var tools []string

	seen := make(map[string]bool)

	for _, tgt := range targets {
		for _, tool := range tgt.Tools() {
			if seen[tool] {
				continue
			}

			seen[tool] = true

			tools = append(tools, tool)
		}
	}

	return tools
}
