package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/internal/build"
	"github.com/Sumatoshi-tech/protoforge/internal/report"
	"github.com/Sumatoshi-tech/protoforge/internal/target"
	"github.com/Sumatoshi-tech/protoforge/internal/toolchain"
	"github.com/Sumatoshi-tech/protoforge/pkg/persist"
)

// ErrUnknownPlanFormat indicates an unsupported plan output format.
var ErrUnknownPlanFormat = errors.New("unknown plan format")

// PlanCommand holds flags for the plan command.
type PlanCommand struct {
	sharedFlags
	format string
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	pc := &PlanCommand{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the invocations generate would run, without running them",
		Args:  cobra.NoArgs,
		RunE:  pc.run,
	}

	pc.register(cmd)
	cmd.Flags().StringVar(&pc.format, "format", report.FormatTable, "Output format: table, json, yaml")

	return cmd
}

func (pc *PlanCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := pc.loadConfig(cmd)
	if err != nil {
		return err
	}

	targets, err := target.FromConfig(cfg)
	if err != nil {
		return err
	}

	// The runner is never invoked: planning executes nothing.
	orch, err := build.New(cfg, targets, toolchain.ExecRunner{})
	if err != nil {
		return err
	}

	plans, err := orch.Plan()
	if err != nil {
		return err
	}

	return renderPlans(cmd.OutOrStdout(), plans, pc.format)
}

func renderPlans(w io.Writer, plans []build.PlannedInvocation, format string) error {
	switch format {
	case report.FormatTable:
		renderPlanTable(w, plans)

		return nil
	case report.FormatJSON:
		err := persist.NewJSONCodec().Encode(w, plans)
		if err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}

		return nil
	case report.FormatYAML:
		err := persist.NewYAMLCodec().Encode(w, plans)
		if err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPlanFormat, format)
	}
}

func renderPlanTable(w io.Writer, plans []build.PlannedInvocation) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"TARGET", "KIND", "FILE", "COMMAND"})

	for _, plan := range plans {
		tbl.AppendRow(table.Row{
			plan.Target,
			plan.Kind,
			plan.File,
			strings.Join(plan.Argv, " "),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d invocations", len(plans)), "", "", ""})

	fmt.Fprintln(w, tbl.Render())
}
