package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/internal/report"
)

// ErrValidationFailed indicates a report document breaks the schema.
var ErrValidationFailed = errors.New("report validation failed")

// ValidateCommand holds flags for the validate command.
type ValidateCommand struct {
	noColor bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	vc := &ValidateCommand{}

	cmd := &cobra.Command{
		Use:   "validate <report.json>",
		Short: "Check a run report JSON document against the schema",
		Args:  cobra.ExactArgs(1),
		RunE:  vc.run,
	}

	cmd.Flags().BoolVar(&vc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (vc *ValidateCommand) run(cmd *cobra.Command, args []string) error {
	if vc.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	violations, err := report.ValidateFile(args[0])
	if err != nil {
		return err
	}

	if len(violations) == 0 {
		_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s is a valid run report\n", args[0])

		return nil
	}

	red := color.New(color.FgRed)
	for _, violation := range violations {
		_, _ = red.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %s\n", violation.Field, violation.Description)
	}

	return fmt.Errorf("%w: %d violations", ErrValidationFailed, len(violations))
}
