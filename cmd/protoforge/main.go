// Package main provides the entry point for the protoforge CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/cmd/protoforge/commands"
	"github.com/Sumatoshi-tech/protoforge/internal/build"
	"github.com/Sumatoshi-tech/protoforge/pkg/version"
)

// Exit codes. A run that executed and found a problem (failed
// invocation, schema violation, drift) exits 2; usage and internal
// errors exit 1.
const (
	exitInternalError = 1
	exitBuildFailure  = 2
)

var (
	verbose bool
	quiet   bool
)

func main() {
	version.InitBinaryVersion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "protoforge",
		Short: "Protoforge - protobuf build-step orchestrator",
		Long: `Protoforge compiles a tree of proto files for every configured language
target, runs the per-target import fixers, and records every run as a
report.

Commands:
  generate  Compile proto sources for every configured target
  plan      Print the invocations generate would run
  list      List the proto sources a run would compile
  doctor    Check that required external tools are installed
  verify    Check committed generated code against a fresh build
  watch     Rebuild whenever proto sources change
  report    Render a saved run report
  validate  Check a run report against the schema
  config    Print or scaffold the configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	// Add commands.
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewPlanCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(commands.NewVerifyCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, build.ErrInvocationFailed) ||
		errors.Is(err, commands.ErrValidationFailed) ||
		errors.Is(err, commands.ErrDriftDetected) {
		return exitBuildFailure
	}

	return exitInternalError
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "protoforge %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
