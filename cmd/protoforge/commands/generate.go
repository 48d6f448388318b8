package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/internal/build"
	metrics "github.com/Sumatoshi-tech/protoforge/internal/observability"
	"github.com/Sumatoshi-tech/protoforge/internal/report"
	"github.com/Sumatoshi-tech/protoforge/internal/target"
	"github.com/Sumatoshi-tech/protoforge/internal/toolchain"
	"github.com/Sumatoshi-tech/protoforge/pkg/config"
	"github.com/Sumatoshi-tech/protoforge/pkg/observability"
)

// GenerateCommand holds flags and dependencies for the generate command.
type GenerateCommand struct {
	sharedFlags
	jobs      int
	failFast  bool
	reportDir string
	maxOutput string

	runner toolchain.Runner
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	return newGenerateCommandWithDeps(toolchain.ExecRunner{})
}

func newGenerateCommandWithDeps(runner toolchain.Runner) *cobra.Command {
	gc := &GenerateCommand{runner: runner}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compile proto sources for every configured target",
		Long: `Generate runs the full pipeline: prepare output directories, enumerate
proto sources, compile each file per target on a worker pool, and run
the configured import fixers. The run report is rendered as a summary
table and saved to the report directory.`,
		Args: cobra.NoArgs,
		RunE: gc.run,
	}

	gc.register(cmd)
	cmd.Flags().IntVarP(&gc.jobs, "jobs", "j", 0, "Parallel compile invocations per target (0 = CPU count)")
	cmd.Flags().BoolVar(&gc.failFast, "fail-fast", false, "Stop scheduling a target's compiles after its first failure")
	cmd.Flags().StringVar(&gc.reportDir, "report", "", "Report directory (overrides config)")
	cmd.Flags().StringVar(&gc.maxOutput, "max-output", "", "Captured tool output limit, e.g. 64KiB (overrides config)")

	return cmd
}

func (gc *GenerateCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := gc.loadConfig(cmd)
	if err != nil {
		return err
	}

	gc.applyFlags(cmd, cfg)

	silent := isSilent(cmd, gc.silent)
	progressWriter := cmd.ErrOrStderr()

	providers, err := setupObservability(cfg, observability.ModeCLI, isVerbose(cmd))
	if err != nil {
		return err
	}
	defer shutdownProviders(providers)

	targets, err := target.FromConfig(cfg)
	if err != nil {
		return err
	}

	orch, err := build.New(cfg, targets, gc.runner)
	if err != nil {
		return err
	}

	orch.Tracer = providers.Tracer

	buildMetrics, err := metrics.NewBuildMetrics(providers.Meter)
	if err != nil {
		return err
	}

	orch.Metrics = buildMetrics

	progressf(silent, progressWriter, "generating from %s (%d targets)", cfg.ProtoDir, len(targets))

	rep, runErr := orch.Run(cmd.Context())
	if rep == nil {
		return runErr
	}

	renderErr := report.Render(cmd.OutOrStdout(), rep, report.FormatTable)
	if renderErr != nil {
		return renderErr
	}

	store := report.NewStore(cfg.Report)

	path, saveErr := store.Save(rep)

	switch {
	case saveErr != nil && runErr == nil:
		return saveErr
	case saveErr != nil:
		slog.Warn("report not saved", "error", saveErr)
	default:
		progressf(silent, progressWriter, "report written to %s", path)
	}

	return runErr
}

// applyFlags folds the generate-specific flag overrides into cfg.
func (gc *GenerateCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("jobs") {
		cfg.Build.Jobs = gc.jobs
	}

	if gc.failFast {
		cfg.Build.OnError = config.OnErrorFailFast
	}

	if gc.reportDir != "" {
		cfg.Report.Dir = gc.reportDir
	}

	if gc.maxOutput != "" {
		cfg.Build.MaxOutput = gc.maxOutput
	}
}
