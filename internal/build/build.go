// Package build orchestrates a full codegen run: prepare output
// directories, enumerate proto sources, compile each file on a bounded
// worker pool per target, run batch fixers, and assemble the run report.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/protoforge/internal/observability"
	"github.com/Sumatoshi-tech/protoforge/internal/report"
	"github.com/Sumatoshi-tech/protoforge/internal/sources"
	"github.com/Sumatoshi-tech/protoforge/internal/target"
	"github.com/Sumatoshi-tech/protoforge/internal/toolchain"
	"github.com/Sumatoshi-tech/protoforge/pkg/config"
	"github.com/Sumatoshi-tech/protoforge/pkg/safeconv"
)

const tracerName = "protoforge"

// outDirPerm is the mode for created output directories.
const outDirPerm = 0o750

// truncationMarker is appended to tool output cut at the max_output limit.
const truncationMarker = "\n... [output truncated]"

// ErrInvocationFailed indicates at least one tool invocation in the run
// exited non-zero or failed to spawn.
var ErrInvocationFailed = errors.New("invocation failed")

// Orchestrator drives the compile and fix pipeline over all configured
// targets. Tracer and Metrics are optional; a nil Tracer falls back to
// the global provider and a nil Metrics disables recording.
type Orchestrator struct {
	// Tracer emits run, target, compile, and fix spans.
	Tracer trace.Tracer
	// Metrics records run and invocation counters.
	Metrics *observability.BuildMetrics

	cfg       *config.Config
	targets   []*target.Target
	runner    toolchain.Runner
	jobs      int
	maxOutput int
	failFast  bool
}

// New builds an Orchestrator from the validated config, the resolved
// targets, and the runner that executes external tools.
func New(cfg *config.Config, targets []*target.Target, runner toolchain.Runner) (*Orchestrator, error) {
	var maxOutput int

	if cfg.Build.MaxOutput != "" {
		limit, err := humanize.ParseBytes(cfg.Build.MaxOutput)
		if err != nil {
			return nil, fmt.Errorf("parse build.max_output %q: %w", cfg.Build.MaxOutput, err)
		}

		maxOutput = safeconv.ClampUint64ToInt(limit)
	}

	jobs := cfg.Build.Jobs
	if jobs == 0 {
		jobs = runtime.NumCPU()
	}

	return &Orchestrator{
		cfg:       cfg,
		targets:   targets,
		runner:    runner,
		jobs:      jobs,
		maxOutput: maxOutput,
		failFast:  cfg.Build.OnError == config.OnErrorFailFast,
	}, nil
}

// Run executes the full pipeline and returns the run report. The report
// is non-nil whenever the pipeline reached the invocation phase, even
// when invocations failed: callers render and persist it before acting
// on the error. A failed invocation surfaces as ErrInvocationFailed;
// context cancellation marks the run failed and returns the cause.
func (o *Orchestrator) Run(ctx context.Context) (*report.RunReport, error) {
	ctx, span := o.tracer().Start(ctx, "protoforge.run", trace.WithAttributes(
		attribute.String("proto.dir", o.cfg.ProtoDir),
		attribute.Int("target.count", len(o.targets)),
	))
	defer span.End()

	started := time.Now().UTC()

	prepErr := o.prepareDirs()
	if prepErr != nil {
		return nil, prepErr
	}

	files, err := sources.Collect(o.cfg.ProtoDir, o.cfg.Recursive)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("source.count", len(files)))

	rep := &report.RunReport{
		Started:       started,
		ProtoDir:      o.cfg.ProtoDir,
		Targets:       targetNames(o.targets),
		TargetReports: make([]report.TargetReport, 0, len(o.targets)),
	}

	for _, tgt := range o.targets {
		rep.TargetReports = append(rep.TargetReports, o.runTarget(ctx, tgt, files))
	}

	rep.Finished = time.Now().UTC()
	rep.Aggregate()

	if ctx.Err() != nil {
		rep.Status = report.StatusFailed
	}

	o.recordRun(ctx, rep.Status, rep.Elapsed())

	if ctxErr := ctx.Err(); ctxErr != nil {
		return rep, fmt.Errorf("run aborted: %w", ctxErr)
	}

	if rep.Status == report.StatusFailed {
		return rep, fmt.Errorf("%w: %d of %d", ErrInvocationFailed, rep.Failures(), rep.InvocationCount())
	}

	return rep, nil
}

// PlannedInvocation is one invocation Run would execute, without
// executing it.
type PlannedInvocation struct {
	// Target is the owning target's name.
	Target string `json:"target" yaml:"target"`
	// Kind is compile or fix.
	Kind string `json:"kind" yaml:"kind"`
	// File is the source file for compile invocations, empty for fix.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
	// Argv is the full argument vector.
	Argv []string `json:"argv" yaml:"argv"`
}

// Plan enumerates sources and returns every invocation Run would
// execute, in execution order, with zero executions.
func (o *Orchestrator) Plan() ([]PlannedInvocation, error) {
	files, err := sources.Collect(o.cfg.ProtoDir, o.cfg.Recursive)
	if err != nil {
		return nil, err
	}

	plans := make([]PlannedInvocation, 0, len(files)*len(o.targets))

	for _, tgt := range o.targets {
		for _, file := range files {
			plans = append(plans, PlannedInvocation{
				Target: tgt.Name,
				Kind:   report.KindCompile,
				File:   file,
				Argv:   tgt.CompileArgv(o.cfg.ProtoDir, file),
			})
		}

		if len(files) == 0 {
			continue
		}

		argv, ok := tgt.FixArgv(o.cfg.ProtoDir, files)
		if ok {
			plans = append(plans, PlannedInvocation{
				Target: tgt.Name,
				Kind:   report.KindFix,
				Argv:   argv,
			})
		}
	}

	return plans, nil
}

// prepareDirs creates every target output directory before the first
// invocation. Runs even when the source set turns out empty.
func (o *Orchestrator) prepareDirs() error {
	for _, tgt := range o.targets {
		err := os.MkdirAll(tgt.OutDir, outDirPerm)
		if err != nil {
			return fmt.Errorf("prepare %s output dir: %w", tgt.Name, err)
		}
	}

	return nil
}

// runTarget compiles every source file on the worker pool, then runs
// the target's fixer once all compiles joined.
func (o *Orchestrator) runTarget(ctx context.Context, tgt *target.Target, files []string) report.TargetReport {
	ctx, span := o.tracer().Start(ctx, "protoforge.target", trace.WithAttributes(
		attribute.String("target.name", tgt.Name),
		attribute.Int("file.count", len(files)),
	))
	defer span.End()

	tr := report.TargetReport{
		Name:        tgt.Name,
		OutDir:      tgt.OutDir,
		FileCount:   len(files),
		Invocations: make([]report.InvocationResult, 0, len(files)+1),
	}

	invocations, aborted := o.compileAll(ctx, tgt, files)
	tr.Invocations = append(tr.Invocations, invocations...)

	fix, ok := o.runFixer(ctx, tgt, files, aborted)
	if ok {
		tr.Invocations = append(tr.Invocations, fix)
	}

	tr.SortInvocations()

	return tr
}

// compileAll runs one compile invocation per file on a pool of at most
// jobs workers. Under fail_fast the first failure stops scheduling:
// queued files are discarded, in-flight invocations finish, and the
// returned aborted flag tells the caller to skip the fixer.
func (o *Orchestrator) compileAll(
	ctx context.Context, tgt *target.Target, files []string,
) (invocations []report.InvocationResult, aborted bool) {
	if len(files) == 0 {
		return nil, false
	}

	jobs := make(chan string)
	results := make(chan report.InvocationResult, len(files))
	numWorkers := min(o.jobs, len(files))

	var failed atomic.Bool

	var wg sync.WaitGroup

	wg.Add(numWorkers)

	for range numWorkers {
		go func() {
			defer wg.Done()

			for file := range jobs {
				if o.failFast && failed.Load() {
					continue
				}

				res := o.compileFile(ctx, tgt, file)
				if !res.OK() {
					failed.Store(true)
				}

				results <- res
			}
		}()
	}

feed:
	for _, file := range files {
		if ctx.Err() != nil || (o.failFast && failed.Load()) {
			break
		}

		select {
		case jobs <- file:
		case <-ctx.Done():
			break feed
		}
	}

	close(jobs)
	wg.Wait()
	close(results)

	invocations = make([]report.InvocationResult, 0, len(files))
	for res := range results {
		invocations = append(invocations, res)
	}

	return invocations, o.failFast && failed.Load()
}

// compileFile executes one per-file compile invocation.
func (o *Orchestrator) compileFile(ctx context.Context, tgt *target.Target, file string) report.InvocationResult {
	ctx, span := o.tracer().Start(ctx, "protoforge.compile", trace.WithAttributes(
		attribute.String("target.name", tgt.Name),
		attribute.String("file.name", filepath.Base(file)),
	))
	defer span.End()

	done := o.trackInflight(ctx, tgt.Name)
	defer done()

	return o.invoke(ctx, tgt.Name, report.KindCompile, file, tgt.CompileArgv(o.cfg.ProtoDir, file))
}

// runFixer executes the target's batch fixer. Skipped when the target
// declares none, the source set is empty, fail_fast aborted the target,
// or the context is already canceled.
func (o *Orchestrator) runFixer(
	ctx context.Context, tgt *target.Target, files []string, aborted bool,
) (report.InvocationResult, bool) {
	if aborted || len(files) == 0 || !tgt.HasFixer() || ctx.Err() != nil {
		return report.InvocationResult{}, false
	}

	argv, _ := tgt.FixArgv(o.cfg.ProtoDir, files)

	ctx, span := o.tracer().Start(ctx, "protoforge.fix",
		trace.WithAttributes(attribute.String("target.name", tgt.Name)))
	defer span.End()

	return o.invoke(ctx, tgt.Name, report.KindFix, "", argv), true
}

// invoke runs one external command and converts the outcome into an
// InvocationResult. Spawn failures and non-zero exits are recorded, not
// returned: aggregation decides the run status.
func (o *Orchestrator) invoke(
	ctx context.Context, targetName, kind, file string, argv []string,
) report.InvocationResult {
	res, runErr := o.runner.Run(ctx, toolchain.Invocation{Argv: argv})

	inv := report.InvocationResult{
		Kind:     kind,
		File:     file,
		Argv:     argv,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
		Output:   truncateOutput(res.Output, o.maxOutput),
	}
	if runErr != nil {
		inv.Err = runErr.Error()
	}

	status := report.StatusOK
	if !inv.OK() {
		status = report.StatusFailed

		slog.Warn("invocation failed",
			"target", targetName,
			"kind", kind,
			"file", file,
			"exit_code", inv.ExitCode,
		)
	}

	o.recordInvocation(ctx, targetName, kind, status)

	return inv
}

func (o *Orchestrator) tracer() trace.Tracer {
	if o.Tracer != nil {
		return o.Tracer
	}

	return otel.Tracer(tracerName)
}

func (o *Orchestrator) recordRun(ctx context.Context, status string, elapsed time.Duration) {
	if o.Metrics == nil {
		return
	}

	o.Metrics.RecordRun(ctx, status, elapsed)
}

func (o *Orchestrator) recordInvocation(ctx context.Context, targetName, kind, status string) {
	if o.Metrics == nil {
		return
	}

	o.Metrics.RecordInvocation(ctx, targetName, kind, status)
}

func (o *Orchestrator) trackInflight(ctx context.Context, targetName string) func() {
	if o.Metrics == nil {
		return func() {}
	}

	return o.Metrics.TrackInflight(ctx, targetName)
}

// truncateOutput cuts tool output at limit bytes, keeping the head
// where the first compiler error sits. A zero limit disables
// truncation.
func truncateOutput(out []byte, limit int) string {
	if limit <= 0 || len(out) <= limit {
		return string(out)
	}

	return string(out[:limit]) + truncationMarker
}

func targetNames(targets []*target.Target) []string {
	names := make([]string, 0, len(targets))
	for _, tgt := range targets {
		names = append(names, tgt.Name)
	}

	return names
}
