// Package report defines the persistent record of an orchestrator run,
// its render formats, and the schema persisted reports are validated
// against.
package report

import (
	"slices"
	"strings"
	"time"
)

// Invocation step kinds.
const (
	KindCompile = "compile"
	KindFix     = "fix"
)

// Run and target statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// InvocationResult records one external process execution.
type InvocationResult struct {
	Kind     string        `json:"kind"             yaml:"kind"`
	File     string        `json:"file,omitempty"   yaml:"file,omitempty"`
	Argv     []string      `json:"argv"             yaml:"argv"`
	ExitCode int           `json:"exit_code"        yaml:"exit_code"`
	Duration time.Duration `json:"duration_ns"      yaml:"duration_ns"`
	Output   string        `json:"output,omitempty" yaml:"output,omitempty"`
	Err      string        `json:"error,omitempty"  yaml:"error,omitempty"`
}

// OK reports whether the invocation spawned and exited zero.
func (r InvocationResult) OK() bool {
	return r.Err == "" && r.ExitCode == 0
}

// TargetReport aggregates the invocations of one target.
type TargetReport struct {
	Name        string             `json:"name"        yaml:"name"`
	OutDir      string             `json:"out_dir"     yaml:"out_dir"`
	FileCount   int                `json:"file_count"  yaml:"file_count"`
	Invocations []InvocationResult `json:"invocations" yaml:"invocations"`
	Status      string             `json:"status"      yaml:"status"`
}

// SortInvocations orders compile results by file name with the fixer
// result last, making reports deterministic under parallel compilation.
func (t *TargetReport) SortInvocations() {
	slices.SortStableFunc(t.Invocations, func(a, b InvocationResult) int {
		if a.Kind != b.Kind {
			if a.Kind == KindFix {
				return 1
			}

			if b.Kind == KindFix {
				return -1
			}
		}

		return strings.Compare(a.File, b.File)
	})
}

// RunReport is the persistent record of one orchestrator run.
type RunReport struct {
	Started       time.Time      `json:"started"        yaml:"started"`
	Finished      time.Time      `json:"finished"       yaml:"finished"`
	ProtoDir      string         `json:"proto_dir"      yaml:"proto_dir"`
	Targets       []string       `json:"targets"        yaml:"targets"`
	TargetReports []TargetReport `json:"target_reports" yaml:"target_reports"`
	Status        string         `json:"status"         yaml:"status"`
}

// Aggregate derives per-target and run status from the recorded
// invocation results.
func (r *RunReport) Aggregate() {
	r.Status = StatusOK

	for i := range r.TargetReports {
		target := &r.TargetReports[i]
		target.Status = StatusOK

		for _, inv := range target.Invocations {
			if !inv.OK() {
				target.Status = StatusFailed
				r.Status = StatusFailed

				break
			}
		}
	}
}

// InvocationCount returns the total number of recorded invocations.
func (r *RunReport) InvocationCount() int {
	count := 0
	for _, target := range r.TargetReports {
		count += len(target.Invocations)
	}

	return count
}

// Failures returns the number of invocations that spawned but exited
// non-zero or failed to spawn at all.
func (r *RunReport) Failures() int {
	failures := 0

	for _, target := range r.TargetReports {
		for _, inv := range target.Invocations {
			if !inv.OK() {
				failures++
			}
		}
	}

	return failures
}

// Elapsed returns the wall-clock duration of the run.
func (r *RunReport) Elapsed() time.Duration {
	return r.Finished.Sub(r.Started)
}
