// Package toolchain executes protoforge's external compiler processes and
// resolves the executables they need.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// spawnExitCode marks invocations that never produced a process exit code.
const spawnExitCode = -1

// Sentinel errors for tool resolution and execution.
var (
	// ErrToolNotFound indicates an executable could not be resolved.
	ErrToolNotFound = errors.New("tool not found")
	// ErrEmptyArgv indicates an invocation without an executable.
	ErrEmptyArgv = errors.New("invocation argv is empty")
)

// Invocation is one external command to run.
type Invocation struct {
	// Argv is the full argument vector; Argv[0] is the executable.
	Argv []string
	// Dir is the working directory; empty means the current directory.
	Dir string
}

// Result captures the observable outcome of one invocation.
type Result struct {
	// Output is the combined stdout and stderr of the process.
	Output []byte
	// Duration is the wall-clock time of the invocation.
	Duration time.Duration
	// ExitCode is the process exit status, or -1 when no process ran.
	ExitCode int
}

// OK reports whether the invocation ran and exited zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Runner executes external commands. Implementations must be safe for
// concurrent use.
type Runner interface {
	// Run executes the invocation synchronously. A non-zero process exit is
	// NOT an error: it is reported through Result.ExitCode. The returned
	// error covers spawn failures (missing tool, canceled context).
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// ExecRunner runs invocations via os/exec.
type ExecRunner struct{}

// Run implements Runner using exec.CommandContext with combined output
// capture. Context cancellation kills the subprocess.
func (ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	if len(inv.Argv) == 0 {
		return Result{ExitCode: spawnExitCode}, ErrEmptyArgv
	}

	start := time.Now()

	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir

	output, runErr := cmd.CombinedOutput()

	res := Result{
		Output:   output,
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = spawnExitCode

		return res, fmt.Errorf("run %s: %w", inv.Argv[0], ctxErr)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()

			return res, nil
		}

		res.ExitCode = spawnExitCode

		return res, fmt.Errorf("run %s: %w", inv.Argv[0], runErr)
	}

	return res, nil
}

// Probe resolves tool to an executable path. Tools containing a path
// separator are checked as explicit paths, everything else via $PATH.
func Probe(tool string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, tool)
	}

	return path, nil
}
