package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/protoforge/internal/toolchain"
)

// testEnv names the directories behind a generated test config file.
type testEnv struct {
	configPath string
	protoDir   string
	pythonOut  string
	tsOut      string
	reportDir  string
}

// newTestEnv writes a config file wired to temp directories and returns
// the paths. The proto directory exists but is empty; targets defaults
// to python only.
func newTestEnv(t *testing.T, targets ...string) testEnv {
	t.Helper()

	if len(targets) == 0 {
		targets = []string{"python"}
	}

	dir := t.TempDir()
	env := testEnv{
		configPath: filepath.Join(dir, "protoforge.yaml"),
		protoDir:   filepath.Join(dir, "proto"),
		pythonOut:  filepath.Join(dir, "gen", "python"),
		tsOut:      filepath.Join(dir, "gen", "typescript"),
		reportDir:  filepath.Join(dir, "reports"),
	}

	require.NoError(t, os.MkdirAll(env.protoDir, 0o750))

	cfg := fmt.Sprintf(`proto_dir: %q
targets:
%s
build:
  jobs: 2
python:
  out_dir: %q
  tool: python3
  fixer: true
typescript:
  out_dir: %q
  plugin: node_modules/.bin/protoc-gen-ts_proto
report:
  dir: %q
`, env.protoDir, yamlList(targets), env.pythonOut, env.tsOut, env.reportDir)

	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o600))

	return env
}

func yamlList(items []string) string {
	var sb strings.Builder

	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}

		fmt.Fprintf(&sb, "  - %s", item)
	}

	return sb.String()
}

// writeProtos drops minimal proto3 files into dir.
func writeProtos(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("syntax = \"proto3\";\n"), 0o600))
	}
}

// executeCommand runs cmd with args and returns captured stdout and
// stderr.
func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = cmd.Execute()

	return out.String(), errOut.String(), err
}

// stubRunner records invocations and answers them via respond, or with
// a zero exit when respond is nil.
type stubRunner struct {
	mu      sync.Mutex
	calls   [][]string
	respond func(argv []string) (toolchain.Result, error)
}

func (s *stubRunner) Run(ctx context.Context, inv toolchain.Invocation) (toolchain.Result, error) {
	if ctx.Err() != nil {
		return toolchain.Result{ExitCode: -1}, fmt.Errorf("spawn: %w", ctx.Err())
	}

	s.mu.Lock()
	s.calls = append(s.calls, slices.Clone(inv.Argv))
	s.mu.Unlock()

	if s.respond != nil {
		return s.respond(inv.Argv)
	}

	return toolchain.Result{Output: []byte("ok"), Duration: time.Millisecond, ExitCode: 0}, nil
}

func (s *stubRunner) argvs() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.calls)
}
