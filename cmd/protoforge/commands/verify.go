package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/internal/build"
	"github.com/Sumatoshi-tech/protoforge/internal/target"
	"github.com/Sumatoshi-tech/protoforge/internal/toolchain"
	"github.com/Sumatoshi-tech/protoforge/pkg/config"
	"github.com/Sumatoshi-tech/protoforge/pkg/textutil"
)

// ErrDriftDetected indicates committed generated code no longer matches
// a fresh build of the proto sources.
var ErrDriftDetected = errors.New("generated code drift detected")

// Drift kinds.
const (
	driftMissing = "missing"
	driftStale   = "stale"
	driftChanged = "changed"
)

// drift records one generated file that disagrees between a fresh build
// and the committed output directory.
type drift struct {
	target string
	path   string
	kind   string
	detail string
}

// VerifyCommand holds flags and dependencies for the verify command.
type VerifyCommand struct {
	sharedFlags

	runner toolchain.Runner
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	return newVerifyCommandWithDeps(toolchain.ExecRunner{})
}

func newVerifyCommandWithDeps(runner toolchain.Runner) *cobra.Command {
	vc := &VerifyCommand{runner: runner}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that committed generated code matches a fresh build",
		Long: `Verify rebuilds every configured target into a staging directory and
compares the result against the committed output directories, file by
file. Any missing, stale, or changed file is reported as drift.`,
		Args: cobra.NoArgs,
		RunE: vc.run,
	}

	vc.register(cmd)

	return cmd
}

func (vc *VerifyCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := vc.loadConfig(cmd)
	if err != nil {
		return err
	}

	committed, err := target.FromConfig(cfg)
	if err != nil {
		return err
	}

	stagingRoot, err := os.MkdirTemp("", "protoforge-verify-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	defer func() {
		removeErr := os.RemoveAll(stagingRoot)
		if removeErr != nil {
			slog.Warn("remove staging dir", "error", removeErr)
		}
	}()

	staging := stagingConfig(cfg, stagingRoot)

	fresh, err := target.FromConfig(staging)
	if err != nil {
		return err
	}

	orch, err := build.New(staging, fresh, vc.runner)
	if err != nil {
		return err
	}

	progressf(isSilent(cmd, vc.silent), cmd.ErrOrStderr(),
		"rebuilding %d targets into %s", len(fresh), stagingRoot)

	_, runErr := orch.Run(cmd.Context())
	if runErr != nil {
		return runErr
	}

	var drifts []drift

	for i, freshTgt := range fresh {
		targetDrifts, diffErr := diffDirs(freshTgt.Name, freshTgt.OutDir, committed[i].OutDir)
		if diffErr != nil {
			return diffErr
		}

		drifts = append(drifts, targetDrifts...)
	}

	if len(drifts) == 0 {
		_, _ = color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "generated code is up to date")

		return nil
	}

	red := color.New(color.FgRed)
	for _, d := range drifts {
		_, _ = red.Fprintf(cmd.OutOrStdout(), "DRIFT  %-7s  %s/%s (%s)\n",
			d.kind, d.target, d.path, d.detail)
	}

	return fmt.Errorf("%w: %d files", ErrDriftDetected, len(drifts))
}

// stagingConfig clones cfg with every target's output redirected under
// root, leaving the committed output directories untouched.
func stagingConfig(cfg *config.Config, root string) *config.Config {
	staging := *cfg
	staging.Python.OutDir = filepath.Join(root, target.Python)
	staging.TypeScript.OutDir = filepath.Join(root, target.TypeScript)
	staging.Go.OutDir = filepath.Join(root, target.Go)

	return &staging
}

// diffDirs compares a fresh build tree against the committed one and
// returns the drift entries, sorted by path within the target.
func diffDirs(targetName, freshDir, committedDir string) ([]drift, error) {
	fresh, err := listTree(freshDir)
	if err != nil {
		return nil, err
	}

	committed, err := listTree(committedDir)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(fresh)+len(committed))
	for path := range fresh {
		paths = append(paths, path)
	}

	for path := range committed {
		if !fresh[path] {
			paths = append(paths, path)
		}
	}

	slices.Sort(paths)

	var drifts []drift

	for _, path := range paths {
		switch {
		case !committed[path]:
			drifts = append(drifts, drift{
				target: targetName, path: path,
				kind: driftMissing, detail: "not in committed output",
			})
		case !fresh[path]:
			drifts = append(drifts, drift{
				target: targetName, path: path,
				kind: driftStale, detail: "no longer generated",
			})
		default:
			entry, changed, cmpErr := compareFile(targetName, freshDir, committedDir, path)
			if cmpErr != nil {
				return nil, cmpErr
			}

			if changed {
				drifts = append(drifts, entry)
			}
		}
	}

	return drifts, nil
}

func compareFile(targetName, freshDir, committedDir, path string) (drift, bool, error) {
	freshData, err := os.ReadFile(filepath.Join(freshDir, path))
	if err != nil {
		return drift{}, false, fmt.Errorf("read fresh %s: %w", path, err)
	}

	committedData, err := os.ReadFile(filepath.Join(committedDir, path))
	if err != nil {
		return drift{}, false, fmt.Errorf("read committed %s: %w", path, err)
	}

	if bytes.Equal(freshData, committedData) {
		return drift{}, false, nil
	}

	detail := "binary contents differ"
	if !textutil.IsBinary(freshData) && !textutil.IsBinary(committedData) {
		detail = lineDiffSummary(committedData, freshData)
	}

	return drift{target: targetName, path: path, kind: driftChanged, detail: detail}, true, nil
}

// lineDiffSummary reports how many lines a regeneration would add to and
// remove from the committed file.
func lineDiffSummary(committed, fresh []byte) string {
	dmp := diffmatchpatch.New()
	src, dst, _ := dmp.DiffLinesToRunes(string(committed), string(fresh))
	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCleanupMerge(dmp.DiffCleanupSemanticLossless(diffs))

	added, removed := 0, 0

	for _, diff := range diffs {
		lines := len([]rune(diff.Text))

		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			added += lines
		case diffmatchpatch.DiffDelete:
			removed += lines
		case diffmatchpatch.DiffEqual:
		}
	}

	return fmt.Sprintf("+%d -%d lines", added, removed)
}

// listTree returns the set of regular files under root, keyed by path
// relative to root. A missing root is an empty tree.
func listTree(root string) (map[string]bool, error) {
	files := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		files[rel] = true

		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]bool{}, nil
		}

		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return files, nil
}
