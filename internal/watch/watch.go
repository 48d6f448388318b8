// Package watch re-runs the codegen pipeline when proto sources change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Sumatoshi-tech/protoforge/internal/sources"
)

// RunFunc executes one pipeline run. Failures are handled inside the
// callback; the watcher keeps watching either way.
type RunFunc func(ctx context.Context)

// Watcher debounces filesystem events on the proto directory and
// triggers pipeline runs. Runs never overlap: events arriving during a
// run are coalesced into the next one.
type Watcher struct {
	dir       string
	recursive bool
	debounce  time.Duration
	run       RunFunc
	fsw       *fsnotify.Watcher
}

// New watches dir for proto source changes. In recursive mode every
// existing subdirectory is watched, and directories created later are
// added on the fly.
func New(dir string, recursive bool, debounce time.Duration, run RunFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if recursive {
		err = addTree(fsw, dir)
	} else {
		err = fsw.Add(dir)
	}

	if err != nil {
		_ = fsw.Close()

		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:       dir,
		recursive: recursive,
		debounce:  debounce,
		run:       run,
		fsw:       fsw,
	}, nil
}

// Watch runs the pipeline once, then blocks dispatching debounced
// rebuilds until the context is canceled. Cancellation returns the
// context's error; a closed watcher returns nil.
func (w *Watcher) Watch(ctx context.Context) error {
	w.run(ctx)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			if !w.shouldRebuild(ev) {
				continue
			}

			slog.Debug("source change", "path", ev.Name, "op", ev.Op.String())

			// Swap in a fresh timer; a stale tick from the old one is
			// never received because pending now points elsewhere.
			if timer != nil {
				timer.Stop()
			}

			timer = time.NewTimer(w.debounce)
			pending = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			slog.Warn("watch error", "error", err)

		case <-pending:
			timer = nil
			pending = nil

			slog.Info("rebuilding", "dir", w.dir)
			w.run(ctx)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	return nil
}

// shouldRebuild reports whether the event can change the source set.
// Chmod-only events never do. A directory created under a recursive
// watch does: it may arrive populated, so it is watched and rebuilt.
func (w *Watcher) shouldRebuild(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}

	if w.recursive && ev.Op.Has(fsnotify.Create) {
		info, err := os.Stat(ev.Name)
		if err == nil && info.IsDir() {
			addErr := w.fsw.Add(ev.Name)
			if addErr != nil {
				slog.Warn("watch new directory", "path", ev.Name, "error", addErr)
			}

			return true
		}
	}

	return filepath.Ext(ev.Name) == sources.Extension
}

// addTree watches root and every directory below it.
func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() {
			return nil
		}

		addErr := fsw.Add(path)
		if addErr != nil {
			return fmt.Errorf("watch %s: %w", path, addErr)
		}

		return nil
	})
}
