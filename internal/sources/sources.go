// Package sources enumerates proto definition files under the configured
// input directory and flags stray proto content hiding behind other names.
package sources

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/protoforge/pkg/textutil"
)

// Extension is the proto source file suffix.
const Extension = ".proto"

// straySniffLimit caps how many bytes of a file the stray scan inspects,
// 64 KiB.
const straySniffLimit = 64 << 10

// ErrProtoDirMissing indicates the input directory does not exist.
var ErrProtoDirMissing = errors.New("proto source directory missing")

// protoSyntaxRe matches the syntax declaration that opens proto2/proto3
// definition files.
var protoSyntaxRe = regexp.MustCompile(`(?m)^\s*syntax\s*=\s*"proto[23]"\s*;`)

// Enumerate returns an iterator over the .proto files under root. Flat by
// default; recursive walks subdirectories. Each call re-reads the
// directory, so the sequence is restartable. No ordering is guaranteed.
// A missing root yields a single error wrapping ErrProtoDirMissing.
func Enumerate(root string, recursive bool) iter.Seq2[string, error] {
	if recursive {
		return walkFiles(root, Extension)
	}

	return readDirFiles(root, Extension)
}

// Collect drains Enumerate into a slice sorted by path, for callers that
// need deterministic order.
func Collect(root string, recursive bool) ([]string, error) {
	var files []string

	for path, err := range Enumerate(root, recursive) {
		if err != nil {
			return nil, err
		}

		files = append(files, path)
	}

	slices.Sort(files)

	return files, nil
}

// Stray is a file that opens with a proto syntax declaration but does not
// carry the .proto extension. Language is enry's classification of the
// name the content hides behind.
type Stray struct {
	Path     string
	Language string
}

// FindStrays scans root for proto definitions disguised under other file
// names. Binary and unreadable files are skipped; the scan is advisory.
func FindStrays(root string, recursive bool) ([]Stray, error) {
	var strays []Stray

	for path, err := range allFiles(root, recursive) {
		if err != nil {
			return nil, err
		}

		if strings.HasSuffix(path, Extension) {
			continue
		}

		data, readErr := sniffFile(path)
		if readErr != nil {
			continue
		}

		if textutil.IsBinary(data) || !protoSyntaxRe.Match(data) {
			continue
		}

		strays = append(strays, Stray{
			Path:     path,
			Language: enry.GetLanguage(filepath.Base(path), data),
		})
	}

	slices.SortFunc(strays, func(a, b Stray) int {
		return strings.Compare(a.Path, b.Path)
	})

	return strays, nil
}

// allFiles iterates every regular file under root, with no name filter.
func allFiles(root string, recursive bool) iter.Seq2[string, error] {
	if recursive {
		return walkFiles(root, "")
	}

	return readDirFiles(root, "")
}

// readDirFiles yields regular files directly under root whose names end
// in suffix. An empty suffix matches everything.
func readDirFiles(root, suffix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		entries, err := os.ReadDir(root)
		if err != nil {
			yield("", wrapDirError(root, err))

			return
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
				continue
			}

			if !yield(filepath.Join(root, entry.Name()), nil) {
				return
			}
		}
	}
}

// walkFiles yields regular files anywhere under root whose names end in
// suffix. An empty suffix matches everything.
func walkFiles(root, suffix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
				return nil
			}

			if !yield(path, nil) {
				return fs.SkipAll
			}

			return nil
		})
		if walkErr != nil {
			yield("", wrapDirError(root, walkErr))
		}
	}
}

func wrapDirError(root string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrProtoDirMissing, root)
	}

	return fmt.Errorf("enumerate %s: %w", root, err)
}

func sniffFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, straySniffLimit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}
