package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/protoforge/pkg/config"
	"github.com/Sumatoshi-tech/protoforge/pkg/persist"
)

// timestampLayout names report files so lexical order is chronological.
const timestampLayout = "20060102T150405.000Z"

// reportDirPerm is the mode for created report directories.
const reportDirPerm = 0o750

// ErrNoReports indicates the store directory holds no run reports.
var ErrNoReports = errors.New("no run reports found")

// ErrUnknownExtension indicates a report file outside the
// json/yaml/lz4 codec family.
var ErrUnknownExtension = errors.New("unknown report file extension")

// Store writes run reports into a directory, one timestamped file per
// run.
type Store struct {
	dir     string
	archive bool
}

// NewStore creates a report store rooted at cfg.Dir. With cfg.Archive
// set, reports are written LZ4-compressed.
func NewStore(cfg config.ReportConfig) *Store {
	return &Store{dir: cfg.Dir, archive: cfg.Archive}
}

// Dir returns the directory reports are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the report and returns the path of the written file. The
// file is named after the run's start time.
func (s *Store) Save(rep *RunReport) (string, error) {
	err := os.MkdirAll(s.dir, reportDirPerm)
	if err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	p := persist.NewPersister[RunReport](rep.Started.UTC().Format(timestampLayout), s.codec())

	err = p.Save(s.dir, rep)
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	return filepath.Join(s.dir, p.Filename()), nil
}

// Latest returns the path of the newest report in the store.
func (s *Store) Latest() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoReports
		}

		return "", fmt.Errorf("read report dir: %w", err)
	}

	latest := ""

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if _, codecErr := codecForPath(entry.Name()); codecErr != nil {
			continue
		}

		if entry.Name() > latest {
			latest = entry.Name()
		}
	}

	if latest == "" {
		return "", ErrNoReports
	}

	return filepath.Join(s.dir, latest), nil
}

func (s *Store) codec() persist.Codec {
	if s.archive {
		return persist.NewLZ4Codec(persist.NewJSONCodec())
	}

	return persist.NewJSONCodec()
}

// Load reads a run report from path, picking the codec by file
// extension.
func Load(path string) (*RunReport, error) {
	codec, err := codecForPath(path)
	if err != nil {
		return nil, err
	}

	basename := strings.TrimSuffix(filepath.Base(path), codec.Extension())
	p := persist.NewPersister[RunReport](basename, codec)

	rep, err := p.Load(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}

	return rep, nil
}

func codecForPath(path string) (persist.Codec, error) {
	switch {
	case strings.HasSuffix(path, ".json.lz4"):
		return persist.NewLZ4Codec(persist.NewJSONCodec()), nil
	case strings.HasSuffix(path, ".yaml.lz4"):
		return persist.NewLZ4Codec(persist.NewYAMLCodec()), nil
	case strings.HasSuffix(path, ".json"):
		return persist.NewJSONCodec(), nil
	case strings.HasSuffix(path, ".yaml"):
		return persist.NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, path)
	}
}
