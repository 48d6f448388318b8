// Package target defines the codegen targets protoforge can drive and the
// argument vectors for their external compiler and fixer processes.
package target

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/protoforge/pkg/config"
)

// Built-in target names, valid in the config `targets` list.
const (
	Python     = "python"
	TypeScript = "typescript"
	Go         = "go"
)

// External tools shared by built-in targets.
const (
	protocTool = "protoc"
	protolTool = "protol"
)

// grpcToolsModule is the python module that wraps protoc for grpc codegen.
const grpcToolsModule = "grpc_tools.protoc"

// ErrUnknownTarget indicates a configured target name with no definition.
var ErrUnknownTarget = errors.New("unknown target")

// Target describes one codegen pipeline: a per-file compile invocation and
// an optional batch fixer that runs after all of the target's compiles.
type Target struct {
	// Name identifies the target in config, reports, and logs.
	Name string
	// OutDir is the output directory prepared before any invocation.
	OutDir string

	tools       []string
	compileArgv func(protoDir, file string) []string
	fixArgv     func(protoDir string, files []string) []string
}

// CompileArgv returns the argument vector for compiling one source file.
// The first element is the executable.
func (t *Target) CompileArgv(protoDir, file string) []string {
	return t.compileArgv(protoDir, file)
}

// FixArgv returns the fixer argument vector over all source files.
// ok is false when the target declares no fixer.
func (t *Target) FixArgv(protoDir string, files []string) (argv []string, ok bool) {
	if t.fixArgv == nil {
		return nil, false
	}

	return t.fixArgv(protoDir, files), true
}

// HasFixer reports whether the target declares a batch fixer step.
func (t *Target) HasFixer() bool {
	return t.fixArgv != nil
}

// Tools returns the executables the target needs, compile tool first.
func (t *Target) Tools() []string {
	return t.tools
}

// NewPython builds the python target: grpc_tools.protoc per file, protol
// import fixing over the generated set.
func NewPython(cfg config.PythonConfig) *Target {
	out := cfg.OutDir

	t := &Target{
		Name:   Python,
		OutDir: out,
		tools:  []string{cfg.Tool},
		compileArgv: func(protoDir, file string) []string {
			return []string{
				cfg.Tool, "-m", grpcToolsModule,
				"--proto_path=" + protoDir,
				"--python_out=" + out,
				"--pyi_out=" + out,
				"--grpc_python_out=" + out,
				file,
			}
		},
	}

	if cfg.Fixer {
		t.tools = append(t.tools, protolTool)
		t.fixArgv = func(protoDir string, files []string) []string {
			argv := []string{
				protolTool,
				"--create-package",
				"--in-place",
				"--python-out", out,
				protocTool,
				"--proto-path=" + protoDir,
			}

			return append(argv, files...)
		}
	}

	return t
}

// NewTypeScript builds the typescript target: protoc with the ts_proto
// plugin per file, no fixer.
func NewTypeScript(cfg config.TypeScriptConfig) *Target {
	out := cfg.OutDir

	return &Target{
		Name:   TypeScript,
		OutDir: out,
		tools:  []string{protocTool, cfg.Plugin},
		compileArgv: func(protoDir, file string) []string {
			argv := []string{
				protocTool,
				"--proto_path=" + protoDir,
				"--plugin=protoc-gen-ts_proto=" + cfg.Plugin,
				"--ts_proto_out=" + out,
			}

			for _, opt := range cfg.Options {
				argv = append(argv, "--ts_proto_opt="+opt)
			}

			return append(argv, file)
		},
	}
}

// NewGo builds the go target: protoc with the go and go-grpc plugins per
// file, source-relative paths, no fixer.
func NewGo(cfg config.GoConfig) *Target {
	out := cfg.OutDir

	return &Target{
		Name:   Go,
		OutDir: out,
		tools:  []string{protocTool, "protoc-gen-go", "protoc-gen-go-grpc"},
		compileArgv: func(protoDir, file string) []string {
			return []string{
				protocTool,
				"--proto_path=" + protoDir,
				"--go_out=" + out,
				"--go_opt=paths=source_relative",
				"--go-grpc_out=" + out,
				"--go-grpc_opt=paths=source_relative",
				file,
			}
		},
	}
}

// FromConfig resolves the configured target names into Target values,
// preserving declaration order.
func FromConfig(cfg *config.Config) ([]*Target, error) {
	targets := make([]*Target, 0, len(cfg.Targets))

	for _, name := range cfg.Targets {
		switch name {
		case Python:
			targets = append(targets, NewPython(cfg.Python))
		case TypeScript:
			targets = append(targets, NewTypeScript(cfg.TypeScript))
		case Go:
			targets = append(targets, NewGo(cfg.Go))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
		}
	}

	return targets, nil
}
