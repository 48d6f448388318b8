package target_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/protoforge/internal/target"
	"github.com/Sumatoshi-tech/protoforge/pkg/config"
)

func pythonConfig() config.PythonConfig {
	return config.PythonConfig{
		OutDir: "gen/python",
		Tool:   "python3",
		Fixer:  true,
	}
}

func typeScriptConfig() config.TypeScriptConfig {
	return config.TypeScriptConfig{
		OutDir:  "gen/typescript",
		Plugin:  "node_modules/.bin/protoc-gen-ts_proto",
		Options: []string{"fileSuffix=.pb"},
	}
}

func TestPython_CompileArgv(t *testing.T) {
	t.Parallel()

	tgt := target.NewPython(pythonConfig())

	argv := tgt.CompileArgv("proto", "proto/ping.proto")

	assert.Equal(t, []string{
		"python3", "-m", "grpc_tools.protoc",
		"--proto_path=proto",
		"--python_out=gen/python",
		"--pyi_out=gen/python",
		"--grpc_python_out=gen/python",
		"proto/ping.proto",
	}, argv)
}

func TestPython_FixArgv(t *testing.T) {
	t.Parallel()

	tgt := target.NewPython(pythonConfig())

	require.True(t, tgt.HasFixer())

	argv, ok := tgt.FixArgv("proto", []string{"proto/a.proto", "proto/b.proto"})

	require.True(t, ok)
	assert.Equal(t, []string{
		"protol",
		"--create-package",
		"--in-place",
		"--python-out", "gen/python",
		"protoc",
		"--proto-path=proto",
		"proto/a.proto", "proto/b.proto",
	}, argv)
}

func TestPython_FixerDisabled(t *testing.T) {
	t.Parallel()

	cfg := pythonConfig()
	cfg.Fixer = false

	tgt := target.NewPython(cfg)

	assert.False(t, tgt.HasFixer())

	_, ok := tgt.FixArgv("proto", []string{"proto/a.proto"})

	assert.False(t, ok)
	assert.Equal(t, []string{"python3"}, tgt.Tools())
}

func TestPython_Tools(t *testing.T) {
	t.Parallel()

	tgt := target.NewPython(pythonConfig())

	assert.Equal(t, []string{"python3", "protol"}, tgt.Tools())
}

func TestTypeScript_CompileArgv(t *testing.T) {
	t.Parallel()

	tgt := target.NewTypeScript(typeScriptConfig())

	argv := tgt.CompileArgv("proto", "proto/ping.proto")

	assert.Equal(t, []string{
		"protoc",
		"--proto_path=proto",
		"--plugin=protoc-gen-ts_proto=node_modules/.bin/protoc-gen-ts_proto",
		"--ts_proto_out=gen/typescript",
		"--ts_proto_opt=fileSuffix=.pb",
		"proto/ping.proto",
	}, argv)
}

func TestTypeScript_MultipleOptions(t *testing.T) {
	t.Parallel()

	cfg := typeScriptConfig()
	cfg.Options = []string{"fileSuffix=.pb", "outputServices=grpc-js"}

	tgt := target.NewTypeScript(cfg)

	argv := tgt.CompileArgv("proto", "proto/ping.proto")

	assert.Contains(t, argv, "--ts_proto_opt=fileSuffix=.pb")
	assert.Contains(t, argv, "--ts_proto_opt=outputServices=grpc-js")
	assert.Equal(t, "proto/ping.proto", argv[len(argv)-1])
}

func TestTypeScript_NoFixer(t *testing.T) {
	t.Parallel()

	tgt := target.NewTypeScript(typeScriptConfig())

	assert.False(t, tgt.HasFixer())
	assert.Equal(t, []string{"protoc", "node_modules/.bin/protoc-gen-ts_proto"}, tgt.Tools())
}

func TestGo_CompileArgv(t *testing.T) {
	t.Parallel()

	tgt := target.NewGo(config.GoConfig{OutDir: "gen/go"})

	argv := tgt.CompileArgv("proto", "proto/ping.proto")

	assert.Equal(t, []string{
		"protoc",
		"--proto_path=proto",
		"--go_out=gen/go",
		"--go_opt=paths=source_relative",
		"--go-grpc_out=gen/go",
		"--go-grpc_opt=paths=source_relative",
		"proto/ping.proto",
	}, argv)
}

func TestGo_NoFixer(t *testing.T) {
	t.Parallel()

	tgt := target.NewGo(config.GoConfig{OutDir: "gen/go"})

	assert.False(t, tgt.HasFixer())
	assert.Equal(t, []string{"protoc", "protoc-gen-go", "protoc-gen-go-grpc"}, tgt.Tools())
}

func TestFromConfig_DeclarationOrder(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Targets:    []string{"typescript", "python"},
		Python:     pythonConfig(),
		TypeScript: typeScriptConfig(),
	}

	targets, err := target.FromConfig(cfg)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, target.TypeScript, targets[0].Name)
	assert.Equal(t, target.Python, targets[1].Name)
}

func TestFromConfig_AllBuiltins(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Targets:    []string{"python", "typescript", "go"},
		Python:     pythonConfig(),
		TypeScript: typeScriptConfig(),
		Go:         config.GoConfig{OutDir: "gen/go"},
	}

	targets, err := target.FromConfig(cfg)
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.Equal(t, "gen/python", targets[0].OutDir)
	assert.Equal(t, "gen/typescript", targets[1].OutDir)
	assert.Equal(t, "gen/go", targets[2].OutDir)
}

func TestFromConfig_UnknownTarget(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Targets: []string{"python", "rust"}}

	targets, err := target.FromConfig(cfg)

	require.ErrorIs(t, err, target.ErrUnknownTarget)
	assert.Contains(t, err.Error(), "rust")
	assert.Nil(t, targets)
}

func TestCompileArgv_DiffersOnlyInSourceFile(t *testing.T) {
	t.Parallel()

	tgt := target.NewPython(pythonConfig())

	argvA := tgt.CompileArgv("proto", "proto/a.proto")
	argvB := tgt.CompileArgv("proto", "proto/b.proto")

	require.Len(t, argvB, len(argvA))

	// All elements except the trailing source file match.
	assert.Equal(t, argvA[:len(argvA)-1], argvB[:len(argvB)-1])
	assert.Equal(t, "proto/a.proto", argvA[len(argvA)-1])
	assert.Equal(t, "proto/b.proto", argvB[len(argvB)-1])
}
