package report_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/protoforge/internal/report"
)

func TestSummary(t *testing.T) {
	t.Parallel()

	rep := sampleReport()

	assert.Equal(t, "failed: 5 invocations, 1 failed, 1.5s", report.Summary(rep))
}

func TestRender_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := report.Render(&buf, sampleReport(), report.FormatTable)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "protoforge run failed: 5 invocations, 1 failed, 1.5s")
	assert.Contains(t, out, "TARGET")
	assert.Contains(t, out, "proto/ping.proto")
	assert.Contains(t, out, "fix")
	assert.Contains(t, out, "420ms")
	assert.Contains(t, out, "2 targets")
}

func TestRender_TableMarksSpawnFailures(t *testing.T) {
	t.Parallel()

	rep := sampleReport()
	rep.TargetReports[1].Invocations[1].Err = "run protoc: executable file not found"

	var buf bytes.Buffer

	err := report.Render(&buf, rep, report.FormatTable)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "spawn")
}

func TestRender_JSONDecodesBack(t *testing.T) {
	t.Parallel()

	rep := sampleReport()

	var buf bytes.Buffer

	err := report.Render(&buf, rep, report.FormatJSON)
	require.NoError(t, err)

	var decoded report.RunReport

	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.StatusFailed, decoded.Status)
	assert.Equal(t, rep.Targets, decoded.Targets)
	assert.True(t, rep.Started.Equal(decoded.Started))
	require.Len(t, decoded.TargetReports, 2)
	assert.Equal(t, 1, decoded.TargetReports[1].Invocations[1].ExitCode)
	assert.Equal(t, rep.TargetReports[0].Invocations[0].Duration,
		decoded.TargetReports[0].Invocations[0].Duration)
}

func TestRender_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := report.Render(&buf, sampleReport(), report.FormatYAML)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "proto_dir: proto")
	assert.Contains(t, out, "status: failed")
	assert.Contains(t, out, "exit_code: 1")
}

func TestRender_HTMLChart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := report.Render(&buf, sampleReport(), report.FormatHTML)
	require.NoError(t, err)

	html := buf.String()
	require.Greater(t, buf.Len(), 100, "rendered HTML should have substantial content")
	assert.Contains(t, html, "protoforge run")
	assert.Contains(t, html, "ping.proto (python)")
	assert.Contains(t, html, "python fixer")
	assert.Contains(t, html, "#ee6666", "failed bars should be red")
	assert.Contains(t, html, "#fac858", "fixer bars should be yellow")
}

func TestRender_UnknownFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := report.Render(&buf, sampleReport(), "xml")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}
