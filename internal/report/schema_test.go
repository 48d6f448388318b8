package report_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/protoforge/internal/report"
)

func renderJSON(t *testing.T, rep *report.RunReport) []byte {
	t.Helper()

	var buf bytes.Buffer

	require.NoError(t, report.Render(&buf, rep, report.FormatJSON))

	return buf.Bytes()
}

func TestSchema_Embedded(t *testing.T) {
	t.Parallel()

	data, err := report.Schema()
	require.NoError(t, err)
	assert.Contains(t, string(data), "$schema")
	assert.Contains(t, string(data), "InvocationResult")
}

func TestValidateJSON_ValidReport(t *testing.T) {
	t.Parallel()

	violations, err := report.ValidateJSON(renderJSON(t, sampleReport()))
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateJSON_ZeroInvocationTarget(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	rep := &report.RunReport{
		Started:  started,
		Finished: started.Add(time.Second),
		ProtoDir: "proto",
		Targets:  []string{"python"},
		TargetReports: []report.TargetReport{
			{
				Name:        "python",
				OutDir:      "gen/python",
				FileCount:   0,
				Invocations: []report.InvocationResult{},
			},
		},
	}
	rep.Aggregate()

	violations, err := report.ValidateJSON(renderJSON(t, rep))
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateJSON_MissingRequiredField(t *testing.T) {
	t.Parallel()

	var doc map[string]any

	require.NoError(t, json.Unmarshal(renderJSON(t, sampleReport()), &doc))
	delete(doc, "status")

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	violations, err := report.ValidateJSON(data)
	require.NoError(t, err)
	require.NotEmpty(t, violations)
	assert.Contains(t, violations[0].Description, "status")
}

func TestValidateJSON_WrongFieldType(t *testing.T) {
	t.Parallel()

	var doc map[string]any

	require.NoError(t, json.Unmarshal(renderJSON(t, sampleReport()), &doc))

	targets, ok := doc["target_reports"].([]any)
	require.True(t, ok)

	first, ok := targets[0].(map[string]any)
	require.True(t, ok)
	first["file_count"] = "two"

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	violations, err := report.ValidateJSON(data)
	require.NoError(t, err)
	assert.NotEmpty(t, violations)
}

func TestValidateJSON_MalformedInput(t *testing.T) {
	t.Parallel()

	_, err := report.ValidateJSON([]byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse report json")
}

func TestValidateFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, renderJSON(t, sampleReport()), 0o600))

	violations, err := report.ValidateFile(path)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := report.ValidateFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read report file")
}
