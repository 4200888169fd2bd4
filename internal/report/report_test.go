package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ozzus/sitecheck/internal/domain"
)

func sampleOutcomes() []domain.CheckOutcome {
	return []domain.CheckOutcome{
		{Seq: 0, URL: "https://a.example", Status: domain.StatusCode(200), ResponseMs: 120, Timestamp: 1700000000},
		{Seq: 1, URL: "https://b.example", Status: domain.StatusError("request timed out after 5s"), ResponseMs: 5001, Timestamp: 1700000005},
		{
			Seq: 2, URL: "https://c.example", Status: domain.StatusCode(404), ResponseMs: 80, Timestamp: 1700000001,
			Assertion: &domain.AssertionResult{
				Header: "x-env", Expected: "prod", Actual: "dev", Found: true, Passed: false,
				Detail: "header 'x-env' assertion failed: expected 'prod', got 'dev'",
			},
		},
	}
}

func TestEntryFor(t *testing.T) {
	outcomes := sampleOutcomes()

	tests := []struct {
		name       string
		outcome    domain.CheckOutcome
		status     any
		httpStatus int
	}{
		{name: "numeric status", outcome: outcomes[0], status: 200},
		{name: "transport error", outcome: outcomes[1], status: "request timed out after 5s"},
		{
			name:       "assertion failure keeps code",
			outcome:    outcomes[2],
			status:     "404 header 'x-env' assertion failed: expected 'prod', got 'dev'",
			httpStatus: 404,
		},
		{
			name: "passed assertion",
			outcome: domain.CheckOutcome{
				URL: "https://d.example", Status: domain.StatusCode(200),
				Assertion: &domain.AssertionResult{Header: "x-env", Expected: "prod", Actual: "prod", Found: true, Passed: true},
			},
			status:     200,
			httpStatus: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := EntryFor(tt.outcome)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.httpStatus, e.HTTPStatus)
			assert.Equal(t, tt.outcome.URL, e.URL)
		})
	}
}

func TestEncodeJSONSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, Entries(sampleOutcomes())))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 3)

	assert.Equal(t, map[string]any{
		"url":             "https://a.example",
		"status":          float64(200),
		"responseTimeMs":  float64(120),
		"timestampEpochS": float64(1700000000),
	}, decoded[0])
	assert.Equal(t, "request timed out after 5s", decoded[1]["status"])
	assert.Equal(t, float64(404), decoded[2]["httpStatus"])

	assertion, ok := decoded[2]["assertion"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x-env", assertion["header"])
	assert.Equal(t, false, assertion["passed"])

	assert.Contains(t, buf.String(), "\n  {\n    \"url\"")
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, Entries(sampleOutcomes()[:2])))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, 200, decoded[0]["status"])
	assert.Equal(t, "request timed out after 5s", decoded[1]["status"])
	assert.Equal(t, 5001, decoded[1]["responseTimeMs"])
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "status.json", FileName(1, false, FormatJSON))
	assert.Equal(t, "status_round_3.json", FileName(3, true, FormatJSON))
	assert.Equal(t, "status_round_2.yaml", FileName(2, true, FormatYAML))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat(" YML ")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriterWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w := NewWriter(dir, FormatJSON)

	path, err := w.Write(4, true, sampleOutcomes())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "status_round_4.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "https://b.example", decoded[1].URL)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriterOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, FormatJSON)

	_, err := w.Write(1, false, sampleOutcomes())
	require.NoError(t, err)
	path, err := w.Write(1, false, sampleOutcomes()[:1])
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 1)
}
