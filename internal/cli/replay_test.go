package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustledger/internal/harness"
)

func newReplay(opts *RootOptions, args ...string) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestReplayCommandRequiresScenario(t *testing.T) {
	_, err := newReplay(&RootOptions{Format: "text"})
	require.Error(t, err)
}

func TestReplayCommandMissingFile(t *testing.T) {
	_, err := newReplay(&RootOptions{Format: "text"}, "/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayCommandText(t *testing.T) {
	buf, err := newReplay(&RootOptions{Format: "text"}, filepath.Join(harnessScenarios, "account_fold.yaml"))
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Replaying scenario account_fold (4 events)")
	assert.Contains(t, output, "✓ log ")
	assert.Contains(t, output, "✓ User-101")
	assert.Contains(t, output, "✓ User-102")
	assert.Contains(t, output, "Deterministic: 2 aggregate(s) verified")
}

func TestReplayCommandJSON(t *testing.T) {
	buf, err := newReplay(&RootOptions{Format: "json"}, filepath.Join(harnessScenarios, "sqlite_backend.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string               `json:"status"`
		Data   harness.ReplayReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Deterministic)
	assert.True(t, resp.Data.LogDeterministic)
	assert.NotEmpty(t, resp.Data.Aggregates)
}

func TestReplayCommandRejectedRebuildIsDeterministic(t *testing.T) {
	buf, err := newReplay(&RootOptions{Format: "text"}, filepath.Join(harnessScenarios, "overflow.yaml"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "rejected with ARITHMETIC_OVERFLOW")
}

func TestOutputReplayTextNonDeterministic(t *testing.T) {
	buf := &bytes.Buffer{}
	report := &harness.ReplayReport{
		Scenario:         "drift",
		Events:           1,
		LogDeterministic: true,
		LogDigest:        "sha256:abc",
		Aggregates: []harness.AggregateReplay{
			{Aggregate: "A-1", Digest: "sha256:def", Deterministic: false},
		},
		Deterministic: false,
	}

	err := outputReplayText(buf, report, false)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ A-1: state differs between rebuilds")
	assert.Contains(t, buf.String(), "Determinism verification FAILED")
}

func TestOutputReplayJSONNonDeterministic(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	report := &harness.ReplayReport{Scenario: "drift", Aggregates: []harness.AggregateReplay{}}

	err := outputReplayJSON(f, report)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDeterminism, resp.Error.Code)
}
