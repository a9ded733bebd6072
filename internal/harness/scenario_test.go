package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ResolvesRulesRelativeToFile(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "declarative_rules.yaml"))
	require.NoError(t, err)

	require.Len(t, s.Rules, 1)
	assert.Equal(t, filepath.Join("testdata", "rules", "account_extras.cue"), s.Rules[0])
	assert.Len(t, s.Steps, 5)
	assert.NotNil(t, s.Steps[0].Append)
	assert.NotNil(t, s.Steps[4].Rebuild)
}

func TestLoadScenario_Errors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), "failed to read scenario file"},
		{"unknown field", write("typo.yaml", "name: x\ndescription: y\nstep: []\n"), "failed to parse YAML"},
		{"missing rules", write("rules.yaml", "name: x\ndescription: y\nrules: [gone.cue]\nsteps:\n  - rebuild: {aggregate: A}\n"), "rules file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "description: d\nsteps: [{rebuild: {aggregate: A}}]", "name is required"},
		{"no description", "name: n\nsteps: [{rebuild: {aggregate: A}}]", "description is required"},
		{"no steps", "name: n\ndescription: d", "steps list is required"},
		{"empty step", "name: n\ndescription: d\nsteps: [{expect_error: X}]", "one of append or rebuild is required"},
		{"both ops", "name: n\ndescription: d\nsteps: [{append: {aggregate: A, type: T}, rebuild: {aggregate: A}}]", "mutually exclusive"},
		{"expect and error", "name: n\ndescription: d\nsteps: [{rebuild: {aggregate: A, expect: {a: 1}}, expect_error: X}]", "expect and expect_error"},
		{"bad backend", "name: n\ndescription: d\nbackend: redis\nsteps: [{rebuild: {aggregate: A}}]", "unknown backend"},
		{"bad mode", "name: n\ndescription: d\npayload_mode: loose\nsteps: [{rebuild: {aggregate: A}}]", "unknown payload_mode"},
		{"bad assertion", "name: n\ndescription: d\nsteps: [{rebuild: {aggregate: A}}]\nassertions: [{type: vibes}]", "unknown assertion type"},
		{"trace_count without type", "name: n\ndescription: d\nsteps: [{rebuild: {aggregate: A}}]\nassertions: [{type: trace_count, count: 1}]", "event_type is required"},
		{"final_state without expect", "name: n\ndescription: d\nsteps: [{rebuild: {aggregate: A}}]\nassertions: [{type: final_state, aggregate: A}]", "expect is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
