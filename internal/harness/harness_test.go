package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustledger/internal/config"
	"github.com/roach88/trustledger/internal/ir"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestScenarios_Golden(t *testing.T) {
	names := []string{
		"account_fold",
		"unknown_event_type",
		"invalid_arguments",
		"lenient_payloads",
		"strict_payloads",
		"overflow",
		"declarative_rules",
		"sqlite_backend",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			scenario := loadTestScenario(t, name)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Equal(t, "test-ledger-default", result.LedgerID)
			assert.NotEmpty(t, result.LogDigest)
		})
	}
}

func TestRun_AccountFoldStates(t *testing.T) {
	result, err := Run(loadTestScenario(t, "account_fold"))
	require.NoError(t, err)

	assert.Equal(t, ir.IRObject{"status": ir.IRString("active"), "balance": ir.IRInt(130)}, result.States["User-101"])
	assert.Equal(t, ir.IRObject{"status": ir.IRString("active"), "balance": ir.IRInt(500)}, result.States["User-102"])
}

func TestRun_SameLogOnBothBackends(t *testing.T) {
	scenario := loadTestScenario(t, "account_fold")

	mem, err := Run(scenario)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Backend = config.BackendSQLite
	sql, err := Run(scenario, WithConfig(cfg))
	require.NoError(t, err)

	assert.Equal(t, mem.LogDigest, sql.LogDigest)
	assert.Equal(t, mem.Trace, sql.Trace)
}

func TestRun_ScenarioOverridesConfig(t *testing.T) {
	scenario := loadTestScenario(t, "strict_payloads")

	cfg := config.Default()
	cfg.PayloadMode = "lenient"
	result, err := Run(scenario, WithConfig(cfg))
	require.NoError(t, err)
	assert.True(t, result.Pass, "scenario payload_mode must win: %v", result.Errors)
}

func TestRun_ReportsUnexpectedOutcomes(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: mismatches
description: every expectation is wrong
steps:
  - append: {aggregate: User-1, type: AccountCreated, payload: {initialBalance: 5}}
    expect_error: INVALID_ARGUMENT
  - append: {aggregate: "", type: AccountCreated}
  - rebuild: {aggregate: User-1, expect: {balance: 6}}
  - rebuild: {aggregate: User-1}
    expect_error: MALFORMED_PAYLOAD
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "expected error INVALID_ARGUMENT, got event 1")
	assert.Contains(t, result.Errors[1], "unexpected error")
	assert.Contains(t, result.Errors[2], `expected state {"balance":6}`)
	assert.Contains(t, result.Errors[3], "expected error MALFORMED_PAYLOAD")
}

func TestRun_RejectsFloatPayloads(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: floats
description: floats are not values
steps:
  - append: {aggregate: User-1, type: BalanceCredited, payload: {amount: 1.5}}
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are not allowed")
}

func TestRun_MissingRulesFile(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_rules
description: rules file does not exist
rules: [nowhere.cue]
steps:
  - rebuild: {aggregate: User-1}
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_rules")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := loadTestScenario(t, "declarative_rules")

	r1, err := Run(scenario)
	require.NoError(t, err)
	r2, err := Run(scenario)
	require.NoError(t, err)

	j1, err := MarshalTrace(scenario.Name, r1)
	require.NoError(t, err)
	j2, err := MarshalTrace(scenario.Name, r2)
	require.NoError(t, err)
	assert.Equal(t, string(j1), string(j2))
	assert.Equal(t, r1.LogDigest, r2.LogDigest)
}
