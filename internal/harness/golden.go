package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/trustledger/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	LedgerID     string
	Trace        []TraceEvent
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// Optional trace fields are omitted when empty.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		m := map[string]any{
			"step":        event.Step,
			"op":          event.Op,
			"aggregateId": event.Aggregate,
		}
		if event.EventID != 0 {
			m["eventId"] = event.EventID
		}
		if event.EventType != "" {
			m["eventType"] = event.EventType
		}
		if event.Timestamp != 0 {
			m["timestamp"] = event.Timestamp
		}
		if event.Payload != nil {
			m["payload"] = event.Payload
		}
		if event.Seed != nil {
			m["seed"] = event.Seed
		}
		if event.State != nil {
			m["state"] = event.State
		}
		if event.Error != "" {
			m["error"] = event.Error
		}
		traceList[i] = m
	}

	return map[string]any{
		"scenario": s.ScenarioName,
		"ledgerId": s.LedgerID,
		"trace":    traceList,
	}
}

// MarshalTrace renders a result's trace as the canonical JSON stored in
// golden files.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		LedgerID:     result.LedgerID,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
