package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a ledger scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Backend optionally pins the journal backend ("memory" or "sqlite").
	Backend string `yaml:"backend,omitempty"`

	// PayloadMode optionally pins the payload mode ("lenient" or "strict").
	PayloadMode string `yaml:"payload_mode,omitempty"`

	// Rules lists CUE rule files, relative to the scenario file.
	Rules []string `yaml:"rules,omitempty"`

	// LedgerID is an optional fixed ledger id.
	// If empty, defaults to "test-ledger-default".
	LedgerID string `yaml:"ledger_id,omitempty"`

	// Steps run in order against one ledger.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is exactly one of Append or Rebuild.
type Step struct {
	Append  *AppendStep  `yaml:"append,omitempty"`
	Rebuild *RebuildStep `yaml:"rebuild,omitempty"`

	// ExpectError is the error code the step must fail with
	// (e.g. "INVALID_ARGUMENT", "MALFORMED_PAYLOAD").
	ExpectError string `yaml:"expect_error,omitempty"`
}

// AppendStep appends one event.
type AppendStep struct {
	Aggregate string         `yaml:"aggregate"`
	Type      string         `yaml:"type"`
	Payload   map[string]any `yaml:"payload,omitempty"`
}

// RebuildStep rebuilds one aggregate.
type RebuildStep struct {
	Aggregate string         `yaml:"aggregate"`
	Seed      map[string]any `yaml:"seed,omitempty"`

	// Expect is the exact expected state. If nil, the state is only traced.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion validates the trace or a final aggregate state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an appended event of EventType with a payload superset of Payload
	// - "trace_order": EventTypes first appear in this order
	// - "trace_count": EventType was appended exactly Count times
	// - "final_state": rebuilding Aggregate from Seed yields a superset of Expect
	Type string `yaml:"type"`

	// EventType is used by trace_contains and trace_count.
	EventType string `yaml:"event_type,omitempty"`

	// Aggregate narrows trace assertions to one aggregate; required by final_state.
	Aggregate string `yaml:"aggregate,omitempty"`

	// Payload is a subset match (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// EventTypes is the expected order (trace_order).
	EventTypes []string `yaml:"event_types,omitempty"`

	// Count is the expected number of appends (trace_count).
	Count int `yaml:"count,omitempty"`

	// Seed and Expect are used by final_state.
	Seed   map[string]any `yaml:"seed,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file, resolving rule paths
// relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving rule paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, rulesPath := range scenario.Rules {
		if !filepath.IsAbs(rulesPath) && basePath != "" {
			scenario.Rules[i] = filepath.Join(basePath, rulesPath)
		}
	}

	for _, rulesPath := range scenario.Rules {
		if _, err := os.Stat(rulesPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: rules file not found: %s", rulesPath)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Rule paths are left as
// written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	switch s.Backend {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	switch s.PayloadMode {
	case "", "lenient", "strict":
	default:
		return fmt.Errorf("unknown payload_mode %q", s.PayloadMode)
	}

	for i, step := range s.Steps {
		switch {
		case step.Append != nil && step.Rebuild != nil:
			return fmt.Errorf("steps[%d]: append and rebuild are mutually exclusive", i)
		case step.Append == nil && step.Rebuild == nil:
			return fmt.Errorf("steps[%d]: one of append or rebuild is required", i)
		case step.Rebuild != nil && step.Rebuild.Expect != nil && step.ExpectError != "":
			return fmt.Errorf("steps[%d]: expect and expect_error are mutually exclusive", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.EventType == "" {
			return fmt.Errorf("assertions[%d]: event_type is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.EventTypes) == 0 {
			return fmt.Errorf("assertions[%d]: event_types list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.EventType == "" {
			return fmt.Errorf("assertions[%d]: event_type is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Aggregate == "" {
			return fmt.Errorf("assertions[%d]: aggregate is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
