package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/trustledger/internal/ir"
)

// AssertionError provides detailed context for assertion failures.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace for debugging context, may be nil
}

// Error formats the assertion error with the appended events for debugging.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nAppended events:\n")
		for _, event := range e.Trace {
			if event.Op == OpAppend && event.Error == "" {
				fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.EventID, event.Aggregate, event.EventType, formatObject(event.Payload))
			}
		}
	}

	return buf.String()
}

// StateRebuilder rebuilds aggregate state for final_state assertions.
type StateRebuilder interface {
	Rebuild(ctx context.Context, aggregateID string, seed ir.IRObject) (ir.IRObject, error)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// rebuilder serves final_state assertions and may be nil if there are none.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, rebuilder StateRebuilder) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if rebuilder == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a ledger", i)
			} else {
				err = assertFinalState(ctx, rebuilder, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// appended returns the successful append entries, optionally narrowed to one
// aggregate.
func appended(trace []TraceEvent, aggregateID string) []TraceEvent {
	var out []TraceEvent
	for _, event := range trace {
		if event.Op != OpAppend || event.Error != "" {
			continue
		}
		if aggregateID != "" && event.Aggregate != aggregateID {
			continue
		}
		out = append(out, event)
	}
	return out
}

// assertTraceContains checks an event of the given type with a matching
// payload subset was appended.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := ir.FromNativeMap(assertion.Payload)
	if err != nil {
		return fmt.Errorf("trace_contains: payload: %w", err)
	}

	for _, event := range appended(trace, assertion.Aggregate) {
		if event.EventType == assertion.EventType && matchSubset(event.Payload, expected) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event %s with payload %s", assertion.EventType, formatObject(expected)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks event types first appear in the given order.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)

	for i, event := range appended(trace, assertion.Aggregate) {
		if _, seen := positions[event.EventType]; !seen {
			positions[event.EventType] = i + 1 // 1-indexed for readability
		}
	}

	for _, eventType := range assertion.EventTypes {
		if positions[eventType] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all event types present: %v", assertion.EventTypes),
				Actual:   fmt.Sprintf("missing event type: %s", eventType),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.EventTypes); i++ {
		prev := assertion.EventTypes[i-1]
		curr := assertion.EventTypes[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("event types in order: %v", assertion.EventTypes),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks the exact number of appends of one event type.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range appended(trace, assertion.Aggregate) {
		if event.EventType == assertion.EventType {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.EventType),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState rebuilds the aggregate and checks a subset of its fields.
func assertFinalState(ctx context.Context, rebuilder StateRebuilder, assertion Assertion) error {
	seed, err := ir.FromNativeMap(assertion.Seed)
	if err != nil {
		return fmt.Errorf("final_state: seed: %w", err)
	}
	expected, err := ir.FromNativeMap(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state: expect: %w", err)
	}

	state, err := rebuilder.Rebuild(ctx, assertion.Aggregate, seed)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("rebuild %s", assertion.Aggregate),
			Actual:   fmt.Sprintf("rebuild error: %v", err),
		}
	}

	for _, key := range expected.SortedKeys() {
		actual, exists := state[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("state %s", formatObject(state)),
			}
		}
		if !ir.Equal(expected[key], actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %s", assertion.Aggregate, key, formatValue(expected[key])),
				Actual:   fmt.Sprintf("%s.%s = %s", assertion.Aggregate, key, formatValue(actual)),
			}
		}
	}

	return nil
}

// matchSubset reports whether every key of expected is present in actual
// with an equal value. Extra keys in actual are ignored.
func matchSubset(actual, expected ir.IRObject) bool {
	for key, want := range expected {
		got, exists := actual[key]
		if !exists || !ir.Equal(want, got) {
			return false
		}
	}
	return true
}

func formatValue(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
