// Package harness runs ledger scenarios described in YAML.
//
// A scenario is an ordered list of steps against one fresh ledger:
//
//   - append: record an event, optionally expecting an error code
//   - rebuild: fold an aggregate from a seed and compare the exact state
//
// Each run uses a deterministic clock (timestamps 1700000000000, +1ms per
// append) and a fixed ledger id, so the recorded trace is byte-identical
// across runs and can be compared against golden files in testdata/golden.
// Assertions (trace_contains, trace_order, trace_count, final_state) are
// evaluated after the last step.
package harness
