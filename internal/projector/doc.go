// Package projector rebuilds aggregate state by replaying the event log.
//
// Rebuild deep-copies the caller's seed, scans a snapshot of the log in order
// and, for every event of the requested aggregate, applies the Transition
// registered for its event type. Unknown event types are skipped so older
// projectors tolerate logs written by newer code.
//
// Dispatch is open: a Registry maps event type to Transition, and new types
// register without touching existing rules. Rules can be plain Go functions
// or declarative ir.RuleSpec values compiled from CUE (see internal/compiler).
//
// # Payload mode
//
// One mode is chosen per deployment:
//   - ModeLenient (default): a missing or non-integer numeric field reads as 0
//   - ModeStrict: the same conditions fail the rebuild with MALFORMED_PAYLOAD
//     (or MALFORMED_STATE for the accumulator)
//
// Integer overflow fails the rebuild in both modes.
package projector
