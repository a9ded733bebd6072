package harness

import "github.com/roach88/trustledger/internal/ir"

// Trace operation names.
const (
	OpAppend  = "append"
	OpRebuild = "rebuild"
)

// TraceEvent records one executed step.
// Append steps fill EventID, EventType, Timestamp and Payload; rebuild steps
// fill Seed and State. Error holds the error code of a failed step.
type TraceEvent struct {
	Step      int         `json:"step"`
	Op        string      `json:"op"`
	Aggregate string      `json:"aggregateId"`
	EventID   int64       `json:"eventId,omitempty"`
	EventType string      `json:"eventType,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Payload   ir.IRObject `json:"payload,omitempty"`
	Seed      ir.IRObject `json:"seed,omitempty"`
	State     ir.IRObject `json:"state,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// LedgerID is the id of the ledger the scenario ran against.
	LedgerID string `json:"ledger_id"`

	// Trace contains every step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// States holds the last successfully rebuilt state per aggregate.
	States map[string]ir.IRObject `json:"states,omitempty"`

	// Seeds holds the seed of the last rebuild per aggregate.
	Seeds map[string]ir.IRObject `json:"-"`

	// LogDigest is the digest of the final event log.
	LogDigest string `json:"log_digest"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		States: make(map[string]ir.IRObject),
		Seeds:  make(map[string]ir.IRObject),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddAppendTrace records an append step.
func (r *Result) AddAppendTrace(step int, ev ir.Event) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:      step,
		Op:        OpAppend,
		Aggregate: ev.AggregateID,
		EventID:   ev.ID,
		EventType: ev.EventType,
		Timestamp: ev.Timestamp,
		Payload:   ev.Payload,
	})
}

// AddRebuildTrace records a rebuild step.
func (r *Result) AddRebuildTrace(step int, aggregateID string, seed, state ir.IRObject) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:      step,
		Op:        OpRebuild,
		Aggregate: aggregateID,
		Seed:      seed,
		State:     state,
	})
}

// AddFailedTrace records a step that returned an error.
func (r *Result) AddFailedTrace(step int, op, aggregateID, eventType, code string) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:      step,
		Op:        op,
		Aggregate: aggregateID,
		EventType: eventType,
		Error:     code,
	})
}
