package ir

// Effect operations understood by declarative transition rules.
const (
	OpSet     = "set"      // field = Value
	OpSetFrom = "set_from" // field = payload[From], or Default when absent
	OpAdd     = "add"      // field += payload[From]
	OpSub     = "sub"      // field -= payload[From]
)

// RuleSpec is a compiled declarative transition rule for one event type.
// Effects are applied to the accumulator in declaration order.
type RuleSpec struct {
	EventType string   `json:"event_type"`
	Effects   []Effect `json:"effects"`
}

// Effect is a single field update within a RuleSpec.
type Effect struct {
	Op      string  `json:"op"`
	Field   string  `json:"field"`
	From    string  `json:"from,omitempty"`
	Value   IRValue `json:"value,omitempty"`
	Default IRValue `json:"default,omitempty"`
}
