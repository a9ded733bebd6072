package projector

import (
	"fmt"
	"log/slog"

	"github.com/roach88/trustledger/internal/eventlog"
	"github.com/roach88/trustledger/internal/ir"
)

// Mode selects how transitions treat missing or mistyped numeric fields.
type Mode string

const (
	// ModeLenient reads missing or non-integer numeric fields as 0.
	ModeLenient Mode = "lenient"

	// ModeStrict rejects missing or non-integer numeric fields.
	ModeStrict Mode = "strict"
)

// ParseMode parses a mode name. The empty string selects ModeLenient.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeLenient:
		return ModeLenient, nil
	case ModeStrict:
		return ModeStrict, nil
	}
	return "", fmt.Errorf("invalid payload mode %q: must be %q or %q", s, ModeLenient, ModeStrict)
}

// Payload is the read-only view of one event handed to a Transition.
//
// It carries the event's payload together with the fold context (mode, event
// identity, logger) so every transition applies the same missing-field policy.
type Payload struct {
	event  ir.Event
	mode   Mode
	logger *slog.Logger
}

func newPayload(e ir.Event, mode Mode, logger *slog.Logger) Payload {
	return Payload{event: e, mode: mode, logger: logger}
}

// Event returns a copy of the event being applied.
func (p Payload) Event() ir.Event {
	return p.event.Clone()
}

// Mode returns the payload mode in effect.
func (p Payload) Mode() Mode {
	return p.mode
}

// Get returns a deep copy of the named payload field.
func (p Payload) Get(field string) (ir.IRValue, bool) {
	v, ok := p.event.Payload[field]
	if !ok {
		return nil, false
	}
	return ir.Clone(v), true
}

// String reads a string field. ok is false when the field is absent or not a
// string.
func (p Payload) String(field string) (s string, ok bool) {
	v, ok := p.event.Payload[field].(ir.IRString)
	return string(v), ok
}

// Object returns a deep copy of the whole payload.
func (p Payload) Object() ir.IRObject {
	return ir.CloneObject(p.event.Payload)
}

// Int reads a required integer field.
// Lenient: missing or non-integer reads as 0. Strict: MALFORMED_PAYLOAD.
func (p Payload) Int(field string) (int64, error) {
	v, ok := p.event.Payload[field]
	if !ok {
		if p.mode == ModeStrict {
			return 0, p.malformed(eventlog.ErrCodeMalformedPayload, field, fmt.Sprintf("%s is required", field))
		}
		return 0, nil
	}
	return p.asInt(eventlog.ErrCodeMalformedPayload, field, v)
}

// IntOr reads an optional integer field, returning def when it is absent.
// A present but non-integer value is handled as in Int.
func (p Payload) IntOr(field string, def int64) (int64, error) {
	v, ok := p.event.Payload[field]
	if !ok {
		return def, nil
	}
	return p.asInt(eventlog.ErrCodeMalformedPayload, field, v)
}

// StateInt reads an integer accumulator field. A missing field reads as 0 in
// both modes; a non-integer one is MALFORMED_STATE in strict mode.
func (p Payload) StateInt(state ir.IRObject, field string) (int64, error) {
	v, ok := state[field]
	if !ok {
		return 0, nil
	}
	return p.asInt(eventlog.ErrCodeMalformedState, field, v)
}

// AddTo adds delta to the integer accumulator field, failing on overflow.
func (p Payload) AddTo(state ir.IRObject, field string, delta int64) error {
	cur, err := p.StateInt(state, field)
	if err != nil {
		return err
	}
	sum := cur + delta
	if (sum > cur) != (delta > 0) {
		return p.malformed(eventlog.ErrCodeArithmeticOverflow, field,
			fmt.Sprintf("%d + %d overflows int64", cur, delta))
	}
	state[field] = ir.IRInt(sum)
	return nil
}

// SubFrom subtracts delta from the integer accumulator field, failing on overflow.
func (p Payload) SubFrom(state ir.IRObject, field string, delta int64) error {
	cur, err := p.StateInt(state, field)
	if err != nil {
		return err
	}
	diff := cur - delta
	if (diff < cur) != (delta > 0) {
		return p.malformed(eventlog.ErrCodeArithmeticOverflow, field,
			fmt.Sprintf("%d - %d overflows int64", cur, delta))
	}
	state[field] = ir.IRInt(diff)
	return nil
}

func (p Payload) asInt(code eventlog.ErrorCode, field string, v ir.IRValue) (int64, error) {
	if n, ok := v.(ir.IRInt); ok {
		return int64(n), nil
	}
	if p.mode == ModeStrict {
		return 0, p.malformed(code, field, fmt.Sprintf("%s must be an integer, got %T", field, v))
	}
	p.logger.Warn("non-integer field read as 0",
		"aggregate_id", p.event.AggregateID,
		"event_id", p.event.ID,
		"event_type", p.event.EventType,
		"field", field,
		"kind", fmt.Sprintf("%T", v),
	)
	return 0, nil
}

func (p Payload) malformed(code eventlog.ErrorCode, field, message string) *eventlog.Error {
	return &eventlog.Error{
		Code:        code,
		Message:     message,
		AggregateID: p.event.AggregateID,
		EventType:   p.event.EventType,
		EventID:     p.event.ID,
		Field:       field,
	}
}
