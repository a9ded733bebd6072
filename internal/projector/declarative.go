package projector

import (
	"fmt"

	"github.com/roach88/trustledger/internal/eventlog"
	"github.com/roach88/trustledger/internal/ir"
)

// Declarative builds a Transition from a compiled rule spec.
//
// Effects run in declaration order against the same accumulator:
//   - set:      state[field] = value
//   - set_from: state[field] = payload[from], or default when absent
//     (without a default an absent field leaves state untouched)
//   - add:      state[field] += payload[from]
//   - sub:      state[field] -= payload[from]
//
// add and sub follow the payload mode exactly like the built-in rules.
func Declarative(spec ir.RuleSpec) (Transition, error) {
	if spec.EventType == "" {
		return nil, eventlog.NewInvalidArgument("rule event type must be non-empty")
	}
	if len(spec.Effects) == 0 {
		return nil, eventlog.NewInvalidArgument(fmt.Sprintf("rule %s has no effects", spec.EventType))
	}

	effects := make([]ir.Effect, len(spec.Effects))
	for i, eff := range spec.Effects {
		if err := checkEffect(eff); err != nil {
			return nil, eventlog.NewInvalidArgument(fmt.Sprintf("rule %s effect %d: %v", spec.EventType, i, err))
		}
		effects[i] = ir.Effect{
			Op:    eff.Op,
			Field: eff.Field,
			From:  eff.From,
		}
		if eff.Value != nil {
			effects[i].Value = ir.Clone(eff.Value)
		}
		if eff.Default != nil {
			effects[i].Default = ir.Clone(eff.Default)
		}
	}

	return func(state ir.IRObject, p Payload) (ir.IRObject, error) {
		for _, eff := range effects {
			if err := applyEffect(state, p, eff); err != nil {
				return nil, err
			}
		}
		return state, nil
	}, nil
}

func checkEffect(eff ir.Effect) error {
	if eff.Field == "" {
		return fmt.Errorf("field is required")
	}
	switch eff.Op {
	case ir.OpSet:
		if eff.Value == nil {
			return fmt.Errorf("set requires a value")
		}
	case ir.OpSetFrom, ir.OpAdd, ir.OpSub:
		if eff.From == "" {
			return fmt.Errorf("%s requires from", eff.Op)
		}
	default:
		return fmt.Errorf("unknown op %q", eff.Op)
	}
	return nil
}

func applyEffect(state ir.IRObject, p Payload, eff ir.Effect) error {
	switch eff.Op {
	case ir.OpSet:
		state[eff.Field] = ir.Clone(eff.Value)
	case ir.OpSetFrom:
		if v, ok := p.Get(eff.From); ok {
			state[eff.Field] = v
		} else if eff.Default != nil {
			state[eff.Field] = ir.Clone(eff.Default)
		}
	case ir.OpAdd:
		n, err := p.Int(eff.From)
		if err != nil {
			return err
		}
		return p.AddTo(state, eff.Field, n)
	case ir.OpSub:
		n, err := p.Int(eff.From)
		if err != nil {
			return err
		}
		return p.SubFrom(state, eff.Field, n)
	}
	return nil
}
