package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/trustledger/internal/ir"
)

// CompileRulesFile reads a CUE file and compiles its rules.
func CompileRulesFile(path string) ([]ir.RuleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return CompileRulesString(path, string(data))
}

// CompileRulesString compiles CUE source holding a top-level rule struct.
// name is used for error positions.
//
//	rule: AccountFrozen: effects: [
//		{op: "set", field: "status", value: "frozen"},
//	]
func CompileRulesString(name, src string) ([]ir.RuleSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileRules(v)
}

// CompileRules extracts every rule under the top-level "rule" field of v.
// Rules are returned in CUE field order. A document without a rule field
// compiles to no rules.
func CompileRules(v cue.Value) ([]ir.RuleSpec, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	rulesVal := v.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return nil, nil
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.RuleSpec
	for iter.Next() {
		spec, err := CompileRule(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// CompileRule parses one rule body into a RuleSpec for eventType.
func CompileRule(eventType string, v cue.Value) (*ir.RuleSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.RuleSpec{EventType: eventType}

	effectsVal := v.LookupPath(cue.ParsePath("effects"))
	if !effectsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("rule.%s.effects", eventType),
			Message: "effects are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := effectsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		eff, err := compileEffect(fmt.Sprintf("rule.%s.effects[%d]", eventType, i), iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Effects = append(spec.Effects, eff)
	}

	return spec, nil
}

func compileEffect(path string, v cue.Value) (ir.Effect, error) {
	var eff ir.Effect
	var err error

	if eff.Op, err = optionalString(v, "op"); err != nil {
		return eff, err
	}
	if eff.Field, err = optionalString(v, "field"); err != nil {
		return eff, err
	}
	if eff.From, err = optionalString(v, "from"); err != nil {
		return eff, err
	}

	if val := v.LookupPath(cue.ParsePath("value")); val.Exists() {
		if eff.Value, err = toIRValue(path+".value", val); err != nil {
			return eff, err
		}
	}
	if def := v.LookupPath(cue.ParsePath("default")); def.Exists() {
		if eff.Default, err = toIRValue(path+".default", def); err != nil {
			return eff, err
		}
	}

	return eff, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// toIRValue converts a concrete CUE value into an IRValue.
// Floats are rejected: amounts are integers.
func toIRValue(path string, v cue.Value) (ir.IRValue, error) {
	if !v.IsConcrete() {
		return nil, &CompileError{Field: path, Message: "value must be concrete", Pos: v.Pos()}
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			elem, err := toIRValue(fmt.Sprintf("%s[%d]", path, i), iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := toIRValue(path+"."+iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	case cue.FloatKind:
		return nil, &CompileError{Field: path, Message: "floats are not allowed", Pos: v.Pos()}
	default:
		return nil, &CompileError{Field: path, Message: fmt.Sprintf("unsupported value kind %s", v.Kind()), Pos: v.Pos()}
	}
}

// CompileError is a rule compilation failure with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Report the first error with a position.
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
