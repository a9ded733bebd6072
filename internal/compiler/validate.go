package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/trustledger/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrRuleNoEffects      = "E200" // rule must declare at least one effect
	ErrUnknownOp          = "E201" // op is not set/set_from/add/sub
	ErrMissingField       = "E202" // effect field is required
	ErrMissingFrom        = "E203" // set_from/add/sub need a payload field
	ErrMissingValue       = "E204" // set needs a value
	ErrDuplicateRule      = "E205" // event type declared twice
	ErrInvalidEventType   = "E206" // event type empty or padded with whitespace
	ErrUnexpectedOperands = "E207" // operand not used by the op
)

// ValidationError represents a rule validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a single compiled rule.
// Returns all errors found (does not fail-fast).
func Validate(spec ir.RuleSpec) []ValidationError {
	var errs []ValidationError
	prefix := "rule." + spec.EventType

	if spec.EventType == "" || strings.TrimSpace(spec.EventType) != spec.EventType {
		errs = append(errs, ValidationError{
			Field:   "rule",
			Message: fmt.Sprintf("event type %q must be non-empty without surrounding whitespace", spec.EventType),
			Code:    ErrInvalidEventType,
		})
	}

	if len(spec.Effects) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".effects",
			Message: "at least one effect is required",
			Code:    ErrRuleNoEffects,
		})
	}

	for i, eff := range spec.Effects {
		errs = append(errs, validateEffect(fmt.Sprintf("%s.effects[%d]", prefix, i), eff)...)
	}

	return errs
}

// ValidateAll checks every rule and rejects duplicate event types.
func ValidateAll(specs []ir.RuleSpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(specs))

	for _, spec := range specs {
		errs = append(errs, Validate(spec)...)
		if seen[spec.EventType] {
			errs = append(errs, ValidationError{
				Field:   "rule." + spec.EventType,
				Message: "event type declared more than once",
				Code:    ErrDuplicateRule,
			})
		}
		seen[spec.EventType] = true
	}

	return errs
}

func validateEffect(path string, eff ir.Effect) []ValidationError {
	var errs []ValidationError

	if eff.Field == "" {
		errs = append(errs, ValidationError{Field: path + ".field", Message: "field is required", Code: ErrMissingField})
	}

	switch eff.Op {
	case ir.OpSet:
		if eff.Value == nil {
			errs = append(errs, ValidationError{Field: path + ".value", Message: "set requires a value", Code: ErrMissingValue})
		}
		if eff.From != "" || eff.Default != nil {
			errs = append(errs, ValidationError{Field: path, Message: "set takes only a value", Code: ErrUnexpectedOperands})
		}
	case ir.OpSetFrom:
		if eff.From == "" {
			errs = append(errs, ValidationError{Field: path + ".from", Message: "set_from requires from", Code: ErrMissingFrom})
		}
		if eff.Value != nil {
			errs = append(errs, ValidationError{Field: path, Message: "set_from takes from and default, not value", Code: ErrUnexpectedOperands})
		}
	case ir.OpAdd, ir.OpSub:
		if eff.From == "" {
			errs = append(errs, ValidationError{Field: path + ".from", Message: eff.Op + " requires from", Code: ErrMissingFrom})
		}
		if eff.Value != nil || eff.Default != nil {
			errs = append(errs, ValidationError{Field: path, Message: eff.Op + " takes only from", Code: ErrUnexpectedOperands})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   path + ".op",
			Message: fmt.Sprintf("unknown op %q: must be one of set, set_from, add, sub", eff.Op),
			Code:    ErrUnknownOp,
		})
	}

	return errs
}
