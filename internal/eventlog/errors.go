package eventlog

import (
	"errors"
	"fmt"
)

// Error represents a failure appending to or projecting from the log.
//
// Error includes structured fields for diagnostics. Not every field is set for
// every code.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// AggregateID identifies the affected aggregate, if any.
	AggregateID string

	// EventType identifies the affected event type, if any.
	EventType string

	// EventID identifies the record being applied (projection errors).
	EventID int64

	// Field names the payload or state field at fault.
	Field string
}

// ErrorCode categorizes log and projection errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates an empty aggregate id or event type,
	// or an invalid rule registration. Nothing was mutated.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeUnknownEventType indicates no transition is registered for a type.
	// Rebuild never returns it; unknown types are skipped.
	ErrCodeUnknownEventType ErrorCode = "UNKNOWN_EVENT_TYPE"

	// ErrCodeMalformedPayload indicates a payload field required by a
	// transition is missing or has the wrong type (strict mode).
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"

	// ErrCodeMalformedState indicates an accumulator field targeted by
	// arithmetic is not an integer (strict mode).
	ErrCodeMalformedState ErrorCode = "MALFORMED_STATE"

	// ErrCodeArithmeticOverflow indicates an int64 overflow while folding.
	ErrCodeArithmeticOverflow ErrorCode = "ARITHMETIC_OVERFLOW"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.EventID != 0 && e.Field != "":
		return fmt.Sprintf("%s (aggregate=%s, event=%d, type=%s, field=%s)", msg, e.AggregateID, e.EventID, e.EventType, e.Field)
	case e.EventID != 0:
		return fmt.Sprintf("%s (aggregate=%s, event=%d, type=%s)", msg, e.AggregateID, e.EventID, e.EventType)
	case e.AggregateID != "":
		return fmt.Sprintf("%s (aggregate=%s)", msg, e.AggregateID)
	}
	return msg
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidArgument returns true if err is an invalid argument error.
func IsInvalidArgument(err error) bool {
	return CodeOf(err) == ErrCodeInvalidArgument
}

// IsMalformedPayload returns true if err is a malformed payload error.
func IsMalformedPayload(err error) bool {
	return CodeOf(err) == ErrCodeMalformedPayload
}

// IsMalformedState returns true if err is a malformed state error.
func IsMalformedState(err error) bool {
	return CodeOf(err) == ErrCodeMalformedState
}

// IsOverflow returns true if err is an arithmetic overflow error.
func IsOverflow(err error) bool {
	return CodeOf(err) == ErrCodeArithmeticOverflow
}

// NewInvalidArgument creates an Error for a rejected argument.
func NewInvalidArgument(message string) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: message}
}

// ValidateAppend checks the arguments of an append.
// Both the in-memory log and the SQLite journal call it before mutating state.
func ValidateAppend(aggregateID, eventType string) error {
	if aggregateID == "" {
		return &Error{Code: ErrCodeInvalidArgument, Message: "aggregate id must be non-empty", EventType: eventType}
	}
	if eventType == "" {
		return &Error{Code: ErrCodeInvalidArgument, Message: "event type must be non-empty", AggregateID: aggregateID}
	}
	return nil
}
