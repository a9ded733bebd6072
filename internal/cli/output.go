package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/trustledger/internal/eventlog"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a scenario failed, replay diverged or rules are invalid
	ExitCommandError = 2 // bad flag, missing file or invalid configuration
)

// Codes for failures that carry no ledger error code. Ledger failures report
// their own code (INVALID_ARGUMENT, MALFORMED_PAYLOAD, ...).
const (
	ErrCodeGeneric     = "E001"
	ErrCodeConfig      = "E002"
	ErrCodeScenario    = "E003"
	ErrCodeRules       = "E004"
	ErrCodeDeterminism = "E_DETERMINISM"
)

// ExitError is an error that selects the process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that are not an
// ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope every command writes in --format json.
type CLIResponse struct {
	Status   string    `json:"status"` // "ok" or "error"
	Data     any       `json:"data,omitempty"`
	Error    *CLIError `json:"error,omitempty"`
	LedgerID string    `json:"ledger_id,omitempty"`
}

// CLIError describes a failure inside a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EventDetails locates a ledger error: the aggregate and, for projection
// errors, the event and field at fault.
type EventDetails struct {
	AggregateID string `json:"aggregateId,omitempty"`
	EventType   string `json:"eventType,omitempty"`
	EventID     int64  `json:"eventId,omitempty"`
	Field       string `json:"field,omitempty"`
}

// ErrorCode returns the ledger error code carried by err, or fallback.
func ErrorCode(err error, fallback string) string {
	if code := eventlog.CodeOf(err); code != "" {
		return string(code)
	}
	return fallback
}

// errorDetails extracts EventDetails from a ledger error, or nil.
func errorDetails(err error) *EventDetails {
	var le *eventlog.Error
	if !errors.As(err, &le) {
		return nil
	}
	d := EventDetails{
		AggregateID: le.AggregateID,
		EventType:   le.EventType,
		EventID:     le.EventID,
		Field:       le.Field,
	}
	if d == (EventDetails{}) {
		return nil
	}
	return &d
}

// OutputFormatter writes command results as text or as a JSON envelope.
// Diagnostics go to ErrWriter so stdout stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // falls back to Writer when nil
	Verbose   bool
}

// JSON writes resp as indented JSON.
func (f *OutputFormatter) JSON(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Fail reports a failed ledger operation. In JSON mode the envelope carries
// the ledger error code and the offending event; in text mode one line goes
// to ErrWriter, plus the event location when verbose.
func (f *OutputFormatter) Fail(ledgerID, message string, err error, fallback string) error {
	code := ErrorCode(err, fallback)
	details := errorDetails(err)

	if f.Format == "json" {
		cliErr := &CLIError{Code: code, Message: message}
		if details != nil {
			cliErr.Details = details
		}
		return f.JSON(CLIResponse{Status: "error", Error: cliErr, LedgerID: ledgerID})
	}

	w := f.errWriter()
	fmt.Fprintf(w, "Error [%s]: %s: %v\n", code, message, err)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "  aggregate=%s event=%d type=%s field=%s\n",
			details.AggregateID, details.EventID, details.EventType, details.Field)
	}
	return nil
}

// VerboseLog writes a diagnostic line to ErrWriter when verbose is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.errWriter(), format+"\n", args...)
	}
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
