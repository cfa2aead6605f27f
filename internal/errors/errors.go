// Package errors provides the structured error type shared by every hwprobe
// package. Errors carry a classification code, the operation that produced
// them and an optional cause, and they cooperate with errors.Is/errors.As so
// callers can branch on the code without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Code represents error categories for classifying different types of failures.
type Code int

const (
	// Unknown indicates an unclassified error.
	Unknown Code = iota
	// GPUDetection indicates an accelerator detection request failed as a whole.
	GPUDetection
	// SimulatedFailure is returned while error simulation is enabled.
	SimulatedFailure
	// ToolUnavailable indicates a probe utility is missing or could not start.
	ToolUnavailable
	// UnsupportedHardware indicates the utility ran but reported no matching accelerator.
	UnsupportedHardware
	// ParseFailure indicates a probe utility produced output that did not match its schema.
	ParseFailure
	// Execution indicates a command execution failure.
	Execution
	// Timeout indicates an operation exceeded its time limit.
	Timeout
	// Cancelled indicates the caller abandoned the operation.
	Cancelled
	// NotFound indicates a required resource was not found.
	NotFound
	// Configuration indicates a configuration error.
	Configuration
	// Validation indicates a validation failure.
	Validation
	// CPU indicates host CPU information was missing or implausible.
	CPU
	// Memory indicates host memory information was missing or implausible.
	Memory
	// Compatibility indicates the host platform could not be identified.
	Compatibility
	// System indicates host information could not be read at all.
	System
	// Internal indicates a broken internal invariant.
	Internal
)

// String returns the string representation of the error code.
func (c Code) String() string {
	switch c {
	case Unknown:
		return "Unknown"
	case GPUDetection:
		return "GPUDetection"
	case SimulatedFailure:
		return "SimulatedFailure"
	case ToolUnavailable:
		return "ToolUnavailable"
	case UnsupportedHardware:
		return "UnsupportedHardware"
	case ParseFailure:
		return "ParseFailure"
	case Execution:
		return "Execution"
	case Timeout:
		return "Timeout"
	case Cancelled:
		return "Cancelled"
	case NotFound:
		return "NotFound"
	case Configuration:
		return "Configuration"
	case Validation:
		return "Validation"
	case CPU:
		return "CPU"
	case Memory:
		return "Memory"
	case Compatibility:
		return "Compatibility"
	case System:
		return "System"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("Code(%d)", c)
	}
}

// IsProbeFailure reports whether the code is one of the non-fatal probe
// outcomes that make the orchestrator move on to the next backend.
func (c Code) IsProbeFailure() bool {
	switch c {
	case ToolUnavailable, UnsupportedHardware, ParseFailure, Execution, Timeout:
		return true
	default:
		return false
	}
}

// Error represents a structured application error with code, message,
// operation context, and optional cause for error chaining.
type Error struct {
	Code    Code   // Error category
	Message string // Human-readable error message
	Op      string // Operation that failed (e.g., "nvidia.Detect")
	Cause   error  // Underlying error, if any
}

// New creates a new Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with additional context.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithOp adds operation context to the error and returns the modified error.
// This allows for fluent chaining: errors.New(...).WithOp("operation").
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Error implements the error interface.
// The format varies based on whether Op and Cause are set:
//   - With Op and Cause: "op: message: cause"
//   - With Op only: "op: message"
//   - With Cause only: "message: cause"
//   - Message only: "message"
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error's code.
// This enables errors.Is() to match errors by their code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// GetCode extracts the error code from an error.
// Returns Unknown if the error is not an *Error type.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// UserMessage returns the message suitable for a host application: the
// message of the outermost *Error without op prefixes, or err.Error() for
// foreign errors.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Sentinel errors for common cases.
// These can be used directly or wrapped with additional context.
var (
	// ErrSimulated is the failure reported while error simulation is on.
	ErrSimulated = New(SimulatedFailure, "Simulated GPU error")
	// ErrNoBackends indicates the orchestrator was built without any backend.
	ErrNoBackends = New(Configuration, "no GPU backends configured")
	// ErrTimeout indicates an operation exceeded its allowed time.
	ErrTimeout = New(Timeout, "operation timed out")
	// ErrCancelled indicates an operation was cancelled by the caller.
	ErrCancelled = New(Cancelled, "operation cancelled")
)
