package errors

import "errors"

// Code identifies a structured error type used across the application.
type Code string

const (
	// Generic codes
	CodeUnknown         Code = "unknown"
	CodeInvalidArgument Code = "invalid_argument"

	// Tree structure errors
	CodeNotFound      Code = "not_found"
	CodeDuplicateNode Code = "duplicate_node"
	CodeInvalidMove   Code = "invalid_move"

	// Aggregation errors
	CodeInvariantViolation Code = "invariant_violation"
	CodeInvalidLevel       Code = "invalid_level"

	// Lifecycle errors
	CodeDoubleShutdown Code = "double_shutdown"

	// Collaborator and startup errors
	CodeInventoryFailed    Code = "inventory_failed"
	CodeScenarioInvalid    Code = "scenario_invalid"
	CodeConfigurationError Code = "configuration_error"
)

// Error represents a structured error with a machine-readable code plus message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

// Unwrap returns the wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// Is matches another structured error carrying the same code, so sentinel
// values such as ErrNotFound work with errors.Is.
func (e Error) Is(target error) bool {
	var other Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Message == "" && other.Err == nil && other.Code == e.Code
}

// New wraps an error with a code/message.
func New(code Code, msg string, err error) Error {
	return Error{Code: code, Message: msg, Err: err}
}

// Sentinels usable with errors.Is.
var (
	ErrNotFound           = Error{Code: CodeNotFound}
	ErrInvariantViolation = Error{Code: CodeInvariantViolation}
	ErrDoubleShutdown     = Error{Code: CodeDoubleShutdown}
)

// CodeOf walks the error chain and returns the first structured code found.
func CodeOf(err error) Code {
	var structured Error
	if errors.As(err, &structured) {
		return structured.Code
	}
	return CodeUnknown
}

// IsCode reports whether the error (or its unwrap chain) matches the provided code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
