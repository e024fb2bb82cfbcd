package protocol

import (
	"errors"
	"fmt"
)

// Code classifies a failure reported across the wire.
type Code string

const (
	CodeNeo4j              Code = "NEO4J_ERROR"
	CodeSchema             Code = "SCHEMA_ERROR"
	CodeTransaction        Code = "TRANSACTION_ERROR"
	CodeInvalidTransaction Code = "INVALID_TRANSACTION"
	CodeCommit             Code = "COMMIT_ERROR"
	CodeRollback           Code = "ROLLBACK_ERROR"
	CodeTransactionQuery   Code = "TRANSACTION_QUERY_ERROR"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Error is a failure carrying a wire code and optional details.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error whose message is taken from err.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: err.Error(), Err: err}
}

// WithDetails attaches details to the error and returns it.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code carried by err, or fallback when err is not an *Error.
func CodeOf(err error, fallback Code) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return fallback
}

// ErrorBody is the error object embedded in every failure envelope.
type ErrorBody struct {
	Message string         `json:"message"`
	Code    Code           `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Body converts err into an ErrorBody. Errors that do not carry a code are
// reported with fallback.
func Body(err error, fallback Code) *ErrorBody {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return &ErrorBody{Message: pe.Message, Code: pe.Code, Details: pe.Details}
	}
	return &ErrorBody{Message: err.Error(), Code: fallback}
}
