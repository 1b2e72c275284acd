package usecasekit

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeInvalidCursor       = "INVALID_CURSOR"
	ErrCodeStorage             = "STORAGE_ERROR"
	ErrCodeTransactionTooLarge = "TRANSACTION_TOO_LARGE"
)

// UseCaseError is the error type surfaced by the store and repository
type UseCaseError struct {
	Code    string
	Message string
	Op      string
	Err     error
}

// Error implements the error interface
func (e *UseCaseError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	// Validation messages already summarize the cause
	if e.Err != nil && e.Code != ErrCodeValidation {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *UseCaseError) Unwrap() error {
	return e.Err
}

// NewError creates a new coded error
func NewError(code, op, message string) *UseCaseError {
	return &UseCaseError{Code: code, Op: op, Message: message}
}

// WrapError attaches a code and operation to an underlying error
func WrapError(code, op string, err error) *UseCaseError {
	if err == nil {
		return nil
	}
	var ue *UseCaseError
	if errors.As(err, &ue) && ue.Op == "" {
		c := *ue
		c.Op = op
		return &c
	}
	return &UseCaseError{Code: code, Op: op, Message: "operation failed", Err: err}
}

// ErrorCode returns the code of err, or "" if err is not a UseCaseError
func ErrorCode(err error) string {
	var ue *UseCaseError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

// IsNotFound checks if an error is a not-found error
func IsNotFound(err error) bool {
	return ErrorCode(err) == ErrCodeNotFound
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return ErrorCode(err) == ErrCodeValidation
}

// IsInvalidCursor checks if an error came from a malformed or foreign continuation token
func IsInvalidCursor(err error) bool {
	return ErrorCode(err) == ErrCodeInvalidCursor
}

// MutationOutcome records what an ownership-checked mutation actually did.
// All outcomes surface as success to callers; the distinction is kept for
// logging and tests.
type MutationOutcome string

const (
	OutcomeApplied   MutationOutcome = "APPLIED"
	OutcomeNotFound  MutationOutcome = "NOT_FOUND"
	OutcomeForbidden MutationOutcome = "FORBIDDEN"
)

// String returns the string representation
func (o MutationOutcome) String() string {
	return string(o)
}

// Applied returns true if the mutation took effect
func (o MutationOutcome) Applied() bool {
	return o == OutcomeApplied
}
