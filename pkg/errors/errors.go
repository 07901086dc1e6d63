package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the domain error type. Code identifies the failure class for
// clients, Status maps it onto HTTP, and Err keeps the underlying cause out
// of the wire format.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds a fresh domain error.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap keeps err as the cause behind a typed error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Sentinels. The first three are the certificate engine's own taxonomy:
// an illegal transition is a state conflict, missing template/student are
// unprocessable because the caller referenced data that is not there.
// Validation errors are user-correctable; INTERNAL wraps storage failures
// passing through so callers know a retry of the read+transition sequence
// may succeed.
var (
	ErrIllegalTransition = New("ILLEGAL_TRANSITION", http.StatusConflict, "transition not permitted from current status")
	ErrMissingTemplate   = New("MISSING_TEMPLATE", http.StatusUnprocessableEntity, "certificate template not found")
	ErrMissingStudent    = New("MISSING_STUDENT", http.StatusUnprocessableEntity, "student record not found")

	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError coerces any error into the typed shape. Unknown errors become
// INTERNAL so nothing untyped ever reaches a response body.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies a sentinel with a more specific message, leaving the sentinel
// itself untouched.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	out := *err
	if message != "" {
		out.Message = message
	}
	return &out
}

// Is matches by code, not identity, because Wrap and Clone allocate new
// values around the same failure class.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var typed *Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Code == target.Code
}
