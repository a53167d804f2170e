package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in relay terms, not HTTP terms.
type Code string

const (
	CodeInvalidRequest     Code = "invalid_request"
	CodePayloadTooLarge    Code = "payload_too_large"
	CodeBackendRejected    Code = "backend_rejected"
	CodeBackendUnreachable Code = "backend_unreachable"
	CodeBackendTimeout     Code = "backend_timeout"
	CodeBadGateway         Code = "bad_gateway"
	CodeInternal           Code = "internal_error"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, client, and handler layers.
type Error struct {
	Code    Code
	Message string
	Err     error

	// Details is an optional payload surfaced to clients next to the message.
	// It may be a string or any JSON-encodable value.
	Details any

	// UpstreamStatus carries the status reported by a collaborator that rejected
	// the call. Zero when the failure did not come from a collaborator response.
	UpstreamStatus int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewWithDetails creates a domain error that carries a client-visible details payload.
func NewWithDetails(code Code, msg string, details any) error {
	return &Error{Code: code, Message: msg, Details: details}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		// Preserve the original domain code, update message
		return &Error{Code: existing.Code, Message: msg, Err: err, Details: existing.Details, UpstreamStatus: existing.UpstreamStatus}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
