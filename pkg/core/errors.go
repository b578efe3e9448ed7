package core

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures crossing a component boundary.
type ErrorKind string

const (
	// ErrInvalidNumber means number normalization rejected the input.
	ErrInvalidNumber ErrorKind = "invalid_number"
	// ErrMissingInput means a required callback or request field was absent.
	ErrMissingInput ErrorKind = "missing_input"
	// ErrCompletion means the language-completion backend failed or timed out.
	ErrCompletion ErrorKind = "completion_error"
	// ErrSynthesis means the speech-synthesis backend failed or returned a
	// non-success status.
	ErrSynthesis ErrorKind = "synthesis_error"
	// ErrNotFound means an audio artifact id is unknown or was evicted.
	ErrNotFound ErrorKind = "not_found"
)

// Error is the canonical error for every failure the gateway handles.
// Telephony handlers map it to spoken TwiML; /ask serializes it as JSON.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Param   string    `json:"param,omitempty"`

	// BackendStatus is the HTTP status returned by the speech or completion
	// backend, when one was reached at all.
	BackendStatus int `json:"backend_status,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.BackendStatus != 0 {
		return fmt.Sprintf("%s: %s (backend status %d)", e.Kind, e.Message, e.BackendStatus)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewInvalidNumberError reports that raw could not be normalized.
func NewInvalidNumberError(raw string) *Error {
	return &Error{
		Kind:    ErrInvalidNumber,
		Message: fmt.Sprintf("not a dialable number: %q", raw),
	}
}

// NewMissingInputError reports an absent required field.
func NewMissingInputError(param string) *Error {
	return &Error{
		Kind:    ErrMissingInput,
		Message: "required field missing",
		Param:   param,
	}
}

// NewCompletionError wraps a completion-backend failure.
func NewCompletionError(cause error) *Error {
	return &Error{
		Kind:    ErrCompletion,
		Message: cause.Error(),
		cause:   cause,
	}
}

// NewSynthesisError wraps a synthesis-backend failure. backendStatus is 0
// when the backend was never reached.
func NewSynthesisError(cause error, backendStatus int) *Error {
	return &Error{
		Kind:          ErrSynthesis,
		Message:       cause.Error(),
		BackendStatus: backendStatus,
		cause:         cause,
	}
}

// NewNotFoundError reports an unknown or evicted artifact.
func NewNotFoundError(message string) *Error {
	return &Error{
		Kind:    ErrNotFound,
		Message: message,
	}
}

// KindOf extracts the error kind, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) && ce != nil {
		return ce.Kind
	}
	return ""
}
