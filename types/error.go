package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across askflow.
type ErrorCode string

// Pipeline error codes
const (
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrStepFailed   ErrorCode = "STEP_FAILED"
)

// Search error codes. Both are collected into statistics and never
// returned to the caller of a run.
const (
	ErrSearchTaskFailed  ErrorCode = "SEARCH_TASK_FAILED"
	ErrAllSearchesFailed ErrorCode = "ALL_SEARCHES_FAILED"
)

// Delivery error codes, used to classify attempts inside the retrier.
const (
	ErrDeliveryTerminal  ErrorCode = "DELIVERY_TERMINAL"
	ErrDeliveryRetryable ErrorCode = "DELIVERY_RETRYABLE"
)

// Collaborator error codes
const (
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Step       string    `json:"step,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Code)
	if e.Step != "" {
		prefix = fmt.Sprintf("[%s] %s", e.Code, e.Step)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code, so callers can
// match on a sentinel such as &Error{Code: ErrInvalidInput}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithStep records the pipeline step the error belongs to.
func (e *Error) WithStep(step string) *Error {
	e.Step = step
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AsError extracts an *Error from the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether any *Error in the chain carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}

// NewInvalidInputError creates an INVALID_INPUT error.
func NewInvalidInputError(message string) *Error {
	return NewError(ErrInvalidInput, message)
}

// NewUpstreamError creates a retryable upstream error.
func NewUpstreamError(message string, status int) *Error {
	return NewError(ErrUpstreamError, message).
		WithHTTPStatus(status).
		WithRetryable(status == 0 || status >= 500)
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(message string) *Error {
	return NewError(ErrUpstreamTimeout, message).WithRetryable(true)
}
