package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

// Orchestration error codes
const (
	ErrUnknownTarget   ErrorCode = "UNKNOWN_TARGET"
	ErrAgentFailure    ErrorCode = "AGENT_FAILURE"
	ErrMaxHopsExceeded ErrorCode = "MAX_HOPS_EXCEEDED"
	ErrTimeout         ErrorCode = "TIMEOUT"
	ErrInvalidDecision ErrorCode = "INVALID_DECISION"
	ErrForeignKey      ErrorCode = "FOREIGN_CONTEXT_KEY"
	ErrDuplicateAgent  ErrorCode = "DUPLICATE_AGENT"
	ErrInvalidAgent    ErrorCode = "INVALID_AGENT"
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Agent     string    `json:"agent,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithAgent records which agent the error is attributed to.
func (e *Error) WithAgent(agent string) *Error {
	e.Agent = agent
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether any error in err's chain is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetErrorCode(err) == code
}
