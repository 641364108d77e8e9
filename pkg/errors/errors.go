// Package errors provides structured error types for skillindex.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the serve endpoint
//   - Machine-readable error codes for programmatic handling
//   - Typed GitHub failures (rate limits, non-2xx statuses) that callers inspect
//     with errors.As instead of string matching
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND, RATE_LIMITED, UNAUTHORIZED, API_ERROR: GitHub responses
//   - INTERNAL_ERROR, UNSUPPORTED, CONFLICT: failures of skillindex itself
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "maxPages must be positive, got %d", n)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	var rl *errors.RateLimitedError
//	if stderrors.As(err, &rl) {
//	    // stop paging this topic
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// GitHub responses
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeRateLimited  Code = "RATE_LIMITED"
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodeAPI          Code = "API_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
	ErrCodeConflict    Code = "CONFLICT" // a run is already in progress
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// Rate-limit and API errors report their own codes.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error carries no code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.Code()
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// RateLimitedError is returned when GitHub answers 403 and the rate limit
// headers show the quota is exhausted.
type RateLimitedError struct {
	RetryAfter int       // Seconds to wait before retrying
	Remaining  int       // Value of X-RateLimit-Remaining
	Reset      time.Time // Value of X-RateLimit-Reset, zero if absent
	Message    string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	msg := "rate limited"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: retry after %d seconds", msg, e.RetryAfter)
	}
	if !e.Reset.IsZero() {
		return fmt.Sprintf("%s: remaining %d, resets at %s", msg, e.Remaining, e.Reset.UTC().Format(time.RFC3339))
	}
	return msg
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}

// APIError reports a non-2xx response that is not a rate limit.
type APIError struct {
	Status int
	Method string
	URL    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d %s", e.Method, e.URL, e.Status, http.StatusText(e.Status))
}

// Code maps the status to NOT_FOUND, UNAUTHORIZED or API_ERROR.
func (e *APIError) Code() Code {
	switch e.Status {
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrCodeUnauthorized
	default:
		return ErrCodeAPI
	}
}

// StatusCode extracts the HTTP status from an *APIError in err's chain.
// Returns 0 if there is none.
func StatusCode(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		return api.Status
	}
	return 0
}
