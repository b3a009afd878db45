// Package types defines error types
package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Predefined errors
var (
	// ErrUnauthorized matches transport errors with status 401
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden matches transport errors with status 403
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound matches transport errors with status 404
	ErrNotFound = errors.New("not found")

	// ErrRateLimited matches transport errors with status 429
	ErrRateLimited = errors.New("rate limited")

	// ErrServer matches transport errors with a 5xx status
	ErrServer = errors.New("server error")

	// ErrMissingLocation indicates a location-scoped call without a location id
	ErrMissingLocation = errors.New("location id is required")

	// ErrMissingRefreshToken indicates a refresh without a stored refresh token
	ErrMissingRefreshToken = errors.New("refresh token is required")

	// ErrMissingClientConfig indicates a refresh without OAuth client credentials
	ErrMissingClientConfig = errors.New("oauth client id and client secret are required")

	// ErrMissingCredential indicates a client built without any credential
	ErrMissingCredential = errors.New("api key or access token is required")
)

// TransportError represents a failed HTTP exchange: either a network level
// failure (StatusCode 0) or a non-2xx response
type TransportError struct {
	// Method and Path identify the request
	Method string
	Path   string

	// StatusCode is the response status, 0 when no response was received
	StatusCode int

	// Retryable indicates whether repeating the request may succeed
	Retryable bool

	// RetryAfter is the server-suggested delay before retrying
	RetryAfter time.Duration

	// Message is the error message reported by the API, if any
	Message string

	// Body is the raw response body
	Body []byte

	// Err is the underlying network error
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("crm: %s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("crm: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches the status sentinels
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrServer:
		return e.StatusCode >= 500
	}
	return false
}

// Violation describes a single schema check failure
type Violation struct {
	Path    string
	Message string
	Value   interface{}
}

// ValidationError represents a value that failed a schema check
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Path == "" {
			parts = append(parts, v.Message)
			continue
		}
		parts = append(parts, v.Path+": "+v.Message)
	}
	return "crm: validation failed: " + strings.Join(parts, "; ")
}

// ConfigurationError represents missing or invalid client configuration
type ConfigurationError struct {
	// Field names the offending configuration field
	Field string

	// Err is the underlying cause, usually one of the predefined errors
	Err error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("crm: configuration: %v", e.Err)
	}
	return fmt.Sprintf("crm: configuration %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field string, cause error) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: cause}
}

// RefreshError represents a token endpoint that rejected a refresh exchange
type RefreshError struct {
	// StatusCode is the token endpoint status, 0 when no response was received
	StatusCode int

	// Body is the raw token endpoint response
	Body []byte

	// Err is the underlying cause
	Err error
}

// Error implements the error interface
func (e *RefreshError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("crm: token refresh failed: %v", e.Err)
	}
	return fmt.Sprintf("crm: token refresh failed: status %d: %v", e.StatusCode, e.Err)
}

// Unwrap returns the underlying error
func (e *RefreshError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Retryable
	}
	return false
}

// GetRetryDelay returns the suggested retry delay
func GetRetryDelay(err error) time.Duration {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.RetryAfter
	}
	return 0
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode
	}
	return 0
}
