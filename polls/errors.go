package polls

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid polls client configuration")
	// ErrTransport indicates the request failed before a response arrived
	ErrTransport = errors.New("transport failure")
	// ErrInvalidResponse indicates a 200 response with a malformed payload
	ErrInvalidResponse = errors.New("invalid response")
	// ErrRequestFailed indicates a non-success status with no specific mapping
	ErrRequestFailed = errors.New("request failed")
	// ErrUnauthorized indicates a missing, invalid or expired access token
	ErrUnauthorized = errors.New("unauthorized: invalid or expired access token")
	// ErrNotFound indicates the poll or option does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUsername indicates the username is already taken
	ErrDuplicateUsername = errors.New("username already registered")
	// ErrRegistrationFailed indicates any other registration failure
	ErrRegistrationFailed = errors.New("registration failed")
)

// TransportError wraps a connection, DNS, timeout or read failure
type TransportError struct {
	Op  string
	URL string
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request to %s failed: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying cause
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// APIError represents a non-success HTTP response
type APIError struct {
	Op         string
	StatusCode int
	// Detail is the server's "detail" message, or "Unknown error" when the
	// body carried none.
	Detail string
	// Kind is the sentinel this failure maps to.
	Kind error
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %v (HTTP %d)", e.Op, e.Kind, e.StatusCode)
	if e.Kind == ErrRequestFailed || e.Kind == ErrRegistrationFailed {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the error kind so errors.Is matches the sentinels
func (e *APIError) Unwrap() error {
	return e.Kind
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// SchemaError reports the first structural violation found in a payload.
// Index and OptionIndex are -1 when they do not apply.
type SchemaError struct {
	Op          string
	Index       int
	OptionIndex int
	Field       string
	Reason      string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrInvalidResponse, e.Reason)
}

// Unwrap returns ErrInvalidResponse
func (e *SchemaError) Unwrap() error {
	return ErrInvalidResponse
}
