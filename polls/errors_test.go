package polls

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError(t *testing.T) {
	t.Run("Error message", func(t *testing.T) {
		tests := []struct {
			err      *APIError
			expected string
		}{
			{
				err:      &APIError{Op: "vote", StatusCode: 401, Detail: "Could not validate credentials", Kind: ErrUnauthorized},
				expected: "vote: unauthorized: invalid or expired access token (HTTP 401)",
			},
			{
				err:      &APIError{Op: "get results", StatusCode: 404, Detail: "Poll not found", Kind: ErrNotFound},
				expected: "get results: not found (HTTP 404)",
			},
			{
				err:      &APIError{Op: "fetch polls", StatusCode: 500, Detail: "Unknown error", Kind: ErrRequestFailed},
				expected: "fetch polls: request failed (HTTP 500): Unknown error",
			},
			{
				err:      &APIError{Op: "register", StatusCode: 400, Detail: "Password too short", Kind: ErrRegistrationFailed},
				expected: "register: registration failed (HTTP 400): Password too short",
			},
			{
				err:      &APIError{Op: "register", StatusCode: 400, Detail: "Username already registered", Kind: ErrDuplicateUsername},
				expected: "register: username already registered (HTTP 400)",
			},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, tt.err.Error())
		}
	})

	t.Run("Unwrap matches kind", func(t *testing.T) {
		var err error = &APIError{StatusCode: 404, Kind: ErrNotFound}
		wrapped := fmt.Errorf("outer: %w", err)

		assert.True(t, errors.Is(wrapped, ErrNotFound))
		assert.False(t, errors.Is(wrapped, ErrUnauthorized))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := &APIError{StatusCode: 404}
		assert.True(t, err.IsNotFound())

		err.StatusCode = 500
		assert.False(t, err.IsNotFound())
	})

	t.Run("IsUnauthorized", func(t *testing.T) {
		tests := []struct {
			code     int
			expected bool
		}{
			{401, true},
			{403, false},
			{404, false},
			{500, false},
		}

		for _, tt := range tests {
			err := &APIError{StatusCode: tt.code}
			assert.Equal(t, tt.expected, err.IsUnauthorized())
		}
	})
}

func TestTransportError(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")
	err := &TransportError{Op: "fetch polls", URL: "http://localhost:8000/polls", Err: cause}

	assert.Equal(t, "fetch polls: request to http://localhost:8000/polls failed: dial tcp 127.0.0.1:8000: connect: connection refused", err.Error())
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidResponse)
}

func TestSchemaError(t *testing.T) {
	err := &SchemaError{Op: "fetch polls", Index: 2, OptionIndex: -1, Field: "id", Reason: "poll at index 2 is missing required field: id"}

	assert.Equal(t, "fetch polls: invalid response: poll at index 2 is missing required field: id", err.Error())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"string detail", `{"detail":"Poll not found"}`, "Poll not found"},
		{"missing detail", `{"message":"nope"}`, unknownErrorDetail},
		{"null detail", `{"detail":null}`, unknownErrorDetail},
		{"blank detail", `{"detail":"  "}`, unknownErrorDetail},
		{"empty body", ``, unknownErrorDetail},
		{"whitespace body", " \n", unknownErrorDetail},
		{"html body", `<html><body>Bad Gateway</body></html>`, unknownErrorDetail},
		{"array body", `["detail"]`, unknownErrorDetail},
		{"structured detail", `{"detail": [ {"msg": "field required"} ]}`, `[{"msg":"field required"}]`},
		{"numeric detail", `{"detail": 42}`, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errorDetail([]byte(tt.body)))
		})
	}
}
