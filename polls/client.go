package polls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is used when no base URL is configured
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a single request
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent when WithUserAgent is not used
	DefaultUserAgent = "ballot-go"
)

// Client represents a polling API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	metrics    *Metrics
	logger     zerolog.Logger
}

// NewClient creates a new polling API client. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string, logger zerolog.Logger, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	// Ensure baseURL doesn't have trailing slash
	baseURL = strings.TrimRight(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base URL %q: %v", ErrInvalidConfig, baseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", ErrInvalidConfig, baseURL)
	}

	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent: DefaultUserAgent,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// response is a fully read HTTP response
type response struct {
	statusCode int
	body       []byte
}

// doRequest performs one HTTP request and reads the whole body. Only
// failures that leave no response are returned as errors; status codes are
// left to the caller.
func (c *Client) doRequest(ctx context.Context, op, method, endpoint string, params url.Values, payload any, header http.Header) (*response, error) {
	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request body: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(op, 0, time.Since(start))
		c.logger.Debug().
			Err(err).
			Str("op", op).
			Str("request_id", requestID).
			Msg("Polling API request failed")
		return nil, &TransportError{Op: op, URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	c.metrics.observe(op, resp.StatusCode, elapsed)
	if err != nil {
		return nil, &TransportError{Op: op, URL: requestURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("url", requestURL).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("Polling API request completed")
	c.logger.Trace().
		Str("request_id", requestID).
		Int("bytes", len(data)).
		Msg("Polling API response body")

	return &response{statusCode: resp.StatusCode, body: data}, nil
}

// apiError builds the error for a non-success response
func apiError(op string, resp *response, kind error) *APIError {
	return &APIError{
		Op:         op,
		StatusCode: resp.statusCode,
		Detail:     errorDetail(resp.body),
		Kind:       kind,
	}
}

// unknownErrorDetail replaces a missing or unreadable detail
const unknownErrorDetail = "Unknown error"

// errorDetail extracts the "detail" field of an error body. A body that is
// empty, not JSON, not an object or has no usable detail yields
// unknownErrorDetail; the status code is always part of APIError's message.
func errorDetail(body []byte) string {
	fallback := unknownErrorDetail

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &payload) != nil {
		return fallback
	}
	if len(payload.Detail) == 0 || string(payload.Detail) == "null" {
		return fallback
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		if strings.TrimSpace(detail) == "" {
			return fallback
		}
		return detail
	}

	// Structured details (validation error lists) are kept as compact JSON.
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload.Detail); err != nil {
		return fallback
	}
	return compact.String()
}

// decodeDocument decodes a JSON document keeping numbers as json.Number so
// integers can be told apart from other numbers.
func decodeDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

// decodeInto unmarshals a checked payload into its typed form. Values whose
// JSON type differs from the Go field are left at their zero value; the
// entity's Raw field still carries them.
func decodeInto(op string, data []byte, v any) error {
	if err := unmarshalLenient(data, v); err != nil {
		return malformed(op, err)
	}
	return nil
}

// malformed reports a 200 body that is not valid JSON
func malformed(op string, err error) *SchemaError {
	return &SchemaError{
		Op:          op,
		Index:       -1,
		OptionIndex: -1,
		Reason:      fmt.Sprintf("malformed JSON: %v", err),
	}
}
