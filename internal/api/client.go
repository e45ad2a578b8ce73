// Package api is the typed HTTP client for the remote record-keeping
// service. It owns bearer-token injection, request correlation IDs, the
// 401 hook, and normalization of the service's two response shapes.
package api

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

	"foodbridge/internal/logging"

	"github.com/google/uuid"
)

// ErrUnauthorized is returned for any 401 response. The client invokes the
// OnUnauthorized hook before returning it, so the session is already torn
// down by the time callers see this error.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a server rejection (4xx/5xx other than 401).
type Error struct {
	Status  int
	Message string // server-provided message, may be empty
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// UserMessage maps the rejection to a user-facing notification string.
func (e *Error) UserMessage() string {
	switch e.Status {
	case http.StatusBadRequest:
		return "Invalid request. Please check your input."
	case http.StatusForbidden:
		return "You do not have permission to perform this action."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusInternalServerError:
		return "Server error. Please try again later."
	}
	if e.Message != "" {
		return e.Message
	}
	return "An error occurred. Please try again."
}

// UserMessage converts any error from this package into a single
// user-facing notification string.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	if errors.Is(err, ErrUnauthorized) {
		return "You are not authorized. Please log in again."
	}
	return "An unexpected error occurred. Please try again."
}

// TokenSource supplies the current bearer token, or "" when anonymous.
type TokenSource func() string

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// Tokens supplies the bearer token per request. May be nil.
	Tokens TokenSource

	// OnUnauthorized is invoked once per 401 response. May be nil.
	OnUnauthorized func()
}

// Client talks to the remote service. Safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func()
}

// New creates a Client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: timeout},
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
	}
}

// do executes one request. body (if non-nil) is JSON-encoded; out (if
// non-nil) receives the decoded response body. No retries: every failure
// surfaces once to the caller.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	reqID := uuid.NewString()
	log := logging.WithRequestID(logging.CategoryAPI, reqID)

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	log.Debug("%s %s", method, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("%s %s transport failure: %v", method, path, err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Info("%s %s -> %d (%v)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: serverMessage(data)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// serverMessage extracts the service's error message, which arrives either
// as {"message": "..."} or as a bare string body.
func serverMessage(data []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	s := strings.TrimSpace(string(data))
	if s != "" && !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "<") {
		return s
	}
	return ""
}
