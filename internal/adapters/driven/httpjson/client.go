// Package httpjson is the shared JSON-over-HTTP transport used by the
// embedding and LLM provider adapters.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Status, e.Body)
}

// Client posts JSON requests to one provider.
type Client struct {
	// Provider names the remote API in error messages.
	Provider string

	// Unavailable is wrapped into transport and 5xx errors.
	Unavailable error

	HTTP    *http.Client
	Headers map[string]string
}

// New creates a client with the given request timeout.
func New(provider string, unavailable error, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		Provider:    provider,
		Unavailable: unavailable,
		HTTP:        &http.Client{Timeout: timeout},
		Headers:     headers,
	}
}

// PostJSON sends body as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// Get issues a GET request and discards the body. It is used by Ping.
func (c *Client) Get(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: create ping request: %w", c.Provider, err)
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w: %w", c.Provider, c.Unavailable, ctxErr)
		}
		return fmt.Errorf("%s: %w: %w", c.Provider, c.Unavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Provider: c.Provider, Status: resp.StatusCode, Body: string(data)}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, statusErr)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: %w", c.Unavailable, statusErr)
		default:
			return statusErr
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.Provider, err)
	}
	return nil
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
