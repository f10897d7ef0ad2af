package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"file-organizer/backend/go/internal/config"
	"file-organizer/backend/go/pkg/circuitbreaker"
)

// ErrEmptyBody is returned by PostJSON when a response body was expected but none arrived.
var ErrEmptyBody = errors.New("empty response body")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("POST %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client is a custom HTTP client that wraps the standard http.Client
// and provides built-in support for circuit breaking.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// NewClient creates a new Client. A zero timeout means no client-side timeout.
func NewClient(timeout time.Duration, cfg config.CircuitBreakerConfig) *Client {
	c := &Client{httpClient: &http.Client{Timeout: timeout}}
	if cfg.Enabled {
		c.breaker = circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold,
			config.Duration(cfg.Timeout, 30*time.Second))
	}
	return c
}

// Do executes an HTTP request with circuit breaker protection.
// Status codes >= 500 count as breaker failures and are returned as *StatusError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	err := c.breaker.Execute(func() error {
		r, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= http.StatusInternalServerError {
			defer r.Body.Close()
			return statusError(req.URL.String(), r)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// PostJSON posts in as JSON and decodes the response into out.
// When out is non-nil an empty response body is reported as ErrEmptyBody.
func (c *Client) PostJSON(ctx context.Context, url string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(url, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(url string, resp *http.Response) *StatusError {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
}
