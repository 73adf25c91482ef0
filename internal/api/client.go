// Package api provides the gateway client for the Daikin Onecta cloud.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"onecta_bridge/internal/gate"
	"onecta_bridge/internal/types"
)

// DefaultBaseURL is the Onecta cloud API root.
const DefaultBaseURL = "https://api.onecta.daikineurope.com"

// TokenSource supplies bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// invalidator is implemented by token sources that can drop a rejected token.
type invalidator interface {
	Invalidate()
}

// Observer receives request and rate-limit telemetry.
type Observer interface {
	ObserveRequest(method, endpoint string, status int, elapsed time.Duration)
	ObserveRateLimits(limits types.RateLimits)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithObserver registers a telemetry observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// Client handles HTTP requests to the Onecta API. Every exchange, read or
// write, holds the gate for its whole duration so that a read can never race
// a write that is still in flight.
type Client struct {
	baseURL    string
	tokens     TokenSource
	gate       *gate.Gate
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer

	// written is set by every successful write and consumed by the poller.
	written atomic.Bool

	limitsMu sync.RWMutex
	limits   types.RateLimits
}

// NewClient creates a gateway client. g is the serialization gate shared by
// every caller of this account.
func NewClient(baseURL string, tokens TokenSource, g *gate.Gate, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		gate:    g,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	logger.Debug("API client initialized", "base_url", c.baseURL)
	return c
}

// MarkWritten sets the suppression flag.
func (c *Client) MarkWritten() {
	c.written.Store(true)
}

// ConsumeWritten reports whether a write happened since the last call and clears the flag.
func (c *Client) ConsumeWritten() bool {
	return c.written.Swap(false)
}

// RateLimits returns the most recent rate-limit counters.
func (c *Client) RateLimits() types.RateLimits {
	c.limitsMu.RLock()
	defer c.limitsMu.RUnlock()
	return c.limits
}

// doRequest performs an authenticated request under the gate. A 200 response
// returns its body; 204 returns nil. Successful non-GET requests set the
// suppression flag.
func (c *Client) doRequest(ctx context.Context, method, endpoint, path string, body any) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: obtain token: %w", ErrTransport, err)
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	}

	var data []byte
	err = c.gate.Do(ctx, func(ctx context.Context) error {
		var xerr error
		data, xerr = c.exchange(ctx, method, endpoint, path, token, payload)
		return xerr
	})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			if inv, ok := c.tokens.(invalidator); ok {
				inv.Invalidate()
			}
		}
		if !errors.Is(err, ErrTransport) {
			err = fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return nil, err
	}

	if method != http.MethodGet {
		c.MarkWritten()
	}
	return data, nil
}

// exchange runs one HTTP round trip. The caller holds the gate.
func (c *Client) exchange(ctx context.Context, method, endpoint, path, token string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("API request", "method", method, "path", path)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, endpoint, 0, time.Since(start))
		c.logger.Error("Request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	c.observe(method, endpoint, resp.StatusCode, time.Since(start))
	c.recordRateLimits(resp.Header)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		c.logger.Debug("API response", "method", method, "path", path, "bytes", len(data))
		return data, nil
	case http.StatusNoContent:
		c.logger.Debug("API response", "method", method, "path", path, "status", resp.StatusCode)
		return nil, nil
	}

	c.logger.Warn("Unexpected status", "method", method, "path", path, "status", resp.StatusCode)
	return nil, &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       string(data),
	}
}

func (c *Client) observe(method, endpoint string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, endpoint, status, elapsed)
	}
}
