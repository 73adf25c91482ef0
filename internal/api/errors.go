package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport marks any failed gateway exchange: network errors,
	// unexpected status codes and undecodable payloads.
	ErrTransport = errors.New("gateway transport failure")

	// ErrRateLimited is returned for HTTP 429. RateLimits holds the counters.
	ErrRateLimited = errors.New("gateway rate limit exceeded")

	// ErrUnauthorized is returned for HTTP 401; the cached token is dropped.
	ErrUnauthorized = errors.New("gateway rejected credentials")
)

// StatusError describes a non-success HTTP response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match the status against the package sentinels.
func (e *StatusError) Unwrap() []error {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return []error{ErrRateLimited, ErrTransport}
	case http.StatusUnauthorized:
		return []error{ErrUnauthorized, ErrTransport}
	default:
		return []error{ErrTransport}
	}
}
