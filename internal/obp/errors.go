// Package obp provides an HTTP client for an Open Bank Project style
// banking API with session verification, bounded authentication recovery,
// and response-shape normalization.
package obp

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for request classification.
// Use errors.Is(err, obp.ErrNotAuthenticated) to check.
var (
	// ErrNotAuthenticated means a request returned 401 and the bounded
	// recovery sequence (re-verify, refresh, single retry) did not help.
	ErrNotAuthenticated = errors.New("obp: not authenticated")

	// ErrNoBaseURL means the client was constructed without an API base URL.
	// This is a configuration error and is never retried.
	ErrNoBaseURL = errors.New("obp: missing API base URL")

	ErrForbidden   = errors.New("obp: forbidden")
	ErrNotFound    = errors.New("obp: not found")
	ErrServerError = errors.New("obp: server error")
)

// APIError wraps a sentinel error with the HTTP status code and the raw
// response body for diagnostics.
type APIError struct {
	StatusCode int
	Body       string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("obp: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes with no dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrNotAuthenticated
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
