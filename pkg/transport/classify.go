// Package transport provides resilient JSON/HTTP clients for the logic,
// draft, and embedding model servers.
package transport

import (
	"errors"
	"net/http"
)

// Classification buckets a call failure so callers know whether a retry
// can possibly help.
type Classification int

const (
	// Transient failures (5xx, timeouts, connection resets) may succeed on retry.
	Transient Classification = iota
	// PermanentInvalid failures (4xx other than 401/404, schema-parse failure)
	// will fail identically on every retry.
	PermanentInvalid
	// Unauthorized means the caller's credentials were rejected (401/403).
	Unauthorized
	// NotFound means the target resource does not exist (404).
	NotFound
	// RemoteUnavailable means the server could not be reached at all.
	RemoteUnavailable
)

func (c Classification) Retryable() bool {
	return c == Transient || c == RemoteUnavailable
}

// ErrSchemaParse indicates the response body didn't match the expected
// JSON schema — always PermanentInvalid, never retried.
var ErrSchemaParse = errors.New("transport: response did not match expected schema")

// classify derives a Classification from an HTTP status code and transport error.
func classify(status int, err error) Classification {
	if err != nil {
		return RemoteUnavailable
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Unauthorized
	case status == http.StatusNotFound:
		return NotFound
	case status >= 500:
		return Transient
	case status == http.StatusTooManyRequests:
		return Transient
	case status >= 400:
		return PermanentInvalid
	default:
		return Transient
	}
}

// classifiedError pairs an error with its classification so retry logic can
// inspect it without re-deriving status codes.
type classifiedError struct {
	class Classification
	err   error
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// ClassifyErr extracts the Classification from an error produced by this
// package, defaulting to Transient for anything unrecognised (fail open on
// the side of retrying rather than giving up).
func ClassifyErr(err error) Classification {
	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.class
	}
	if errors.Is(err, ErrSchemaParse) {
		return PermanentInvalid
	}
	return Transient
}
