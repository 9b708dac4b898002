package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/WessleyAI/wessley-mvp/pkg/fn"
	"github.com/WessleyAI/wessley-mvp/pkg/resilience"
)

// DefaultRetry matches the base/factor/jitter/attempt policy shared by every
// model-server client: three attempts, 200ms base, doubling, 20% jitter.
var DefaultRetry = fn.RetryOpts{
	MaxAttempts: 3,
	InitialWait: 200 * time.Millisecond,
	MaxWait:     2 * time.Second,
	Jitter:      true,
}

// errStopRetry wraps a non-retryable error so fn.Retry's generic loop can be
// short-circuited: once classification says "don't retry", every further
// attempt would just reproduce the same classification, so the wrapped call
// itself refuses to re-issue the request and returns the original error.
type errStopRetry struct{ err error }

func (e *errStopRetry) Error() string { return e.err.Error() }
func (e *errStopRetry) Unwrap() error { return e.err }

// client is the shared call path every model-server client builds on: an
// optional rate limiter, one circuit breaker per host, and bounded retry
// that only fires for Transient/RemoteUnavailable classifications.
type client struct {
	http    *http.Client
	baseURL string
	breaker *resilience.Breaker
	limiter *resilience.Limiter // nil unless configured
}

func newClient(baseURL string, limiter *resilience.Limiter) *client {
	return &client{
		http:    &http.Client{Timeout: 60 * time.Second},
		baseURL: baseURL,
		breaker: resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: 5, Timeout: 15 * time.Second, HalfOpenMax: 1}),
		limiter: limiter,
	}
}

// breakerState reports the call path's current circuit breaker state, for
// health reporting.
func (c *client) breakerState() resilience.State {
	return c.breaker.State()
}

// doJSON POSTs reqBody as JSON to path and decodes the response into Resp.
// The limiter is waited on once per call; the bounded retry then wraps each
// breaker-guarded attempt.
func doJSON[Resp any](ctx context.Context, c *client, path string, reqBody any) (Resp, error) {
	var zero Resp

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, err
		}
	}

	var stopped error
	result := fn.Retry(ctx, DefaultRetry, func(ctx context.Context) fn.Result[Resp] {
		if stopped != nil {
			return fn.Err[Resp](stopped)
		}
		r := resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[Resp] {
			return callOnce[Resp](ctx, c, path, reqBody)
		})
		if r.IsErr() {
			_, err := r.Unwrap()
			if !ClassifyErr(err).Retryable() {
				stopped = &errStopRetry{err: err}
				return fn.Err[Resp](stopped)
			}
		}
		return r
	})

	v, err := result.Unwrap()
	if err != nil {
		var stop *errStopRetry
		if errors.As(err, &stop) {
			return zero, stop.err
		}
		return zero, err
	}
	return v, nil
}

func callOnce[Resp any](ctx context.Context, c *client, path string, reqBody any) fn.Result[Resp] {
	var zero Resp

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fn.Err[Resp](&classifiedError{class: PermanentInvalid, err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fn.Err[Resp](&classifiedError{class: PermanentInvalid, err: err})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fn.Err[Resp](&classifiedError{class: RemoteUnavailable, err: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fn.Err[Resp](&classifiedError{class: Transient, err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classify(resp.StatusCode, nil)
		return fn.Err[Resp](&classifiedError{class: class, err: fmt.Errorf("transport: %s returned %d: %s", path, resp.StatusCode, raw)})
	}

	if err := json.Unmarshal(raw, &zero); err != nil {
		return fn.Err[Resp](&classifiedError{class: PermanentInvalid, err: fmt.Errorf("%w: %v", ErrSchemaParse, err)})
	}
	return fn.Ok(zero)
}
