package fdc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrPermanent marks a remote failure that will not succeed on retry:
// a non-429 4xx response, or a malformed response body.
var ErrPermanent = errors.New("permanent remote failure")

// HTTPError carries a non-2xx status from the remote API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote returned HTTP %d: %s", e.StatusCode, e.Body)
}

// retryState tracks where one wrapped call currently is.
type retryState int

const (
	stateAttempting retryState = iota
	stateWaitingRateLimit
	stateWaitingBackoff
	stateSucceeded
	stateFailedPermanently
)

func (s retryState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateWaitingRateLimit:
		return "waiting_rate_limit"
	case stateWaitingBackoff:
		return "waiting_backoff"
	case stateSucceeded:
		return "succeeded"
	case stateFailedPermanently:
		return "failed_permanently"
	}
	return "unknown"
}

// RetryPolicy wraps remote calls with rate-limit detection, exponential
// backoff and a bounded retry budget. The zero value is unusable; use
// DefaultRetryPolicy or construct explicitly.
type RetryPolicy struct {
	// MaxRetries bounds re-attempts after the first try. Rate-limit waits
	// consume the same budget as backoff waits.
	MaxRetries int
	// InitialBackoff is doubled on every transient failure (5xx, transport).
	InitialBackoff time.Duration
	// RateLimitWait is the fixed sleep on HTTP 429, slightly over the
	// quota reset window.
	RateLimitWait time.Duration
}

// DefaultRetryPolicy matches the published FDC quota behavior.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     5,
		InitialBackoff: 2 * time.Second,
		RateLimitWait:  61 * time.Second,
	}
}

// Do runs call until it succeeds, fails permanently, exhausts the retry
// budget, or ctx is cancelled. call returns the HTTP status, the full body,
// and a transport error. On success Do returns the body of the 2xx response.
// Cancellation is surfaced as the untouched context error so callers can
// distinguish it from remote failures.
func (p RetryPolicy) Do(ctx context.Context, name string, call func(context.Context) (int, []byte, error)) ([]byte, error) {
	backoff := p.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		status, body, err := call(ctx)

		state := stateAttempting
		var wait time.Duration

		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			state = stateWaitingBackoff
			wait = backoff
			backoff *= 2
		case status >= 200 && status < 300:
			return body, nil
		case status == http.StatusTooManyRequests:
			lastErr = &HTTPError{StatusCode: status, Body: truncateBody(body)}
			state = stateWaitingRateLimit
			wait = p.RateLimitWait
		case status >= 500:
			lastErr = &HTTPError{StatusCode: status, Body: truncateBody(body)}
			state = stateWaitingBackoff
			wait = backoff
			backoff *= 2
		default:
			// Other 4xx: a malformed request will not succeed on retry.
			return nil, fmt.Errorf("%w: %s", ErrPermanent,
				(&HTTPError{StatusCode: status, Body: truncateBody(body)}).Error())
		}

		if attempt == p.MaxRetries {
			break
		}

		slog.Warn("remote_retry_wait",
			"call", name,
			"state", state.String(),
			"attempt", attempt+1,
			"max_retries", p.MaxRetries,
			"wait", wait,
			"error", lastErr)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	slog.Error("remote_retries_exhausted", "call", name, "max_retries", p.MaxRetries, "error", lastErr)
	return nil, fmt.Errorf("max retry attempts reached: %w", lastErr)
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
