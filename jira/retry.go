package jira

import (
	"context"
	"math/rand"
	"time"

	cerrors "github.com/Arbin-com/github-upload/errors"
)

// maxRetryDelay caps the backoff.
const maxRetryDelay = 30 * time.Second

// backoff returns the delay before attempt (1-based) retries: base doubled
// per attempt with ±25% jitter, capped at maxRetryDelay.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if jitter := int64(d) / 4; jitter > 0 {
		d += time.Duration(rand.Int63n(2*jitter) - jitter)
	}
	if d > maxRetryDelay || d < 0 {
		d = maxRetryDelay
	}
	return d
}

// retry calls fn until it succeeds, fails with a non-retryable error or the
// attempts are used up.
func (c *Client) retry(ctx context.Context, what string, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= c.opts.maxAttempts || !cerrors.IsRetryable(err) {
			return err
		}

		delay := backoff(c.opts.retryDelay, attempt)
		c.logger.Debug("retrying jira request", "request", what, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
