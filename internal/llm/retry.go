package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Completer wraps a Provider with a per-call timeout and bounded retries.
// Only transient failures (provider unreachable, rate limited, deadline
// exceeded) are retried; auth and model errors fail immediately.
type Completer struct {
	provider   Provider
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// NewCompleter creates a retrying completer. A timeout of zero disables the
// per-call deadline; maxRetries of zero means a single attempt.
func NewCompleter(provider Provider, timeout time.Duration, maxRetries int) *Completer {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Completer{
		provider:   provider,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// Provider returns the wrapped provider.
func (c *Completer) Provider() Provider { return c.provider }

// Complete sends the conversation, retrying transient failures with linear
// backoff. The returned error is the last attempt's error.
func (c *Completer) Complete(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if c.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		resp, err := c.provider.Complete(callCtx, messages, opts)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) {
			break
		}
		// Give up when the parent context is gone, regardless of the
		// per-call deadline.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("complete after %d attempt(s): %w", c.maxRetries+1, lastErr)
}

func retryable(err error) bool {
	return errors.Is(err, ErrProviderDown) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded)
}
