package adapter

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds how transient failures are retried.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy matches public testnet RPC behavior: short first
// delay, capped exponential growth.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// nextDelay grows the backoff interval, capped at MaxDelay.
func (p RetryPolicy) nextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * p.Multiplier)
	if next > p.MaxDelay {
		return p.MaxDelay
	}
	return next
}

// Do runs op, retrying transient failures with exponential backoff.
// Non-transient errors propagate immediately. When the attempt budget
// is exhausted the last error is wrapped in ErrChainUnavailable.
func Do(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = policy.nextDelay(delay)
	}

	return fmt.Errorf("%w: %d attempts failed: %v", ErrChainUnavailable, policy.MaxAttempts, lastErr)
}
