package retry

// Package retry provides the shared backoff helper used by the session
// reconciler for profile fetches and by bulk data-fetch paths for transient
// network failures.

import (
	"context"
	"time"
)

// Mode selects how the inter-attempt delay grows.
type Mode int

const (
	// ModeFixed sleeps the configured Delay between every attempt.
	ModeFixed Mode = iota
	// ModeExponential sleeps Delay * 2^attempt (attempt starting at 0).
	ModeExponential
)

// Policy describes a bounded retry budget. MaxAttempts caps total attempts,
// not retries: MaxAttempts=3 means at most three calls to fn.
type Policy struct {
	// MaxAttempts is the total attempt cap. Values below 1 are treated as 1.
	MaxAttempts int
	// Delay is the base inter-attempt delay.
	Delay time.Duration
	// Mode selects fixed or exponential growth of Delay.
	Mode Mode
	// Classify decides whether a failure is worth retrying. A nil Classify
	// retries every failure within the attempt budget.
	Classify func(error) bool
}

// Execute runs fn until it succeeds, the attempt budget is exhausted, the
// classifier rejects the failure, or ctx is done. It returns the first
// success or the last failure.
func (p Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Classify != nil && !p.Classify(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		if err := sleep(ctx, p.delayFor(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func (p Policy) delayFor(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	if p.Mode == ModeExponential {
		return p.Delay << uint(attempt)
	}
	return p.Delay
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
