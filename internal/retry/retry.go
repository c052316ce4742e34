// Package retry provides a small declarative retry policy used by callers
// that talk to flaky external services.
package retry

import (
	"context"
	"time"
)

// Policy drives Do. Backoff receives the 1-based attempt number that just
// failed along with its error, and returns how long to wait before the next
// attempt. Retryable filters which errors are worth another attempt; a nil
// Retryable retries everything.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int, err error) time.Duration
	Retryable   func(err error) bool
}

// Do runs op until it succeeds, the policy is exhausted, or the context is
// done. The last error is returned on failure.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt, err)
		}
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
