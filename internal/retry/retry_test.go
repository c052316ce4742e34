package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	policy := Policy{MaxAttempts: 3}

	err := policy.Do(context.Background(), func() error {
		calls++
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("Do() error = %v, want %v", err, boom)
	}
	if calls != 3 {
		t.Errorf("Do() attempts = %d, want 3", calls)
	}
}

func TestDoReturnsOnSuccess(t *testing.T) {
	calls := 0
	policy := Policy{MaxAttempts: 5}

	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("Do() attempts = %d, want 2", calls)
	}
}

func TestDoHonorsRetryablePredicate(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	policy := Policy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}

	err := policy.Do(context.Background(), func() error {
		calls++
		return fatal
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("Do() error = %v, want %v", err, fatal)
	}
	if calls != 1 {
		t.Errorf("Do() attempts = %d, want 1", calls)
	}
}

func TestDoStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{
		MaxAttempts: 10,
		Backoff:     func(int, error) time.Duration { return time.Hour },
	}

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := policy.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("Do() attempts = %d, want 1", calls)
	}
}

func TestDoBackoffReceivesAttemptNumber(t *testing.T) {
	var attempts []int
	policy := Policy{
		MaxAttempts: 3,
		Backoff: func(attempt int, _ error) time.Duration {
			attempts = append(attempts, attempt)
			return 0
		},
	}

	_ = policy.Do(context.Background(), func() error { return errors.New("transient") })

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("backoff attempts = %v, want [1 2]", attempts)
	}
}
