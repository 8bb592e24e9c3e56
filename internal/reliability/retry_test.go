package reliability

import (
	"context"
	"errors"
	"testing"
	"time"
)

var fastRetry = RetryPolicy{Attempts: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	want := errors.New("still down")
	err := Retry(context.Background(), fastRetry, func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) || calls != 3 {
		t.Fatalf("Retry() = %v after %d calls, want %v after 3", err, calls, want)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry, func(context.Context) error {
		calls++
		return Permanent(errors.New("bad input"))
	})
	if err == nil || calls != 1 {
		t.Fatalf("Retry() = %v after %d calls, want error after 1", err, calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, RetryPolicy{Attempts: 5, Base: time.Hour, Cap: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if err == nil || calls != 1 {
		t.Fatalf("Retry() = %v after %d calls, want error after 1", err, calls)
	}
}
