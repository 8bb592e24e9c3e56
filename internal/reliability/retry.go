package reliability

import (
	"context"
	"time"
)

type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
}

// DefaultStoreRetry is used for durable store writes.
var DefaultStoreRetry = RetryPolicy{Attempts: 3, Base: 50 * time.Millisecond, Cap: 500 * time.Millisecond}

// Retry runs fn until it succeeds, returns a non-retryable error, exhausts the
// attempts, or ctx ends. The last error is returned.
func Retry(ctx context.Context, p RetryPolicy, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(ExponentialBackoff(attempt, p.Base, p.Cap))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
