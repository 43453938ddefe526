package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docread/internal/pathstore"
)

const MaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *pathstore.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// withRetry runs fn until it succeeds, fails with a non-retryable error, or
// retries are used up. wait is called between attempts.
func withRetry(ctx context.Context, retries int, wait func(attempt int) time.Duration, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) || attempt >= retries {
			return err
		}
		select {
		case <-time.After(wait(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
