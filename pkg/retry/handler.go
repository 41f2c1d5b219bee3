package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rohmanhakim/prompt-loader/pkg/failure"
	"github.com/rohmanhakim/prompt-loader/pkg/timeutil"
)

// Retry executes fn up to MaxAttempts times, applying exponential backoff
// with seeded jitter between attempts. Only retryable errors trigger another
// attempt; a non-retryable error is returned as-is. Backoff waits stop early
// when ctx is done.
func Retry[T any](
	ctx context.Context,
	retryParam RetryParam,
	fn func() (T, failure.ClassifiedError),
) Result[T] {
	if retryParam.MaxAttempts < 1 {
		return Result[T]{
			err: &RetryError{
				Message:   "max attempt cannot be 0",
				Cause:     ErrZeroAttempt,
				Retryable: true,
			},
		}
	}

	rng := rand.New(rand.NewSource(retryParam.RandomSeed))

	var lastErr failure.ClassifiedError
	attempt := 1
	for ; attempt <= retryParam.MaxAttempts; attempt++ {
		value, err := fn()
		if err == nil {
			return Result[T]{value: value, attempts: attempt}
		}
		lastErr = err

		if !isErrorRetryable(err) {
			return Result[T]{err: err, attempts: attempt}
		}
		if attempt == retryParam.MaxAttempts {
			break
		}

		delay := timeutil.ExponentialBackoffDelay(
			attempt,
			retryParam.Jitter,
			*rng,
			retryParam.BackoffParam,
		)
		if !sleep(ctx, delay) {
			return Result[T]{
				err: &RetryError{
					Message:   fmt.Sprintf("stopped after %d attempts: %v", attempt, ctx.Err()),
					Cause:     ErrCancelled,
					Retryable: false,
					Last:      lastErr,
				},
				attempts: attempt,
			}
		}
	}

	// A single configured attempt is not a retry; hand back the task error
	// so callers see its own classification.
	if retryParam.MaxAttempts == 1 {
		return Result[T]{err: lastErr, attempts: 1}
	}

	return Result[T]{
		err: &RetryError{
			Message:   fmt.Sprintf("exhausted %d attempts. Last error: %v", retryParam.MaxAttempts, lastErr),
			Cause:     ErrExhaustedAttempts,
			Retryable: true,
			Last:      lastErr,
		},
		attempts: retryParam.MaxAttempts,
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// isErrorRetryable defaults to true for errors that carry no retry hint.
func isErrorRetryable(err failure.ClassifiedError) bool {
	if r, ok := err.(failure.Retryable); ok {
		return r.IsRetryable()
	}
	return true
}
