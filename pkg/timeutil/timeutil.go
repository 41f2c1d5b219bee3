package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// DurationPtr returns a pointer to a copy of d.
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// MaxDuration returns the largest duration in durations, or 0 when empty.
func MaxDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	max := durations[0]
	for _, d := range durations[1:] {
		if d > max {
			max = d
		}
	}
	return max
}

// ComputeJitter returns a uniformly distributed duration in [0, max).
// A non-positive max yields 0.
func ComputeJitter(max time.Duration, rng rand.Rand) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// ExponentialBackoffDelay computes the wait before the next attempt.
// backoffCount starts at 1: the first delay equals the initial duration,
// every further count multiplies it, capped at the max duration.
// Jitter is added on top of the capped value.
func ExponentialBackoffDelay(
	backoffCount int,
	jitter time.Duration,
	rng rand.Rand,
	backoffParam BackoffParam,
) time.Duration {
	if backoffCount < 1 {
		backoffCount = 1
	}

	exponent := float64(backoffCount - 1)
	delay := float64(backoffParam.InitialDuration()) * math.Pow(backoffParam.Multiplier(), exponent)
	if maxDelay := float64(backoffParam.MaxDuration()); maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	return time.Duration(delay) + ComputeJitter(jitter, rng)
}
