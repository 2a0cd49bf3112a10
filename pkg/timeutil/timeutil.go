package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// DurationPtr is a helper function to create a pointer to a time.Duration
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// MaxDuration returns the largest duration in the given slice.
// Returns 0 for an empty slice. The input is never mutated.
func MaxDuration(durations []time.Duration) time.Duration {
	var max time.Duration
	for _, d := range durations {
		if d > max {
			max = d
		}
	}
	return max
}

// ComputeJitter returns a pseudo-random duration in [0, max).
// Returns 0 when max <= 0 or rng is nil.
func ComputeJitter(rng *rand.Rand, max time.Duration) time.Duration {
	if max <= 0 || rng == nil {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// ExponentialBackoffDelay computes the backoff delay for the given attempt count.
// attempt is 1-based: attempt=1 yields param.InitialDuration().
// The result is capped at param.MaxDuration(), then jitter is added on top.
func ExponentialBackoffDelay(param BackoffParam, attempt int, rng *rand.Rand, jitter time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	exponent := float64(attempt - 1)
	delay := float64(param.initialDuration) * math.Pow(param.multiplier, exponent)
	if delay > float64(param.maxDuration) {
		delay = float64(param.maxDuration)
	}

	return time.Duration(delay) + ComputeJitter(rng, jitter)
}
