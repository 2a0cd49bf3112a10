package timeutil

import "time"

// BackoffParam holds the shape of an exponential backoff curve: the first
// delay, the growth factor applied per attempt, and the cap the delay never
// exceeds.
type BackoffParam struct {
	initialDuration time.Duration
	multiplier      float64
	maxDuration     time.Duration
}

// NewBackoffParam builds a BackoffParam. A multiplier below 1 is raised to 1
// so delays never shrink across attempts.
func NewBackoffParam(
	initialDuration time.Duration,
	multiplier float64,
	maxDuration time.Duration,
) BackoffParam {
	if multiplier < 1 {
		multiplier = 1
	}
	return BackoffParam{
		initialDuration: initialDuration,
		multiplier:      multiplier,
		maxDuration:     maxDuration,
	}
}

func (b BackoffParam) InitialDuration() time.Duration {
	return b.initialDuration
}

func (b BackoffParam) Multiplier() float64 {
	return b.multiplier
}

func (b BackoffParam) MaxDuration() time.Duration {
	return b.maxDuration
}
