package timeutil

import (
	"math/rand"
	"testing"
	"time"
)

func TestMaxDuration(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		want      time.Duration
	}{
		{
			name:      "empty slice returns zero",
			durations: []time.Duration{},
			want:      0,
		},
		{
			name:      "single element",
			durations: []time.Duration{3 * time.Second},
			want:      3 * time.Second,
		},
		{
			name:      "max in the middle",
			durations: []time.Duration{time.Second, 5 * time.Second, 2 * time.Second},
			want:      5 * time.Second,
		},
		{
			name:      "all zero",
			durations: []time.Duration{0, 0, 0},
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDuration(tt.durations)
			if got != tt.want {
				t.Errorf("MaxDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaxDurationDoesNotMutateInput(t *testing.T) {
	original := []time.Duration{time.Second, 3 * time.Second, 2 * time.Second}
	snapshot := make([]time.Duration, len(original))
	copy(snapshot, original)

	_ = MaxDuration(original)

	for i := range original {
		if original[i] != snapshot[i] {
			t.Errorf("MaxDuration mutated input at index %d: %v != %v", i, original[i], snapshot[i])
		}
	}
}

func TestComputeJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	// zero and negative max must yield zero
	if got := ComputeJitter(rng, 0); got != 0 {
		t.Errorf("ComputeJitter(rng, 0) = %v, want 0", got)
	}
	if got := ComputeJitter(rng, -time.Second); got != 0 {
		t.Errorf("ComputeJitter(rng, -1s) = %v, want 0", got)
	}
	if got := ComputeJitter(nil, time.Second); got != 0 {
		t.Errorf("ComputeJitter(nil, 1s) = %v, want 0", got)
	}

	max := 100 * time.Millisecond
	for i := 0; i < 1000; i++ {
		got := ComputeJitter(rng, max)
		if got < 0 || got >= max {
			t.Fatalf("ComputeJitter out of range [0, %v): %v", max, got)
		}
	}
}

func TestExponentialBackoffDelay(t *testing.T) {
	param := NewBackoffParam(time.Second, 2.0, 30*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 5, want: 16 * time.Second},
		{attempt: 6, want: 30 * time.Second}, // capped
		{attempt: 10, want: 30 * time.Second},
		{attempt: 0, want: time.Second}, // clamped to 1
	}

	for _, tt := range tests {
		got := ExponentialBackoffDelay(param, tt.attempt, nil, 0)
		if got != tt.want {
			t.Errorf("ExponentialBackoffDelay(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialBackoffDelay_JitterBounds(t *testing.T) {
	param := NewBackoffParam(time.Second, 2.0, 30*time.Second)
	rng := rand.New(rand.NewSource(7))
	jitter := 500 * time.Millisecond

	for i := 0; i < 200; i++ {
		got := ExponentialBackoffDelay(param, 2, rng, jitter)
		if got < 2*time.Second || got >= 2*time.Second+jitter {
			t.Fatalf("delay with jitter out of range: %v", got)
		}
	}
}
