package limiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/docmark/pkg/limiter"
)

// TestConcurrencyNeverExceedsCap is the core concurrency property of the
// limiter: issuing N requests to one host where N > MaxConcurrent must
// never result in more than MaxConcurrent simultaneously in-flight.
//
// Test Scenario:
// - 40 goroutines all acquire against the same host with MaxConcurrent=3
// - Each holds its slot briefly while an instrumented counter tracks the
//   high-water mark of simultaneous holders
// - Release happens on every path via defer
//
// Expected Behavior:
// - Every acquire eventually succeeds (the wait timeout is generous)
// - The observed high-water mark never exceeds 3
//
// Run with `-race` flag to detect data races:
//
//	go test -race ./pkg/limiter -run TestConcurrencyNeverExceedsCap
func TestConcurrencyNeverExceedsCap(t *testing.T) {
	rl := limiter.NewHostRateLimiter()
	params := limiter.Params{
		RequestsPerSecond: 10_000,
		MaxConcurrent:     3,
		WaitTimeout:       30 * time.Second,
	}

	var current atomic.Int64
	var highWater atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			slot, lerr := rl.Acquire(context.Background(), "contended.example", params)
			if lerr != nil {
				t.Errorf("unexpected acquire failure: %v", lerr)
				return
			}
			defer slot.Release()

			now := current.Add(1)
			for {
				max := highWater.Load()
				if now <= max || highWater.CompareAndSwap(max, now) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			current.Add(-1)
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, highWater.Load(), int64(3),
		"in-flight high-water mark exceeded MaxConcurrent")
	assert.Equal(t, int64(0), rl.InFlight("contended.example"))
}

// TestConcurrentAccessManyHosts is a thread-safety stress test across
// hosts: concurrent acquires, releases, crawl-delay updates, and reads on
// a shared limiter must be race-free and deadlock-free.
func TestConcurrentAccessManyHosts(t *testing.T) {
	rl := limiter.NewHostRateLimiter()
	hosts := []string{"a.example", "b.example", "c.example", "d.example", "e.example"}
	params := limiter.Params{
		RequestsPerSecond: 10_000,
		MaxConcurrent:     8,
		WaitTimeout:       10 * time.Second,
	}

	var wg sync.WaitGroup
	workers := 30
	opsPerWorker := 200

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerWorker; j++ {
				host := hosts[(id+j)%len(hosts)]
				switch j % 4 {
				case 0, 1:
					slot, lerr := rl.Acquire(context.Background(), host, params)
					if lerr != nil {
						t.Errorf("acquire %s: %v", host, lerr)
						return
					}
					slot.Release()
				case 2:
					rl.SetCrawlDelay(host, time.Duration(j%3)*time.Millisecond)
				case 3:
					_ = rl.DelayFor(host)
					_ = rl.InFlight(host)
				}
			}
		}(i)
	}

	wg.Wait()

	for _, host := range hosts {
		require.Equal(t, int64(0), rl.InFlight(host), "leaked slot on %s", host)
	}
}
