package limiter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// RateLimiter
// Specialized component to pace outbound requests per host
// Responsibilities:
// - Bookkeep each hostname's token bucket and in-flight count
// - Enforce the per-host concurrency cap via scoped slot acquisition
// - Honor robots.txt crawl-delay as a minimum inter-request gap
// - Make sure no request proceeds without consuming a token first
type RateLimiter interface {
	Acquire(ctx context.Context, host string, params Params) (*Slot, *LimitError)
	SetCrawlDelay(host string, delay time.Duration)
	WaitCrawlDelay(ctx context.Context, host string) *LimitError
	DelayFor(host string) time.Duration
	InFlight(host string) int64
}

// defaultMaxHosts bounds the host-state map. A document that references
// assets on thousands of distinct hosts is enumerating, not rendering;
// evicted hosts simply start over with a fresh bucket.
const defaultMaxHosts = 1024

type HostRateLimiter struct {
	mu    sync.Mutex
	hosts *lru.Cache[string, *hostState]
}

// Compile-time interface check
var _ RateLimiter = (*HostRateLimiter)(nil)

// hostState owns all mutable pacing state for one host. Each host carries
// its own lock so unrelated hosts never contend.
type hostState struct {
	mu       sync.Mutex
	bucket   *rate.Limiter
	sem      *semaphore.Weighted
	semCap   int64
	pacing   hostPacing
	inFlight atomic.Int64
}

func NewHostRateLimiter() *HostRateLimiter {
	return NewHostRateLimiterWithCap(defaultMaxHosts)
}

// NewHostRateLimiterWithCap creates a limiter whose host map holds at most
// maxHosts entries, evicting least-recently-used hosts beyond that.
func NewHostRateLimiterWithCap(maxHosts int) *HostRateLimiter {
	hosts, err := lru.New[string, *hostState](maxHosts)
	if err != nil {
		// lru.New fails only for a non-positive size
		panic(fmt.Sprintf("limiter: bad host cap %d: %v", maxHosts, err))
	}
	return &HostRateLimiter{hosts: hosts}
}

// Slot is a scoped acquisition of one token and one concurrency slot.
// Release must be called on every exit path; it is safe to call more
// than once.
type Slot struct {
	host    string
	state   *hostState
	sem     *semaphore.Weighted
	release sync.Once
}

func (s *Slot) Host() string {
	return s.host
}

// Release frees the concurrency slot. The consumed token is not returned:
// token consumption is monotonic. The slot releases the gate it was
// acquired on, even if the host has since been retuned to a new gate.
func (s *Slot) Release() {
	s.release.Do(func() {
		s.state.inFlight.Add(-1)
		s.sem.Release(1)
	})
}

// Acquire blocks until a token is available and a concurrency slot is
// free, or until params.WaitTimeout elapses or ctx is cancelled. On
// success the returned Slot holds the concurrency slot until released.
//
// A slow or unresponsive host must never stall the whole pipeline: the
// wait is always bounded.
func (l *HostRateLimiter) Acquire(ctx context.Context, host string, params Params) (*Slot, *LimitError) {
	if params.RequestsPerSecond <= 0 || params.MaxConcurrent <= 0 {
		return nil, &LimitError{
			Message:   fmt.Sprintf("rps=%v maxConcurrent=%d", params.RequestsPerSecond, params.MaxConcurrent),
			Retryable: false,
			Cause:     ErrCauseInvalidParams,
		}
	}

	state := l.stateFor(host, params)

	waitCtx := ctx
	if params.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, params.WaitTimeout)
		defer cancel()
	}

	// Crawl-delay gap first: it is a politeness floor underneath the bucket.
	if err := l.waitDelay(waitCtx, ctx, state); err != nil {
		return nil, err
	}

	if err := state.bucket.Wait(waitCtx); err != nil {
		return nil, l.classifyWaitError(ctx, host, "token")
	}

	sem := state.gate()
	if err := sem.Acquire(waitCtx, 1); err != nil {
		// The token is deliberately not refunded; consumption is monotonic.
		return nil, l.classifyWaitError(ctx, host, "slot")
	}

	state.inFlight.Add(1)
	state.markRequest(time.Now())

	return &Slot{host: host, state: state, sem: sem}, nil
}

// SetCrawlDelay records a robots.txt crawl-delay for the host, enforced
// as a minimum gap between successive requests on subsequent acquires.
// It never retunes an existing host's bucket or gate: callers already
// waiting inside Acquire must keep the pacing their policy asked for.
func (l *HostRateLimiter) SetCrawlDelay(host string, delay time.Duration) {
	state := l.ensure(host, Params{RequestsPerSecond: 1, MaxConcurrent: 1})

	state.mu.Lock()
	defer state.mu.Unlock()
	state.pacing.crawlDelay = delay
}

// WaitCrawlDelay suspends the caller until the host's crawl-delay gap has
// passed, without consuming a token or slot. Used when a robots decision
// arrives after the slot was already acquired.
func (l *HostRateLimiter) WaitCrawlDelay(ctx context.Context, host string) *LimitError {
	state, ok := l.peek(host)
	if !ok {
		return nil
	}
	return l.waitDelay(ctx, ctx, state)
}

// DelayFor returns the remaining crawl-delay gap for the host, or zero.
func (l *HostRateLimiter) DelayFor(host string) time.Duration {
	state, ok := l.peek(host)
	if !ok {
		return 0
	}
	return state.delayRemaining(time.Now())
}

// InFlight returns the number of currently in-flight requests for the
// host. Observational; intended for diagnostics and tests.
func (l *HostRateLimiter) InFlight(host string) int64 {
	state, ok := l.peek(host)
	if !ok {
		return 0
	}
	return state.inFlight.Load()
}

func (l *HostRateLimiter) stateFor(host string, params Params) *hostState {
	l.mu.Lock()
	defer l.mu.Unlock()

	if state, ok := l.hosts.Get(host); ok {
		state.retune(params)
		return state
	}
	return l.newStateLocked(host, params)
}

// ensure returns the host's state, creating it with params only when the
// host is unseen. Unlike stateFor it leaves an existing state's bucket
// and gate untouched.
func (l *HostRateLimiter) ensure(host string, params Params) *hostState {
	l.mu.Lock()
	defer l.mu.Unlock()

	if state, ok := l.hosts.Get(host); ok {
		return state
	}
	return l.newStateLocked(host, params)
}

func (l *HostRateLimiter) newStateLocked(host string, params Params) *hostState {
	burst := int(math.Ceil(params.RequestsPerSecond))
	if burst < 1 {
		burst = 1
	}
	state := &hostState{
		bucket: rate.NewLimiter(rate.Limit(params.RequestsPerSecond), burst),
		sem:    semaphore.NewWeighted(int64(params.MaxConcurrent)),
		semCap: int64(params.MaxConcurrent),
	}
	l.hosts.Add(host, state)
	return state
}

func (l *HostRateLimiter) peek(host string) (*hostState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hosts.Get(host)
}

func (l *HostRateLimiter) waitDelay(waitCtx, callerCtx context.Context, state *hostState) *LimitError {
	remaining := state.delayRemaining(time.Now())
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-waitCtx.Done():
		return l.classifyWaitError(callerCtx, "", "crawl-delay")
	}
}

// classifyWaitError distinguishes the bounded-wait timeout (the host is
// too slow to admit us) from the caller's own cancellation.
func (l *HostRateLimiter) classifyWaitError(callerCtx context.Context, host, stage string) *LimitError {
	if callerCtx.Err() != nil {
		return &LimitError{
			Message:   fmt.Sprintf("caller cancelled while waiting for %s", stage),
			Retryable: false,
			Cause:     ErrCauseAcquireCancelled,
		}
	}
	return &LimitError{
		Message:   fmt.Sprintf("bounded wait elapsed while waiting for %s (host %s)", stage, host),
		Retryable: true,
		Cause:     ErrCauseRateLimitExceeded,
	}
}

// retune applies the current policy's params to an existing host. Policies
// are per call; a host first seen under one policy must obey a stricter
// rate or concurrency cap introduced by the next. A changed cap replaces
// the gate; slots already held release against the gate they were
// acquired on.
func (s *hostState) retune(params Params) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newLimit := rate.Limit(params.RequestsPerSecond)
	if s.bucket.Limit() != newLimit {
		s.bucket.SetLimit(newLimit)
		burst := int(math.Ceil(params.RequestsPerSecond))
		if burst < 1 {
			burst = 1
		}
		s.bucket.SetBurst(burst)
	}

	if s.semCap != int64(params.MaxConcurrent) {
		s.sem = semaphore.NewWeighted(int64(params.MaxConcurrent))
		s.semCap = int64(params.MaxConcurrent)
	}
}

// gate returns the current concurrency gate. Captured once per acquire so
// a concurrent retune cannot split an acquire/release pair across gates.
func (s *hostState) gate() *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sem
}

func (s *hostState) markRequest(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pacing.lastRequestAt = now
}

func (s *hostState) delayRemaining(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pacing.crawlDelay <= 0 || s.pacing.lastRequestAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(s.pacing.lastRequestAt)
	if elapsed < s.pacing.crawlDelay {
		return s.pacing.crawlDelay - elapsed
	}
	return 0
}
