package limiter

import "time"

// Params carries the per-host pacing knobs for one Acquire call.
// The caller derives them from its policy; the limiter itself has no
// dependency on how policies are configured.
type Params struct {
	// Token-bucket refill rate. Must be positive.
	RequestsPerSecond float64
	// Hard cap on simultaneously in-flight requests to one host.
	MaxConcurrent int
	// Upper bound on how long Acquire may wait for a token and a slot.
	// Zero means wait only as long as the caller's context allows.
	WaitTimeout time.Duration
}

// pacing-related data tracked per host
type hostPacing struct {
	lastRequestAt time.Time
	crawlDelay    time.Duration
}

func (h *hostPacing) CrawlDelay() time.Duration {
	return h.crawlDelay
}

func (h *hostPacing) LastRequestAt() time.Time {
	return h.lastRequestAt
}
