package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rohmanhakim/docmark/internal/config"
	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/internal/netguard"
	"github.com/rohmanhakim/docmark/pkg/limiter"
	"github.com/rohmanhakim/docmark/pkg/urlutil"
)

/*
Responsibilities

- Cache parsed robots.txt rule sets per origin with a bounded TTL
- Decide allow/deny/warn per candidate URL and user-agent
- Enforce crawl-delay as a minimum inter-request gap per origin
- Fetch robots.txt through the same guards as any other request

The robots.txt request itself is not privileged: it passes URL validation
and rate limiting like every fetch. It is, however, exempt from the
robots check itself - there is no robots rule about fetching robots.txt.

Per-origin state machine:

	Uncached -> Fetching -> {Loaded, NotFound, ServerError, NetworkError}

and every terminal state decays back to Uncached once the entry is older
than the TTL. Concurrent checks against one origin coalesce into a
single fetch.
*/

// cacheTTL is how long a fetched rule set (or a remembered failure)
// remains authoritative for its origin.
const cacheTTL = time.Hour

// defaultMaxOrigins bounds the rule-set cache.
const defaultMaxOrigins = 512

// URLValidator is the slice of the netguard validator the engine needs.
type URLValidator interface {
	Validate(ctx context.Context, u url.URL, policy config.Policy) netguard.Verdict
}

// cacheEntry stores the parsed response, not a resolved rule set: the
// user-agent is a per-check input, so group selection happens at decision
// time. Callers with different user-agents share one entry per origin.
type cacheEntry struct {
	response  Response
	digest    string
	status    FetchStatus
	fetchedAt time.Time
}

type Engine struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, *cacheEntry]
	fetching map[string]chan struct{}

	fetcher      *Fetcher
	validator    URLValidator
	limiter      limiter.RateLimiter
	metadataSink metadata.MetadataSink
	ttl          time.Duration
}

func NewEngine(
	metadataSink metadata.MetadataSink,
	validator URLValidator,
	rateLimiter limiter.RateLimiter,
) *Engine {
	return NewEngineWithOptions(metadataSink, validator, rateLimiter, nil, cacheTTL, defaultMaxOrigins)
}

// NewEngineWithOptions creates an Engine with a custom HTTP client, TTL,
// and cache bound. This is useful for testing.
func NewEngineWithOptions(
	metadataSink metadata.MetadataSink,
	validator URLValidator,
	rateLimiter limiter.RateLimiter,
	httpClient *http.Client,
	ttl time.Duration,
	maxOrigins int,
) *Engine {
	cache, err := lru.New[string, *cacheEntry](maxOrigins)
	if err != nil {
		panic(fmt.Sprintf("robots: bad origin cap %d: %v", maxOrigins, err))
	}

	fetcher := NewFetcher(metadataSink)
	if httpClient != nil {
		fetcher = NewFetcherWithClient(metadataSink, httpClient)
	}

	return &Engine{
		cache:        cache,
		fetching:     make(map[string]chan struct{}),
		fetcher:      fetcher,
		validator:    validator,
		limiter:      rateLimiter,
		metadataSink: metadataSink,
		ttl:          ttl,
	}
}

// Check decides whether the given URL may be fetched under the policy's
// user-agent. mode controls how a disallow is surfaced:
//   - strict: the returned error must be surfaced by the caller
//   - warn:   the disallow is recorded and the fetch proceeds
//   - ignore: robots.txt is skipped entirely, nothing is fetched
func (e *Engine) Check(ctx context.Context, u url.URL, policy config.Policy, mode config.RobotsMode) (Decision, *RobotsError) {
	if mode == config.RobotsIgnore {
		return Decision{Url: u, Allowed: true, Reason: RobotsIgnored}, nil
	}

	origin := urlutil.Origin(u)
	entry, rerr := e.entryFor(ctx, origin, policy)
	if rerr != nil {
		return Decision{Url: u}, rerr
	}

	decision := e.decide(entry, u, policy)

	if !decision.Allowed {
		e.metadataSink.RecordDenial(
			u.String(),
			string(decision.Reason),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrOrigin, origin),
				metadata.NewAttr(metadata.AttrUserAgent, policy.UserAgent()),
			},
		)

		switch mode {
		case config.RobotsWarn:
			decision.Allowed = true
			decision.Warned = true
			decision.Reason = DisallowWarned
		default: // strict
			cause := RobotsErrorCause(ErrCauseDisallowed)
			retryable := false
			if decision.Reason == ServerErrorFailClosed {
				cause = ErrCauseServerError
				retryable = true
			}
			return decision, &RobotsError{
				Message:   fmt.Sprintf("%s: %s", u.String(), decision.Reason),
				Retryable: retryable,
				Cause:     cause,
			}
		}
	}

	// Crawl-delay is keyed by hostname, not origin: the limiter paces by
	// host, so http and https origins on one host share the gap. That is
	// stricter than a per-origin gap, never looser.
	if decision.CrawlDelay != nil {
		host := u.Hostname()
		e.limiter.SetCrawlDelay(host, *decision.CrawlDelay)
		if lerr := e.limiter.WaitCrawlDelay(ctx, host); lerr != nil {
			waitErr := &RobotsError{
				Message:   lerr.Message,
				Retryable: false,
				Cause:     ErrCauseWaitCancelled,
			}
			e.metadataSink.RecordError(
				time.Now(),
				"robots",
				"Engine.Check",
				mapRobotsErrorToMetadataCause(waitErr),
				waitErr.Message,
				[]metadata.Attribute{metadata.NewAttr(metadata.AttrHost, host)},
			)
			return decision, waitErr
		}
	}

	return decision, nil
}

func (e *Engine) decide(entry *cacheEntry, u url.URL, policy config.Policy) Decision {
	rules := mapResponseToRuleSet(entry.response, policy.UserAgent(), entry.fetchedAt, entry.digest)
	decision := Decision{Url: u, CrawlDelay: rules.CrawlDelay()}

	switch entry.status {
	case StatusNotFound:
		decision.Allowed = true
		decision.Reason = NoRobotsFile
		return decision

	case StatusServerError:
		decision.Allowed = false
		decision.Reason = ServerErrorFailClosed
		return decision

	case StatusNetworkError:
		decision.Allowed = true
		decision.Reason = NetworkErrorFailOpen
		return decision
	}

	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}

	reason := rules.decidePath(target)
	decision.Reason = reason
	decision.Allowed = reason != DisallowedByRobots
	return decision
}

// entryFor returns a fresh cache entry for the origin, fetching at most
// once no matter how many goroutines ask concurrently.
func (e *Engine) entryFor(ctx context.Context, origin string, policy config.Policy) (*cacheEntry, *RobotsError) {
	for {
		e.mu.Lock()
		if entry, ok := e.cache.Get(origin); ok && time.Since(entry.fetchedAt) <= e.ttl {
			e.mu.Unlock()
			return entry, nil
		}

		if done, inFlight := e.fetching[origin]; inFlight {
			e.mu.Unlock()
			select {
			case <-done:
				continue // re-read the cache
			case <-ctx.Done():
				return nil, &RobotsError{
					Message:   fmt.Sprintf("cancelled waiting for robots.txt of %s", origin),
					Retryable: false,
					Cause:     ErrCauseWaitCancelled,
				}
			}
		}

		done := make(chan struct{})
		e.fetching[origin] = done
		e.mu.Unlock()

		result := e.fetchOrigin(ctx, origin, policy)

		e.mu.Lock()
		entry := e.buildEntry(origin, result)
		e.cache.Add(origin, entry)
		delete(e.fetching, origin)
		close(done)
		e.mu.Unlock()

		return entry, nil
	}
}

// buildEntry converts a fetch result into a cache entry, serving stale
// rules on transient failure: when a refetch ends in a network error but
// a previously loaded rule set exists for the origin, the old rules keep
// applying for another TTL window rather than silently dropping to
// allow-all. This is deliberate and uniform (never mixed per call).
func (e *Engine) buildEntry(origin string, result FetchResult) *cacheEntry {
	if result.Status == StatusNetworkError {
		if stale, ok := e.cache.Get(origin); ok && stale.status == StatusLoaded {
			e.metadataSink.RecordError(
				time.Now(),
				"robots",
				"Engine.buildEntry",
				metadata.CauseNetworkFailure,
				"refetch failed, serving stale rule set",
				[]metadata.Attribute{metadata.NewAttr(metadata.AttrOrigin, origin)},
			)
			return &cacheEntry{
				response:  stale.response,
				digest:    stale.digest,
				status:    StatusLoaded,
				fetchedAt: time.Now(),
			}
		}
	}

	return &cacheEntry{
		response:  result.Response,
		digest:    result.Digest,
		status:    result.Status,
		fetchedAt: result.FetchedAt,
	}
}

// fetchOrigin retrieves robots.txt for the origin through the same URL
// validation and rate limiting as any other fetch. A guard denial or a
// rate-limit timeout maps to StatusNetworkError: we could not learn the
// origin's policy, which RFC 9309 treats as no restriction. The denial
// itself still applies to the caller's document fetch via its own
// validation pass.
func (e *Engine) fetchOrigin(ctx context.Context, origin string, policy config.Policy) FetchResult {
	robotsURL, err := url.Parse(origin + "/robots.txt")
	if err != nil {
		return FetchResult{Status: StatusNetworkError, FetchedAt: time.Now(), SourceURL: origin + "/robots.txt"}
	}

	if verdict := e.validator.Validate(ctx, *robotsURL, policy); !verdict.Allowed() {
		return FetchResult{Status: StatusNetworkError, FetchedAt: time.Now(), SourceURL: robotsURL.String()}
	}

	slot, lerr := e.limiter.Acquire(ctx, robotsURL.Hostname(), limiter.Params{
		RequestsPerSecond: policy.MaxRequestsPerSecond(),
		MaxConcurrent:     policy.MaxConcurrentRequests(),
		WaitTimeout:       policy.Timeout(),
	})
	if lerr != nil {
		return FetchResult{Status: StatusNetworkError, FetchedAt: time.Now(), SourceURL: robotsURL.String()}
	}
	defer slot.Release()

	return e.fetcher.Fetch(ctx, origin, policy)
}
