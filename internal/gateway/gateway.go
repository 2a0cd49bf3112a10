package gateway

import (
	"context"
	"fmt"
	"net/netip"
	"net/url"

	"github.com/rohmanhakim/docmark/internal/archive"
	"github.com/rohmanhakim/docmark/internal/config"
	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/internal/netguard"
	"github.com/rohmanhakim/docmark/internal/robots"
	"github.com/rohmanhakim/docmark/pkg/limiter"
)

/*
Gateway

The single entry point every parser and fetch path consults before
performing network I/O or archive extraction. It composes the four
guards and fixes their calling order:

	ValidateURL -> AcquireRateSlot -> CheckRobots (documents only) -> fetch

and, for archives:

	ValidateArchive -> extract (caller-side)

The gateway never performs the fetch or the extraction itself; it
approves or denies. Parsers depend on this facade, never on a concrete
guard, so swapping or instrumenting an individual guard does not touch
any parser.

All state lives inside the guards (rate buckets, robots cache); the
gateway itself is stateless and safe for concurrent use.
*/
type Gateway struct {
	urlValidator     *netguard.Validator
	rateLimiter      limiter.RateLimiter
	robotsEngine     *robots.Engine
	archiveValidator *archive.Validator
	metadataSink     metadata.MetadataSink
}

func New(metadataSink metadata.MetadataSink) *Gateway {
	urlValidator := netguard.NewValidator(metadataSink)
	rateLimiter := limiter.NewHostRateLimiter()

	return &Gateway{
		urlValidator:     urlValidator,
		rateLimiter:      rateLimiter,
		robotsEngine:     robots.NewEngine(metadataSink, urlValidator, rateLimiter),
		archiveValidator: archive.NewValidator(metadataSink),
		metadataSink:     metadataSink,
	}
}

// NewWithGuards wires a Gateway from pre-built guards. This is useful
// for testing and for callers that need custom resolvers or clients.
func NewWithGuards(
	metadataSink metadata.MetadataSink,
	urlValidator *netguard.Validator,
	rateLimiter limiter.RateLimiter,
	robotsEngine *robots.Engine,
	archiveValidator *archive.Validator,
) *Gateway {
	return &Gateway{
		urlValidator:     urlValidator,
		rateLimiter:      rateLimiter,
		robotsEngine:     robotsEngine,
		archiveValidator: archiveValidator,
		metadataSink:     metadataSink,
	}
}

// ValidateURL decides allow/deny for one URL under the policy. It must
// be the first call on every remote fetch path.
func (g *Gateway) ValidateURL(ctx context.Context, u url.URL, policy config.Policy) netguard.Verdict {
	return g.urlValidator.Validate(ctx, u, policy)
}

// CheckDialAddress re-validates the address actually being dialed.
// Intended for a dialer's Control hook, where address is the host:port
// pair of the connection and the resolver's answer at connect time may
// differ from the one Validate saw.
func (g *Gateway) CheckDialAddress(address string) *netguard.GuardError {
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil {
		return &netguard.GuardError{
			Message:   fmt.Sprintf("unparseable dial address %q", address),
			Retryable: false,
			Cause:     netguard.ErrCauseDialBlocked,
		}
	}
	return g.urlValidator.CheckDialAddress(addrPort.Addr())
}

// AcquireRateSlot blocks until the host admits one more request, or
// fails with a bounded-wait timeout. The slot must be released on every
// exit path.
func (g *Gateway) AcquireRateSlot(ctx context.Context, host string, policy config.Policy) (*limiter.Slot, *limiter.LimitError) {
	return g.rateLimiter.Acquire(ctx, host, limiter.Params{
		RequestsPerSecond: policy.MaxRequestsPerSecond(),
		MaxConcurrent:     policy.MaxConcurrentRequests(),
		WaitTimeout:       policy.Timeout(),
	})
}

// CheckRobots decides whether the URL may be fetched as a document under
// the policy's user-agent. Asset fetches skip this check; robots.txt
// governs page retrieval, not subresource loading.
func (g *Gateway) CheckRobots(ctx context.Context, u url.URL, policy config.Policy) (robots.Decision, *robots.RobotsError) {
	return g.robotsEngine.Check(ctx, u, policy, policy.RobotsMode())
}

// ValidateArchive vets an archive's member listing before extraction.
// Extraction may proceed only on a clean report.
func (g *Gateway) ValidateArchive(members []archive.Member, limits config.ArchiveLimits) archive.Report {
	return g.archiveValidator.Validate(members, limits)
}
