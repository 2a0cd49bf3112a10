package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/docmark/internal/archive"
	"github.com/rohmanhakim/docmark/internal/config"
	"github.com/rohmanhakim/docmark/internal/gateway"
	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/internal/netguard"
	"github.com/rohmanhakim/docmark/internal/robots"
	"github.com/rohmanhakim/docmark/pkg/limiter"
)

// staticResolver resolves every known host to a fixed address set.
type staticResolver struct {
	addrs map[string][]netip.Addr
}

func (r *staticResolver) LookupNetIP(_ context.Context, _ string, host string) ([]netip.Addr, error) {
	addrs, ok := r.addrs[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

func publicResolver(hosts ...string) *staticResolver {
	addrs := make(map[string][]netip.Addr)
	for _, host := range hosts {
		addrs[host] = []netip.Addr{netip.MustParseAddr("93.184.216.34")}
	}
	return &staticResolver{addrs: addrs}
}

func noEnv(string) string { return "" }

// siteTransport serves a canned robots.txt plus page bodies by path,
// counting robots.txt hits separately.
type siteTransport struct {
	robotsBody   string
	robotsStatus int
	pages        map[string]string
	pageStatus   int
	robotsHits   atomic.Int64
	pageHits     atomic.Int64

	// transientFailures makes the next N page requests answer 503,
	// simulating a host that recovers.
	transientFailures atomic.Int64
}

func newSiteTransport() *siteTransport {
	return &siteTransport{
		robotsStatus: http.StatusOK,
		pages:        make(map[string]string),
		pageStatus:   http.StatusOK,
	}
}

func (s *siteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Path == "/robots.txt" {
		s.robotsHits.Add(1)
		return textResponse(req, s.robotsStatus, s.robotsBody), nil
	}

	s.pageHits.Add(1)
	if s.transientFailures.Load() > 0 {
		s.transientFailures.Add(-1)
		return textResponse(req, http.StatusServiceUnavailable, "unavailable"), nil
	}
	body, ok := s.pages[req.URL.Path]
	if !ok && s.pageStatus == http.StatusOK {
		return textResponse(req, http.StatusNotFound, "not found"), nil
	}
	return textResponse(req, s.pageStatus, body), nil
}

func textResponse(req *http.Request, status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "text/html; charset=utf-8")
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
		Request:    req,
	}
}

type fetcherFixture struct {
	fetcher   *GatedFetcher
	transport *siteTransport
	recorder  *metadata.Recorder
	policy    config.Policy
}

func newFetcherFixture(t *testing.T, resolver netguard.Resolver, mutate func(*config.Policy) *config.Policy) *fetcherFixture {
	t.Helper()

	transport := newSiteTransport()
	recorder := metadata.NewRecorder()
	httpClient := &http.Client{Transport: transport}

	urlValidator := netguard.NewValidatorWithResolver(recorder, resolver, noEnv)
	rateLimiter := limiter.NewHostRateLimiter()
	robotsEngine := robots.NewEngineWithOptions(
		recorder, urlValidator, rateLimiter, httpClient, time.Hour, 64,
	)
	gw := gateway.NewWithGuards(
		recorder, urlValidator, rateLimiter, robotsEngine,
		archive.NewValidator(recorder),
	)

	builder := config.WithDefault().
		WithUserAgent("docmark").
		WithMaxRequestsPerSecond(1000).
		WithMaxConcurrentRequests(8)
	if mutate != nil {
		builder = mutate(builder)
	}
	policy, err := builder.Build()
	require.NoError(t, err)

	return &fetcherFixture{
		fetcher:   NewGatedFetcherWithClient(recorder, gw, httpClient),
		transport: transport,
		recorder:  recorder,
		policy:    policy,
	}
}

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}
