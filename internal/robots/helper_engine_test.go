package robots

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/docmark/internal/config"
	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/internal/netguard"
	"github.com/rohmanhakim/docmark/pkg/limiter"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// robotsServer is a RoundTripper serving canned robots.txt responses
// keyed by origin. It counts fetches so tests can assert cache behavior.
type robotsServer struct {
	bodies   map[string]string
	statuses map[string]int
	fail     map[string]bool
	fetches  atomic.Int64
}

func newRobotsServer() *robotsServer {
	return &robotsServer{
		bodies:   make(map[string]string),
		statuses: make(map[string]int),
		fail:     make(map[string]bool),
	}
}

func (s *robotsServer) serve(origin, body string) {
	s.bodies[origin] = body
	s.statuses[origin] = http.StatusOK
}

func (s *robotsServer) status(origin string, code int) {
	s.statuses[origin] = code
}

func (s *robotsServer) refuse(origin string) {
	s.fail[origin] = true
}

func (s *robotsServer) RoundTrip(req *http.Request) (*http.Response, error) {
	s.fetches.Add(1)

	origin := req.URL.Scheme + "://" + req.URL.Host
	if s.fail[origin] {
		return nil, errors.New("connection refused")
	}

	code, ok := s.statuses[origin]
	if !ok {
		code = http.StatusNotFound
	}

	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(s.bodies[origin])),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// allowAllValidator passes every URL through. Guard behavior has its own
// tests; the engine only needs the interface.
type allowAllValidator struct{}

func (allowAllValidator) Validate(_ context.Context, u url.URL, _ config.Policy) netguard.Verdict {
	return netguard.AllowedVerdict(u)
}

// denyAllValidator rejects every URL, simulating a robots.txt fetch that
// the guards themselves refuse.
type denyAllValidator struct{}

func (denyAllValidator) Validate(_ context.Context, u url.URL, _ config.Policy) netguard.Verdict {
	return netguard.DeniedVerdict(u, netguard.ReasonPrivateAddressBlocked, "test")
}

type engineFixture struct {
	engine   *Engine
	server   *robotsServer
	recorder *metadata.Recorder
	policy   config.Policy
}

func newEngineFixture(t *testing.T, ttl time.Duration) *engineFixture {
	t.Helper()

	server := newRobotsServer()
	recorder := metadata.NewRecorder()

	policy, err := config.WithDefault().
		WithUserAgent("docmark").
		WithMaxRequestsPerSecond(1000).
		WithMaxConcurrentRequests(16).
		Build()
	require.NoError(t, err)

	engine := NewEngineWithOptions(
		recorder,
		allowAllValidator{},
		limiter.NewHostRateLimiter(),
		&http.Client{Transport: server},
		ttl,
		defaultMaxOrigins,
	)

	return &engineFixture{
		engine:   engine,
		server:   server,
		recorder: recorder,
		policy:   policy,
	}
}

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}
