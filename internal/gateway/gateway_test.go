package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/docmark/internal/archive"
	"github.com/rohmanhakim/docmark/internal/config"
	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/internal/netguard"
	"github.com/rohmanhakim/docmark/internal/robots"
	"github.com/rohmanhakim/docmark/pkg/limiter"
)

// staticResolver resolves every host to a fixed address set.
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

// robotsTransport serves one canned robots.txt body for every origin.
type robotsTransport struct {
	body   string
	status int
}

func (t *robotsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: t.status,
		Body:       io.NopCloser(strings.NewReader(t.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func noEnv(string) string { return "" }

func testGateway(t *testing.T, resolver netguard.Resolver, robotsBody string) (*Gateway, config.Policy) {
	t.Helper()

	recorder := metadata.NewRecorder()
	urlValidator := netguard.NewValidatorWithResolver(recorder, resolver, noEnv)
	rateLimiter := limiter.NewHostRateLimiter()
	robotsEngine := robots.NewEngineWithOptions(
		recorder,
		urlValidator,
		rateLimiter,
		&http.Client{Transport: &robotsTransport{body: robotsBody, status: http.StatusOK}},
		time.Hour,
		64,
	)

	gw := NewWithGuards(
		recorder,
		urlValidator,
		rateLimiter,
		robotsEngine,
		archive.NewValidator(recorder),
	)

	policy, err := config.WithDefault().
		WithUserAgent("docmark").
		WithMaxRequestsPerSecond(1000).
		WithMaxConcurrentRequests(8).
		Build()
	require.NoError(t, err)

	return gw, policy
}

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestGateway_DocumentFlow(t *testing.T) {
	resolver := &staticResolver{addrs: map[string][]netip.Addr{
		"docs.example.com": {netip.MustParseAddr("93.184.216.34")},
	}}
	gw, policy := testGateway(t, resolver, "User-agent: *\nDisallow: /private/\n")

	u := mustURL(t, "https://docs.example.com/guide.html")

	verdict := gw.ValidateURL(context.Background(), u, policy)
	require.True(t, verdict.Allowed())

	slot, lerr := gw.AcquireRateSlot(context.Background(), u.Hostname(), policy)
	require.Nil(t, lerr)
	defer slot.Release()

	decision, rerr := gw.CheckRobots(context.Background(), u, policy)
	require.Nil(t, rerr)
	assert.True(t, decision.Allowed)
}

func TestGateway_PrivateAddressStopsFlow(t *testing.T) {
	resolver := &staticResolver{addrs: map[string][]netip.Addr{
		"internal.example.com": {netip.MustParseAddr("10.0.0.5")},
	}}
	gw, policy := testGateway(t, resolver, "")

	verdict := gw.ValidateURL(context.Background(), mustURL(t, "https://internal.example.com/"), policy)
	require.False(t, verdict.Allowed())
	assert.Equal(t, netguard.ReasonPrivateAddressBlocked, verdict.Reason())
}

func TestGateway_RobotsDisallowSurfaces(t *testing.T) {
	resolver := &staticResolver{addrs: map[string][]netip.Addr{
		"docs.example.com": {netip.MustParseAddr("93.184.216.34")},
	}}
	gw, policy := testGateway(t, resolver, "User-agent: *\nDisallow: /private/\n")

	decision, rerr := gw.CheckRobots(
		context.Background(),
		mustURL(t, "https://docs.example.com/private/draft.html"),
		policy,
	)
	require.NotNil(t, rerr)
	assert.False(t, decision.Allowed)
}

func TestGateway_CheckDialAddress(t *testing.T) {
	gw, _ := testGateway(t, &staticResolver{}, "")

	assert.Nil(t, gw.CheckDialAddress("93.184.216.34:443"))
	assert.NotNil(t, gw.CheckDialAddress("127.0.0.1:443"))
	assert.NotNil(t, gw.CheckDialAddress("169.254.169.254:80"))
}

func TestGateway_ValidateArchive(t *testing.T) {
	gw, _ := testGateway(t, &staticResolver{}, "")

	report := gw.ValidateArchive([]archive.Member{
		{Name: "../../etc/passwd", CompressedSize: 1, UncompressedSize: 1},
	}, config.DefaultArchiveLimits())

	require.False(t, report.Clean())
	assert.Equal(t, archive.PathTraversalDetected, report.Violations[0].Kind)
}

func TestGateway_RateSlotBounded(t *testing.T) {
	resolver := &staticResolver{addrs: map[string][]netip.Addr{
		"docs.example.com": {netip.MustParseAddr("93.184.216.34")},
	}}
	gw, _ := testGateway(t, resolver, "")

	policy, err := config.WithDefault().
		WithMaxRequestsPerSecond(1000).
		WithMaxConcurrentRequests(1).
		WithTimeout(30 * time.Millisecond).
		Build()
	require.NoError(t, err)

	slot, lerr := gw.AcquireRateSlot(context.Background(), "docs.example.com", policy)
	require.Nil(t, lerr)

	_, lerr = gw.AcquireRateSlot(context.Background(), "docs.example.com", policy)
	require.NotNil(t, lerr)
	assert.True(t, lerr.IsRateLimitExceeded())

	slot.Release()
}
