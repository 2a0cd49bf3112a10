package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/rohmanhakim/docmark/internal/config"
	"github.com/rohmanhakim/docmark/internal/gateway"
	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/pkg/hashutil"
	"github.com/rohmanhakim/docmark/pkg/timeutil"
)

/*
Responsibilities

- Perform HTTP requests, but only after the gateway approves each step
- Apply headers, timeouts, and the response size cap
- Re-check the dialed address at connect time
- Classify responses

Fetch Semantics

- Every fetch passes URL validation, then rate acquisition
- Document fetches additionally pass the robots check; asset fetches do not
- The TCP dial re-classifies the resolved address, so a DNS answer that
  changed since validation cannot reach a private network
- All responses are logged with metadata

The fetcher never parses content; it only returns bytes and metadata.
*/

// Retry pacing for transient failures (network errors, 5xx, 429).
var defaultBackoff = timeutil.NewBackoffParam(500*time.Millisecond, 2.0, 8*time.Second)

const defaultRetryJitter = 250 * time.Millisecond

type GatedFetcher struct {
	gateway      *gateway.Gateway
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	rng          *rand.Rand
	backoff      timeutil.BackoffParam
	retryJitter  time.Duration
}

func NewGatedFetcher(
	metadataSink metadata.MetadataSink,
	gw *gateway.Gateway,
) *GatedFetcher {
	return &GatedFetcher{
		gateway:      gw,
		metadataSink: metadataSink,
		httpClient:   guardedClient(gw),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		backoff:      defaultBackoff,
		retryJitter:  defaultRetryJitter,
	}
}

// NewGatedFetcherWithClient creates a GatedFetcher with a custom HTTP
// client. This is useful for testing. The client's transport does not
// re-check dialed addresses; production callers use NewGatedFetcher.
func NewGatedFetcherWithClient(
	metadataSink metadata.MetadataSink,
	gw *gateway.Gateway,
	httpClient *http.Client,
) *GatedFetcher {
	return &GatedFetcher{
		gateway:      gw,
		metadataSink: metadataSink,
		httpClient:   httpClient,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		backoff:      defaultBackoff,
		retryJitter:  defaultRetryJitter,
	}
}

// guardedClient builds an HTTP client whose dialer re-classifies the
// address of every outbound connection, including redirects.
func guardedClient(gw *gateway.Gateway) *http.Client {
	dialer := &net.Dialer{
		Control: func(network, address string, _ syscall.RawConn) error {
			if guardErr := gw.CheckDialAddress(address); guardErr != nil {
				return guardErr
			}
			return nil
		},
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:       dialer.DialContext,
			ForceAttemptHTTP2: true,
		},
	}
}

// Fetch retrieves one URL through the full guard sequence. kind decides
// whether the robots check applies: KindDocument does, KindAsset does not.
func (g *GatedFetcher) Fetch(
	ctx context.Context,
	fetchUrl url.URL,
	policy config.Policy,
	kind Kind,
) (FetchResult, *FetchError) {
	callerMethod := "GatedFetcher.Fetch"

	verdict := g.gateway.ValidateURL(ctx, fetchUrl, policy)
	if !verdict.Allowed() {
		return FetchResult{}, g.failedFetch(callerMethod, fetchUrl, &FetchError{
			Message:   fmt.Sprintf("%s: %s (%s)", fetchUrl.String(), verdict.Reason(), verdict.Detail()),
			Retryable: false,
			Cause:     ErrCauseURLDenied,
		})
	}

	slot, limitErr := g.gateway.AcquireRateSlot(ctx, fetchUrl.Hostname(), policy)
	if limitErr != nil {
		return FetchResult{}, g.failedFetch(callerMethod, fetchUrl, &FetchError{
			Message:   limitErr.Message,
			Retryable: limitErr.IsRateLimitExceeded(),
			Cause:     ErrCauseRateLimited,
		})
	}
	defer slot.Release()

	var warned bool
	if kind == KindDocument {
		decision, robotsErr := g.gateway.CheckRobots(ctx, fetchUrl, policy)
		if robotsErr != nil {
			return FetchResult{}, g.failedFetch(callerMethod, fetchUrl, &FetchError{
				Message:   robotsErr.Message,
				Retryable: robotsErr.Retryable,
				Cause:     ErrCauseRobotsDisallowed,
			})
		}
		warned = decision.Warned
	}

	result, fetchErr := g.doRequest(ctx, fetchUrl, policy)
	if fetchErr != nil {
		return FetchResult{}, g.failedFetch(callerMethod, fetchUrl, fetchErr)
	}

	result.meta.robotsWarned = warned
	return result, nil
}

// FetchWithRetry wraps Fetch with exponential backoff on retryable
// failures. attempts is the total try count, including the first; the
// final error is the last attempt's. Policy denials never retry: a
// verdict does not change between attempts, only the network does.
func (g *GatedFetcher) FetchWithRetry(
	ctx context.Context,
	fetchUrl url.URL,
	policy config.Policy,
	kind Kind,
	attempts int,
) (FetchResult, *FetchError) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr *FetchError
	for attempt := 1; attempt <= attempts; attempt++ {
		result, fetchErr := g.Fetch(ctx, fetchUrl, policy, kind)
		if fetchErr == nil {
			return result, nil
		}
		lastErr = fetchErr

		if !fetchErr.IsRetryable() || attempt == attempts {
			break
		}

		delay := timeutil.ExponentialBackoffDelay(g.backoff, attempt, g.rng, g.retryJitter)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return FetchResult{}, lastErr
		}
	}

	return FetchResult{}, lastErr
}

// SetBackoffForTest overrides the retry pacing. This allows tests to
// retry without real-time delays.
func (g *GatedFetcher) SetBackoffForTest(param timeutil.BackoffParam, jitter time.Duration) {
	g.backoff = param
	g.retryJitter = jitter
}

func (g *GatedFetcher) doRequest(ctx context.Context, fetchUrl url.URL, policy config.Policy) (FetchResult, *FetchError) {
	reqCtx, cancel := context.WithTimeout(ctx, policy.Timeout())
	defer cancel()

	startTime := time.Now()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("build request for %s: %v", fetchUrl.String(), err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	req.Header.Set("User-Agent", policy.UserAgent())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		cause := FetchErrorCause(ErrCauseNetworkFailure)
		if errors.Is(err, context.DeadlineExceeded) {
			cause = ErrCauseTimeout
		}
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("GET %s: %v", fetchUrl.String(), err),
			Retryable: true,
			Cause:     cause,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("GET %s: status %d", fetchUrl.String(), resp.StatusCode),
			Retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Cause:     ErrCauseRequestFailed,
		}
	}

	// Read one byte past the cap to tell "exactly at the cap" from "over it"
	body, err := io.ReadAll(io.LimitReader(resp.Body, policy.MaxAssetBytes()+1))
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("read body of %s: %v", fetchUrl.String(), err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}
	if int64(len(body)) > policy.MaxAssetBytes() {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("%s: body exceeds %d bytes", fetchUrl.String(), policy.MaxAssetBytes()),
			Retryable: false,
			Cause:     ErrCauseBodyTooLarge,
		}
	}

	digest := hashutil.DigestBLAKE3(body)

	contentType := resp.Header.Get("Content-Type")

	g.metadataSink.RecordFetch(
		fetchUrl.String(),
		resp.StatusCode,
		time.Since(startTime),
		contentType,
		digest,
	)

	return FetchResult{
		url:  fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			contentType:         contentType,
			transferredSizeByte: uint64(len(body)),
			bodyDigest:          digest,
		},
	}, nil
}

func (g *GatedFetcher) failedFetch(callerMethod string, fetchUrl url.URL, fetchErr *FetchError) *FetchError {
	g.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		mapFetchErrorToMetadataCause(fetchErr),
		fetchErr.Message,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
		},
	)
	return fetchErr
}
