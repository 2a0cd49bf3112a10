package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohmanhakim/docmark/internal/config"
	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/pkg/hashutil"
)

/*
Fetcher

Responsibilities:
- Retrieve robots.txt for an origin using net/http
- Parse the body into a structured Response
- Map HTTP outcomes to the FetchStatus taxonomy

The Fetcher never decides URL permissions and never touches the cache;
the Engine owns both. Network failures are not errors here: they are a
FetchStatus, because RFC 9309 assigns them decision semantics.
*/

type Fetcher struct {
	httpClient   *http.Client
	metadataSink metadata.MetadataSink
}

// FetchResult represents the outcome of one robots.txt retrieval.
type FetchResult struct {
	Response   Response
	Status     FetchStatus
	FetchedAt  time.Time
	SourceURL  string
	HTTPStatus int
	Digest     string
}

func NewFetcher(metadataSink metadata.MetadataSink) *Fetcher {
	return &Fetcher{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		metadataSink: metadataSink,
	}
}

// NewFetcherWithClient creates a Fetcher with a custom HTTP client.
// This is useful for testing.
func NewFetcherWithClient(metadataSink metadata.MetadataSink, httpClient *http.Client) *Fetcher {
	return &Fetcher{
		httpClient:   httpClient,
		metadataSink: metadataSink,
	}
}

// Fetch retrieves robots.txt for the given origin ("scheme://host[:port]").
func (f *Fetcher) Fetch(ctx context.Context, origin string, policy config.Policy) FetchResult {
	start := time.Now()
	robotsURL := origin + "/robots.txt"

	reqCtx, cancel := context.WithTimeout(ctx, policy.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return f.networkFailure(robotsURL, origin, start, fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set("User-Agent", policy.UserAgent())
	req.Header.Set("Accept", "text/plain,*/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return f.networkFailure(robotsURL, origin, start, fmt.Sprintf("failed to fetch robots.txt: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return f.parseBody(resp, origin, robotsURL, start)

	case resp.StatusCode == http.StatusTooManyRequests:
		// The origin is throttling us; same fail-closed treatment as 5xx.
		return FetchResult{
			Status:     StatusServerError,
			FetchedAt:  start,
			SourceURL:  robotsURL,
			HTTPStatus: resp.StatusCode,
		}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// No robots file exists; no restriction is imposed.
		return FetchResult{
			Response:   Response{Origin: origin, Sitemaps: []string{}, Groups: []Group{}},
			Status:     StatusNotFound,
			FetchedAt:  start,
			SourceURL:  robotsURL,
			HTTPStatus: resp.StatusCode,
		}

	case resp.StatusCode >= 500:
		return FetchResult{
			Status:     StatusServerError,
			FetchedAt:  start,
			SourceURL:  robotsURL,
			HTTPStatus: resp.StatusCode,
		}

	default:
		// 3xx past the client's redirect chain, or anything else odd.
		return f.networkFailure(robotsURL, origin, start,
			fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, robotsURL))
	}
}

func (f *Fetcher) parseBody(resp *http.Response, origin, robotsURL string, start time.Time) FetchResult {
	limitedReader := io.LimitReader(resp.Body, maxRobotsBody+1)
	content, err := io.ReadAll(limitedReader)
	if err != nil {
		return f.networkFailure(robotsURL, origin, start,
			fmt.Sprintf("failed to read robots.txt body: %v", err))
	}
	if len(content) > maxRobotsBody {
		content = content[:maxRobotsBody]
	}

	digest := hashutil.DigestBLAKE3(content)
	parsed := ParseRobotsTxt(string(content), origin)

	f.metadataSink.RecordFetch(robotsURL, resp.StatusCode, time.Since(start), resp.Header.Get("Content-Type"), digest)

	return FetchResult{
		Response:   parsed,
		Status:     StatusLoaded,
		FetchedAt:  time.Now(),
		SourceURL:  robotsURL,
		HTTPStatus: resp.StatusCode,
		Digest:     digest,
	}
}

func (f *Fetcher) networkFailure(robotsURL, origin string, start time.Time, message string) FetchResult {
	f.metadataSink.RecordError(
		time.Now(),
		"robots",
		"Fetcher.Fetch",
		metadata.CauseNetworkFailure,
		message,
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, robotsURL)},
	)
	return FetchResult{
		Status:    StatusNetworkError,
		FetchedAt: start,
		SourceURL: robotsURL,
	}
}
