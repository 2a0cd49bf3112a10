package robots

import (
	"net/url"
	"time"

	"github.com/rohmanhakim/docmark/pkg/timeutil"
)

// Permission modeling

// FetchStatus is the outcome of the most recent robots.txt retrieval for
// an origin. It drives the fail-open/fail-closed decision semantics.
type FetchStatus int

const (
	// StatusLoaded: a robots.txt body was retrieved and parsed.
	StatusLoaded FetchStatus = iota
	// StatusNotFound: the origin answered 4xx; absence of a robots file
	// imposes no restriction.
	StatusNotFound
	// StatusServerError: the origin answered 5xx (or 429); it cannot
	// currently state its policy, so everything is disallowed until the
	// cache entry expires.
	StatusServerError
	// StatusNetworkError: DNS failure, connection refused, or timeout;
	// per RFC 9309 transient connectivity problems are not a block.
	StatusNetworkError
)

func (s FetchStatus) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusNotFound:
		return "not_found"
	case StatusServerError:
		return "server_error"
	case StatusNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

type pathRule struct {
	pattern string
	allow   bool
}

// Pattern returns the raw path pattern for this rule.
func (p pathRule) Pattern() string {
	return p.pattern
}

func (p pathRule) Allow() bool {
	return p.allow
}

type ruleSet struct {
	origin string

	// The user-agent these rules apply to (resolved, not raw)
	userAgent string

	// Path-based rules from the selected group, in file order.
	// Precedence is by longest pattern match, not file order.
	rules []pathRule

	// Optional crawl delay from robots.txt
	crawlDelay *time.Duration

	// Metadata / observability
	fetchedAt time.Time
	sourceURL string
	digest    string

	// matchedGroup indicates if a user-agent group was matched in robots.txt
	// This is false when no group matches (not even wildcard *)
	matchedGroup bool

	// hasGroups indicates if the robots.txt file had any user-agent groups at all
	// This is false when the response had no groups (e.g., 404 or empty file)
	hasGroups bool
}

// ruleSet getters for immutability

func (r ruleSet) Origin() string {
	return r.origin
}

func (r ruleSet) UserAgent() string {
	return r.userAgent
}

func (r ruleSet) FetchedAt() time.Time {
	return r.fetchedAt
}

func (r ruleSet) SourceURL() string {
	return r.sourceURL
}

// Digest returns the content hash of the robots.txt body this rule set
// was parsed from. Observational; lets a run detect policy changes.
func (r ruleSet) Digest() string {
	return r.digest
}

func (r ruleSet) CrawlDelay() *time.Duration {
	if r.crawlDelay == nil {
		return nil
	}
	return timeutil.DurationPtr(*r.crawlDelay)
}

// Rules returns a copy of the selected group's path rules.
func (r ruleSet) Rules() []pathRule {
	result := make([]pathRule, len(r.rules))
	copy(result, r.rules)
	return result
}

type DecisionReason string

const (
	AllowedByRobots       DecisionReason = "allowed_by_robots"
	DisallowedByRobots    DecisionReason = "disallowed_by_robots"
	UserAgentNotMatched   DecisionReason = "user_agent_not_matched"
	NoMatchingRules       DecisionReason = "no_matching_rules"
	NoRobotsFile          DecisionReason = "no_robots_file"
	ServerErrorFailClosed DecisionReason = "server_error_fail_closed"
	NetworkErrorFailOpen  DecisionReason = "network_error_fail_open"
	RobotsIgnored         DecisionReason = "robots_ignored"
	DisallowWarned        DecisionReason = "disallow_warned"
)

type Decision struct {
	Url url.URL

	Allowed bool

	// Warned is set when mode=warn converted a disallow into an allow.
	Warned bool

	// Why this decision was made (for logging/debugging)
	Reason DecisionReason

	// Optional delay override (robots crawl-delay)
	CrawlDelay *time.Duration
}
