package robots

import (
	"strings"
	"time"

	"github.com/rohmanhakim/docmark/pkg/timeutil"
)

// mapResponseToRuleSet converts a Response to an immutable ruleSet.
// It selects the most specific user agent group matching the provided
// user agent string and creates a ruleSet from that group's rules.
func mapResponseToRuleSet(response Response, targetUserAgent string, fetchedAt time.Time, digest string) ruleSet {
	rs := ruleSet{
		origin:    response.Origin,
		userAgent: targetUserAgent,
		fetchedAt: fetchedAt,
		sourceURL: response.Origin + "/robots.txt",
		digest:    digest,
	}

	rs.hasGroups = len(response.Groups) > 0

	group := response.bestMatchingGroup(targetUserAgent)
	if group == nil {
		return rs
	}
	rs.matchedGroup = true

	rs.rules = make([]pathRule, 0, len(group.Rules))
	for _, rule := range group.Rules {
		// An empty Disallow line means "no restriction"; it contributes
		// nothing to matching. An empty Allow line likewise.
		if rule.Path == "" {
			continue
		}
		rs.rules = append(rs.rules, pathRule{
			pattern: normalizePattern(rule.Path),
			allow:   rule.Allow,
		})
	}

	if group.CrawlDelay != nil {
		rs.crawlDelay = timeutil.DurationPtr(*group.CrawlDelay)
	}

	return rs
}

// normalizePattern ensures the pattern starts with "/" unless it starts
// with a wildcard.
func normalizePattern(pattern string) string {
	if pattern == "" {
		return "/"
	}
	if !strings.HasPrefix(pattern, "/") && !strings.HasPrefix(pattern, "*") {
		pattern = "/" + pattern
	}
	return pattern
}
