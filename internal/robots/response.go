package robots

import (
	"strings"
	"time"
)

// Response represents the parsed content of a robots.txt file.
// This struct is used for parsing the fetch response and should not be
// used directly for decision making - instead, map it to ruleSet.
type Response struct {
	// The origin this robots.txt applies to
	Origin string

	// List of sitemap URLs found in the robots.txt
	Sitemaps []string

	// User agent groups, each containing rules for specific user agents
	Groups []Group
}

// Group represents a set of rules for one or more user agents.
type Group struct {
	// List of user agent tokens this group applies to
	UserAgents []string

	// Path rules in file order; Allow distinguishes allow from disallow
	Rules []Rule

	// Optional crawl delay
	CrawlDelay *time.Duration
}

// Rule represents a single allow or disallow line.
type Rule struct {
	// The path pattern (may include wildcards * and $)
	Path  string
	Allow bool
}

// IsEmpty returns true if the response contains no rules or sitemaps.
func (r Response) IsEmpty() bool {
	if len(r.Sitemaps) > 0 {
		return false
	}
	for _, group := range r.Groups {
		if len(group.Rules) > 0 {
			return false
		}
	}
	return true
}

// bestMatchingGroup finds the most specific user agent group for the
// given user-agent string:
//  1. Exact matches take precedence over everything (case-insensitive)
//  2. The longest token found inside the user-agent wins among partial
//     matches (e.g. a "docmark" group matches the agent
//     "Mozilla/5.0 (compatible; docmark/1.0)")
//  3. The wildcard (*) group applies when nothing else matches
//
// Returns nil when no group matches at all.
func (r Response) bestMatchingGroup(userAgent string) *Group {
	targetLower := strings.ToLower(userAgent)

	var bestMatch *Group
	bestMatchLength := 0

	for i := range r.Groups {
		group := &r.Groups[i]

		for _, ua := range group.UserAgents {
			uaLower := strings.ToLower(ua)

			if uaLower == targetLower {
				return group // Exact match is the best possible
			}

			if ua == "*" {
				if bestMatch == nil {
					bestMatch = group
				}
				continue
			}

			if strings.Contains(targetLower, uaLower) {
				if len(uaLower) > bestMatchLength {
					bestMatch = group
					bestMatchLength = len(uaLower)
				}
			}
		}
	}

	return bestMatch
}
