package robots

import "strings"

/*
Path matching per RFC 9309 section 2.2.2-2.2.3:

- Patterns match from the start of the path
- '*' matches any sequence of characters, including none
- '$' at the end of a pattern anchors it to the end of the path
- The most specific match wins, where specificity is pattern length
- At equal specificity, Allow wins over Disallow
*/

// decidePath evaluates the rule set against a request target
// (path plus optional query) and returns the decision reason.
func (r ruleSet) decidePath(target string) DecisionReason {
	if !r.matchedGroup {
		if r.hasGroups {
			return UserAgentNotMatched
		}
		return NoMatchingRules
	}

	var (
		matched   bool
		bestLen   = -1
		bestAllow bool
	)

	for _, rule := range r.rules {
		if !patternMatches(rule.pattern, target) {
			continue
		}
		length := specificity(rule.pattern)
		switch {
		case length > bestLen:
			matched = true
			bestLen = length
			bestAllow = rule.allow
		case length == bestLen && rule.allow:
			// Allow takes precedence at equal length
			bestAllow = true
		}
	}

	if !matched {
		return NoMatchingRules
	}
	if bestAllow {
		return AllowedByRobots
	}
	return DisallowedByRobots
}

// specificity is the octet length of the pattern, not counting the
// end-of-path anchor.
func specificity(pattern string) int {
	return len(strings.TrimSuffix(pattern, "$"))
}

// patternMatches reports whether pattern matches target from the start.
// Without a '$' anchor the pattern only needs to match a prefix of the
// target; with the anchor it must consume the target entirely.
func patternMatches(pattern, target string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}
	return globMatch(pattern, target, anchored)
}

// globMatch matches '*' against any run of characters. Robots patterns
// are short, so plain backtracking is plenty.
func globMatch(pattern, target string, exact bool) bool {
	if pattern == "" {
		return !exact || target == ""
	}
	if pattern[0] == '*' {
		for j := 0; j <= len(target); j++ {
			if globMatch(pattern[1:], target[j:], exact) {
				return true
			}
		}
		return false
	}
	if target == "" || target[0] != pattern[0] {
		return false
	}
	return globMatch(pattern[1:], target[1:], exact)
}
