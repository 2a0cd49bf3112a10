package robots

import (
	"bufio"
	"strconv"
	"strings"
	"time"
)

// maxRobotsBody caps how much of a robots.txt body is parsed, per RFC
// 9309's 500 KiB guidance. Content beyond the cap is ignored.
const maxRobotsBody = 500 * 1024

// ParseRobotsTxt parses robots.txt content into a structured Response.
// Unknown directives and malformed lines are skipped, never fatal: a
// hostile or broken robots.txt must degrade to "fewer rules", not to a
// parse failure that would change the decision semantics.
func ParseRobotsTxt(content, origin string) Response {
	if len(content) > maxRobotsBody {
		content = content[:maxRobotsBody]
	}
	content = strings.TrimPrefix(content, "\uFEFF") // UTF-8 BOM

	response := Response{
		Origin:   origin,
		Sitemaps: []string{},
		Groups:   []Group{},
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	var currentGroup *Group
	sawDirective := false

	flush := func() {
		if currentGroup != nil {
			response.Groups = append(response.Groups, *currentGroup)
			currentGroup = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Remove comments (everything after #)
		if idx := strings.Index(line, "#"); idx != -1 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx == -1 {
			continue // Invalid line, skip
		}

		field := strings.ToLower(strings.TrimSpace(line[:colonIdx]))
		value := strings.TrimSpace(line[colonIdx+1:])

		switch field {
		case "user-agent":
			if currentGroup != nil && !sawDirective {
				// Consecutive user-agent lines share one group
				currentGroup.UserAgents = append(currentGroup.UserAgents, value)
				continue
			}
			flush()
			currentGroup = &Group{
				UserAgents: []string{value},
				Rules:      []Rule{},
			}
			sawDirective = false

		case "allow":
			sawDirective = true
			if currentGroup != nil {
				currentGroup.Rules = append(currentGroup.Rules, Rule{Path: value, Allow: true})
			}

		case "disallow":
			sawDirective = true
			if currentGroup != nil {
				currentGroup.Rules = append(currentGroup.Rules, Rule{Path: value, Allow: false})
			}

		case "crawl-delay":
			// An unparseable value still separates user-agent lines into
			// distinct groups.
			sawDirective = true
			if currentGroup != nil {
				if seconds, err := strconv.ParseFloat(value, 64); err == nil && seconds >= 0 {
					delay := time.Duration(seconds * float64(time.Second))
					currentGroup.CrawlDelay = &delay
				}
			}

		case "sitemap":
			// Sitemaps are global and not tied to any user-agent
			if value != "" {
				response.Sitemaps = append(response.Sitemaps, value)
			}
		}
	}

	flush()

	return response
}
