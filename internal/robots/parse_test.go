package robots

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRobotsTxt_BasicGroups(t *testing.T) {
	content := `User-agent: *
Disallow: /private/
Allow: /private/public.html

User-agent: docmark
Disallow: /internal/
Crawl-delay: 2
`

	response := ParseRobotsTxt(content, "https://example.com")

	require.Len(t, response.Groups, 2)

	assert.Equal(t, []string{"*"}, response.Groups[0].UserAgents)
	require.Len(t, response.Groups[0].Rules, 2)
	assert.Equal(t, "/private/", response.Groups[0].Rules[0].Path)
	assert.False(t, response.Groups[0].Rules[0].Allow)
	assert.True(t, response.Groups[0].Rules[1].Allow)
	assert.Nil(t, response.Groups[0].CrawlDelay)

	assert.Equal(t, []string{"docmark"}, response.Groups[1].UserAgents)
	require.NotNil(t, response.Groups[1].CrawlDelay)
	assert.Equal(t, 2*time.Second, *response.Groups[1].CrawlDelay)
}

func TestParseRobotsTxt_ConsecutiveUserAgentsShareGroup(t *testing.T) {
	content := `User-agent: botA
User-agent: botB
Disallow: /shared/
`

	response := ParseRobotsTxt(content, "https://example.com")

	require.Len(t, response.Groups, 1)
	assert.Equal(t, []string{"botA", "botB"}, response.Groups[0].UserAgents)
	require.Len(t, response.Groups[0].Rules, 1)
}

func TestParseRobotsTxt_CommentsAndBlankLines(t *testing.T) {
	content := `# preamble comment

User-agent: * # inline comment
Disallow: /a/ # another
# standalone

Disallow: /b/
`

	response := ParseRobotsTxt(content, "https://example.com")

	require.Len(t, response.Groups, 1)
	require.Len(t, response.Groups[0].Rules, 2)
	assert.Equal(t, "/a/", response.Groups[0].Rules[0].Path)
	assert.Equal(t, "/b/", response.Groups[0].Rules[1].Path)
}

func TestParseRobotsTxt_MalformedLinesAreSkipped(t *testing.T) {
	content := `User-agent: *
this line has no colon
Disallow /no-colon-either
Unknown-directive: whatever
Disallow: /kept/
`

	response := ParseRobotsTxt(content, "https://example.com")

	require.Len(t, response.Groups, 1)
	require.Len(t, response.Groups[0].Rules, 1)
	assert.Equal(t, "/kept/", response.Groups[0].Rules[0].Path)
}

func TestParseRobotsTxt_RulesOutsideGroupsIgnored(t *testing.T) {
	content := `Disallow: /orphan/
User-agent: *
Disallow: /adopted/
`

	response := ParseRobotsTxt(content, "https://example.com")

	require.Len(t, response.Groups, 1)
	require.Len(t, response.Groups[0].Rules, 1)
	assert.Equal(t, "/adopted/", response.Groups[0].Rules[0].Path)
}

func TestParseRobotsTxt_Sitemaps(t *testing.T) {
	content := `Sitemap: https://example.com/sitemap.xml
User-agent: *
Disallow:
Sitemap: https://example.com/news.xml
`

	response := ParseRobotsTxt(content, "https://example.com")

	assert.Equal(t, []string{
		"https://example.com/sitemap.xml",
		"https://example.com/news.xml",
	}, response.Sitemaps)
}

func TestParseRobotsTxt_CrawlDelayFractionalAndInvalid(t *testing.T) {
	content := `User-agent: a
Crawl-delay: 0.5

User-agent: b
Crawl-delay: soon

User-agent: c
Crawl-delay: -3
`

	response := ParseRobotsTxt(content, "https://example.com")

	require.Len(t, response.Groups, 3)
	require.NotNil(t, response.Groups[0].CrawlDelay)
	assert.Equal(t, 500*time.Millisecond, *response.Groups[0].CrawlDelay)
	assert.Nil(t, response.Groups[1].CrawlDelay)
	assert.Nil(t, response.Groups[2].CrawlDelay)
}

func TestParseRobotsTxt_StripsLeadingBOM(t *testing.T) {
	content := "\ufeff" + `User-agent: *
Disallow: /private/
`

	response := ParseRobotsTxt(content, "https://example.com")

	require.Len(t, response.Groups, 1)
	assert.Equal(t, []string{"*"}, response.Groups[0].UserAgents)
	require.Len(t, response.Groups[0].Rules, 1)
	assert.Equal(t, "/private/", response.Groups[0].Rules[0].Path)
}

func TestParseRobotsTxt_BodyCappedAt500KiB(t *testing.T) {
	head := "User-agent: *\nDisallow: /early/\n"
	padding := strings.Repeat("# padding line to push past the cap\n", 20_000)
	tail := "Disallow: /late/\n"
	content := head + padding + tail
	require.Greater(t, len(content), maxRobotsBody)

	response := ParseRobotsTxt(content, "https://example.com")

	require.Len(t, response.Groups, 1)
	require.Len(t, response.Groups[0].Rules, 1)
	assert.Equal(t, "/early/", response.Groups[0].Rules[0].Path)
}

func TestParseRobotsTxt_EmptyBody(t *testing.T) {
	response := ParseRobotsTxt("", "https://example.com")

	assert.True(t, response.IsEmpty())
	assert.Empty(t, response.Groups)
}

func TestBestMatchingGroup_Precedence(t *testing.T) {
	response := ParseRobotsTxt(`User-agent: *
Disallow: /wildcard/

User-agent: doc
Disallow: /prefix/

User-agent: docmark
Disallow: /exact/
`, "https://example.com")

	exact := response.bestMatchingGroup("docmark")
	require.NotNil(t, exact)
	assert.Equal(t, "/exact/", exact.Rules[0].Path)

	// No exact group: the longest matching prefix group wins
	prefix := response.bestMatchingGroup("doctool")
	require.NotNil(t, prefix)
	assert.Equal(t, "/prefix/", prefix.Rules[0].Path)

	// Nothing matches by name: fall back to the wildcard group
	wildcard := response.bestMatchingGroup("unrelated")
	require.NotNil(t, wildcard)
	assert.Equal(t, "/wildcard/", wildcard.Rules[0].Path)
}

func TestBestMatchingGroup_TokenInsideFullUserAgent(t *testing.T) {
	response := ParseRobotsTxt(`User-agent: *
Disallow: /wildcard/

User-agent: docmark
Disallow: /private/
`, "https://example.com")

	// A product token buried in a full user-agent string still selects
	// its group instead of falling through to the wildcard.
	group := response.bestMatchingGroup("Mozilla/5.0 (compatible; docmark/1.0)")
	require.NotNil(t, group)
	assert.Equal(t, "/private/", group.Rules[0].Path)
}

func TestBestMatchingGroup_CaseInsensitive(t *testing.T) {
	response := ParseRobotsTxt(`User-agent: DocMark
Disallow: /x/
`, "https://example.com")

	group := response.bestMatchingGroup("docmark")
	require.NotNil(t, group)
}
