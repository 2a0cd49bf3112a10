package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Policy is the per-operation security policy consulted by the gateway.
// It is immutable for the duration of a validation call: no gateway
// component mutates it, and getters return copies of reference types.
type Policy struct {
	//===============
	// Remote fetch
	//===============
	// Master switch. When false every URL validation fails closed,
	// independent of any allowlist.
	allowRemoteFetch bool
	// Whitelisted hostnames. nil means all hosts are allowed subject only
	// to address-class checks; an empty (non-nil) set denies every host.
	allowedHosts map[string]struct{}
	// When true, an allowlist entry also matches subdomains that share the
	// entry's registrable domain (e.g. "example.com" matches "cdn.example.com").
	matchHostSuffix bool
	// Reject plain http URLs.
	requireHTTPS bool

	//===============
	// Limits
	//===============
	// Maximum time of a single fetch request, and the bound on any
	// rate-limiter or crawl-delay wait.
	timeout time.Duration
	// Maximum number of bytes read from a single remote asset.
	maxAssetBytes int64
	// Token-bucket refill rate per host.
	maxRequestsPerSecond float64
	// Hard cap on simultaneously in-flight requests per host.
	maxConcurrentRequests int

	//===============
	// Identity
	//===============
	// Sent as the User-Agent header and used as the robots.txt
	// group-matching key. In raw string.
	userAgent string

	//===============
	// Robots
	//===============
	// How a robots.txt disallow is surfaced: strict, warn, or ignore.
	robotsMode RobotsMode
}

// RobotsMode controls how disallow decisions from robots.txt are applied.
type RobotsMode string

const (
	// RobotsStrict converts a disallow into an error the caller must surface.
	RobotsStrict RobotsMode = "strict"
	// RobotsWarn records the disallow and proceeds.
	RobotsWarn RobotsMode = "warn"
	// RobotsIgnore skips robots.txt entirely, including the fetch.
	RobotsIgnore RobotsMode = "ignore"
)

// ArchiveLimits bounds archive validation.
type ArchiveLimits struct {
	// Maximum allowed uncompressed/compressed ratio for a single member.
	maxCompressionRatio float64
	// Maximum allowed total uncompressed size across all members.
	maxUncompressedSize uint64
	// Maximum number of members; 0 means unlimited.
	maxMemberCount int
}

type policyDTO struct {
	AllowRemoteFetch      *bool         `json:"allowRemoteFetch,omitempty"`
	AllowedHosts          []string      `json:"allowedHosts,omitempty"`
	MatchHostSuffix       bool          `json:"matchHostSuffix,omitempty"`
	RequireHTTPS          bool          `json:"requireHttps,omitempty"`
	Timeout               time.Duration `json:"timeout,omitempty"`
	MaxAssetBytes         int64         `json:"maxAssetBytes,omitempty"`
	MaxRequestsPerSecond  float64       `json:"maxRequestsPerSecond,omitempty"`
	MaxConcurrentRequests int           `json:"maxConcurrentRequests,omitempty"`
	UserAgent             string        `json:"userAgent,omitempty"`
	RobotsMode            string        `json:"robotsMode,omitempty"`
	ArchiveLimits         *archiveDTO   `json:"archiveLimits,omitempty"`
}

type archiveDTO struct {
	MaxCompressionRatio float64 `json:"maxCompressionRatio,omitempty"`
	MaxUncompressedSize uint64  `json:"maxUncompressedSize,omitempty"`
	MaxMemberCount      int     `json:"maxMemberCount,omitempty"`
}

// WithDefault creates a new Policy with conservative default values.
// Remote fetching is enabled but subject to every guard; no allowlist
// is set, so only address-class checks constrain hosts.
func WithDefault() *Policy {
	defaultPolicy := Policy{
		allowRemoteFetch:      true,
		allowedHosts:          nil,
		matchHostSuffix:       false,
		requireHTTPS:          false,
		timeout:               10 * time.Second,
		maxAssetBytes:         10 * 1024 * 1024,
		maxRequestsPerSecond:  2.0,
		maxConcurrentRequests: 4,
		userAgent:             "docmark/1.0",
		robotsMode:            RobotsStrict,
	}
	return &defaultPolicy
}

// DefaultArchiveLimits returns the default archive validation bounds.
func DefaultArchiveLimits() ArchiveLimits {
	return ArchiveLimits{
		maxCompressionRatio: 100.0,
		maxUncompressedSize: 1 << 30, // 1 GiB
		maxMemberCount:      10_000,
	}
}

// NewArchiveLimits constructs explicit archive bounds.
func NewArchiveLimits(maxRatio float64, maxTotal uint64, maxMembers int) ArchiveLimits {
	return ArchiveLimits{
		maxCompressionRatio: maxRatio,
		maxUncompressedSize: maxTotal,
		maxMemberCount:      maxMembers,
	}
}

// WithPolicyFile reads a Policy (and optional archive limits) from a JSON file.
func WithPolicyFile(path string) (Policy, ArchiveLimits, error) {
	if _, err := os.Stat(path); err != nil {
		return Policy{}, ArchiveLimits{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, ArchiveLimits{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	dto := policyDTO{}
	if err := json.Unmarshal(content, &dto); err != nil {
		return Policy{}, ArchiveLimits{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newPolicyFromDTO(dto)
}

func newPolicyFromDTO(dto policyDTO) (Policy, ArchiveLimits, error) {
	policy := *WithDefault()

	if dto.AllowRemoteFetch != nil {
		policy.allowRemoteFetch = *dto.AllowRemoteFetch
	}
	// A present-but-empty list is meaningful: it denies everything.
	if dto.AllowedHosts != nil {
		policy = *policy.WithAllowedHosts(hostSet(dto.AllowedHosts))
	}
	policy.matchHostSuffix = dto.MatchHostSuffix
	policy.requireHTTPS = dto.RequireHTTPS
	if dto.Timeout != 0 {
		policy.timeout = dto.Timeout
	}
	if dto.MaxAssetBytes != 0 {
		policy.maxAssetBytes = dto.MaxAssetBytes
	}
	if dto.MaxRequestsPerSecond != 0 {
		policy.maxRequestsPerSecond = dto.MaxRequestsPerSecond
	}
	if dto.MaxConcurrentRequests != 0 {
		policy.maxConcurrentRequests = dto.MaxConcurrentRequests
	}
	if dto.UserAgent != "" {
		policy.userAgent = dto.UserAgent
	}
	if dto.RobotsMode != "" {
		mode := RobotsMode(dto.RobotsMode)
		if mode != RobotsStrict && mode != RobotsWarn && mode != RobotsIgnore {
			return Policy{}, ArchiveLimits{}, fmt.Errorf("%w: unknown robots mode %q", ErrInvalidConfig, dto.RobotsMode)
		}
		policy.robotsMode = mode
	}

	limits := DefaultArchiveLimits()
	if dto.ArchiveLimits != nil {
		if dto.ArchiveLimits.MaxCompressionRatio != 0 {
			limits.maxCompressionRatio = dto.ArchiveLimits.MaxCompressionRatio
		}
		if dto.ArchiveLimits.MaxUncompressedSize != 0 {
			limits.maxUncompressedSize = dto.ArchiveLimits.MaxUncompressedSize
		}
		if dto.ArchiveLimits.MaxMemberCount != 0 {
			limits.maxMemberCount = dto.ArchiveLimits.MaxMemberCount
		}
	}

	if err := policy.validate(); err != nil {
		return Policy{}, ArchiveLimits{}, err
	}
	return policy, limits, nil
}

func hostSet(hosts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}

func (p *Policy) validate() error {
	if p.timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if p.maxAssetBytes <= 0 {
		return fmt.Errorf("%w: maxAssetBytes must be positive", ErrInvalidConfig)
	}
	if p.maxRequestsPerSecond <= 0 {
		return fmt.Errorf("%w: maxRequestsPerSecond must be positive", ErrInvalidConfig)
	}
	if p.maxConcurrentRequests <= 0 {
		return fmt.Errorf("%w: maxConcurrentRequests must be positive", ErrInvalidConfig)
	}
	if p.userAgent == "" {
		return fmt.Errorf("%w: userAgent cannot be empty", ErrInvalidConfig)
	}
	return nil
}

// Build validates the policy under construction and returns it by value.
func (p *Policy) Build() (Policy, error) {
	if err := p.validate(); err != nil {
		return Policy{}, err
	}
	return *p, nil
}

func (p *Policy) WithAllowRemoteFetch(allow bool) *Policy {
	p.allowRemoteFetch = allow
	return p
}

// WithAllowedHosts sets the host allowlist. Passing nil removes the
// allowlist (all hosts allowed subject to address-class checks); passing
// an empty non-nil set denies every host.
func (p *Policy) WithAllowedHosts(hosts map[string]struct{}) *Policy {
	if hosts == nil {
		p.allowedHosts = nil
		return p
	}
	copied := make(map[string]struct{}, len(hosts))
	for h := range hosts {
		copied[h] = struct{}{}
	}
	p.allowedHosts = copied
	return p
}

func (p *Policy) WithMatchHostSuffix(match bool) *Policy {
	p.matchHostSuffix = match
	return p
}

func (p *Policy) WithRequireHTTPS(require bool) *Policy {
	p.requireHTTPS = require
	return p
}

func (p *Policy) WithTimeout(timeout time.Duration) *Policy {
	p.timeout = timeout
	return p
}

func (p *Policy) WithMaxAssetBytes(maxBytes int64) *Policy {
	p.maxAssetBytes = maxBytes
	return p
}

func (p *Policy) WithMaxRequestsPerSecond(rps float64) *Policy {
	p.maxRequestsPerSecond = rps
	return p
}

func (p *Policy) WithMaxConcurrentRequests(n int) *Policy {
	p.maxConcurrentRequests = n
	return p
}

func (p *Policy) WithUserAgent(userAgent string) *Policy {
	p.userAgent = userAgent
	return p
}

func (p *Policy) WithRobotsMode(mode RobotsMode) *Policy {
	p.robotsMode = mode
	return p
}

func (p Policy) AllowRemoteFetch() bool {
	return p.allowRemoteFetch
}

// HasAllowlist reports whether an allowlist is configured at all.
// An empty allowlist is still an allowlist: it denies everything.
func (p Policy) HasAllowlist() bool {
	return p.allowedHosts != nil
}

// AllowedHosts returns a copy of the allowlist, or nil if none is set.
func (p Policy) AllowedHosts() map[string]struct{} {
	if p.allowedHosts == nil {
		return nil
	}
	copied := make(map[string]struct{}, len(p.allowedHosts))
	for h := range p.allowedHosts {
		copied[h] = struct{}{}
	}
	return copied
}

func (p Policy) MatchHostSuffix() bool {
	return p.matchHostSuffix
}

func (p Policy) RequireHTTPS() bool {
	return p.requireHTTPS
}

func (p Policy) Timeout() time.Duration {
	return p.timeout
}

func (p Policy) MaxAssetBytes() int64 {
	return p.maxAssetBytes
}

func (p Policy) MaxRequestsPerSecond() float64 {
	return p.maxRequestsPerSecond
}

func (p Policy) MaxConcurrentRequests() int {
	return p.maxConcurrentRequests
}

func (p Policy) UserAgent() string {
	return p.userAgent
}

func (p Policy) RobotsMode() RobotsMode {
	return p.robotsMode
}

func (l ArchiveLimits) MaxCompressionRatio() float64 {
	return l.maxCompressionRatio
}

func (l ArchiveLimits) MaxUncompressedSize() uint64 {
	return l.maxUncompressedSize
}

func (l ArchiveLimits) MaxMemberCount() int {
	return l.maxMemberCount
}
