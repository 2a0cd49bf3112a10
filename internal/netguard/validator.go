package netguard

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/rohmanhakim/docmark/internal/config"
	"github.com/rohmanhakim/docmark/internal/metadata"
)

/*
Responsibilities

- Decide allow/deny for a single candidate URL against a Policy
- Classify every resolved address of the candidate host
- Enforce the host allowlist (exact or registrable-domain suffix)

The validator holds no mutable state and requires no locking. It is the
first guard on every remote fetch path; a URL that fails here must never
reach the rate limiter or the network.
*/

// KillSwitchEnv is the environment-level kill switch. When set to any
// non-empty value, every Validate call denies with remote_fetch_disabled
// before any other check runs.
const KillSwitchEnv = "DOCMARK_NO_NETWORK"

// Resolver resolves a hostname to IP addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

type Validator struct {
	resolver     Resolver
	metadataSink metadata.MetadataSink
	getenv       func(string) string
}

func NewValidator(metadataSink metadata.MetadataSink) *Validator {
	return &Validator{
		resolver:     net.DefaultResolver,
		metadataSink: metadataSink,
		getenv:       os.Getenv,
	}
}

// NewValidatorWithResolver creates a Validator with a custom resolver and
// environment lookup. This is useful for testing.
func NewValidatorWithResolver(
	metadataSink metadata.MetadataSink,
	resolver Resolver,
	getenv func(string) string,
) *Validator {
	return &Validator{
		resolver:     resolver,
		metadataSink: metadataSink,
		getenv:       getenv,
	}
}

// Validate decides allow/deny for one URL under one policy.
// Checks short-circuit on the first failure, in this order:
// kill switch, scheme allowlist, https requirement, remote-fetch master
// switch, resolved address classes, host allowlist.
//
// A hostname resolving to multiple addresses is denied if ANY address is
// non-public: a multi-A-record answer mixing public and private addresses
// is a rebinding setup, not a legitimate CDN.
func (v *Validator) Validate(ctx context.Context, u url.URL, policy config.Policy) Verdict {
	if v.getenv(KillSwitchEnv) != "" {
		return v.deny(u, ReasonRemoteFetchDisabled, "kill switch is set")
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return v.deny(u, ReasonSchemeBlocked, fmt.Sprintf("scheme %q is not http or https", u.Scheme))
	}

	if policy.RequireHTTPS() && scheme == "http" {
		return v.deny(u, ReasonHTTPSRequired, "policy requires https")
	}

	if !policy.AllowRemoteFetch() {
		return v.deny(u, ReasonRemoteFetchDisabled, "remote fetching is disabled by policy")
	}

	// Hostnames are case-insensitive; normalize before resolution and
	// allowlist matching.
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return v.deny(u, ReasonSchemeBlocked, "url has no host")
	}

	addrs, guardErr := v.resolve(ctx, host)
	if guardErr != nil {
		// Resolution failure is ambiguous; fail closed.
		v.metadataSink.RecordError(
			time.Now(),
			"netguard",
			"Validator.Validate",
			mapGuardErrorToMetadataCause(guardErr),
			guardErr.Message,
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrHost, host)},
		)
		return v.deny(u, ReasonPrivateAddressBlocked, fmt.Sprintf("cannot resolve %q", host))
	}

	for _, addr := range addrs {
		if class := Classify(addr); !class.IsPublic() {
			return v.deny(u, ReasonPrivateAddressBlocked,
				fmt.Sprintf("%s resolves to %s (%s)", host, addr, class))
		}
	}

	if policy.HasAllowlist() && !hostAllowed(host, policy) {
		return v.deny(u, ReasonHostNotAllowlisted, fmt.Sprintf("host %q is not on the allowlist", host))
	}

	return AllowedVerdict(u)
}

// CheckDialAddress re-classifies the address actually used for a TCP
// connection. Callers performing the fetch must invoke this from their
// dialer's Control hook: validating the hostname earlier is not enough,
// because DNS may answer differently between validation and connect.
func (v *Validator) CheckDialAddress(addr netip.Addr) *GuardError {
	if class := Classify(addr); !class.IsPublic() {
		return &GuardError{
			Message:   fmt.Sprintf("refusing to dial %s (%s)", addr, class),
			Retryable: false,
			Cause:     ErrCauseDialBlocked,
		}
	}
	return nil
}

func (v *Validator) resolve(ctx context.Context, host string) ([]netip.Addr, *GuardError) {
	// IP literals skip DNS entirely
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr}, nil
	}

	addrs, err := v.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, &GuardError{
			Message:   fmt.Sprintf("lookup %s: %v", host, err),
			Retryable: true,
			Cause:     ErrCauseResolveFailure,
		}
	}
	if len(addrs) == 0 {
		return nil, &GuardError{
			Message:   fmt.Sprintf("lookup %s: empty answer", host),
			Retryable: true,
			Cause:     ErrCauseResolveFailure,
		}
	}
	return addrs, nil
}

func (v *Validator) deny(u url.URL, reason DenyReason, detail string) Verdict {
	verdict := DeniedVerdict(u, reason, detail)
	v.metadataSink.RecordDenial(
		u.String(),
		string(reason),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, u.String()),
			metadata.NewAttr(metadata.AttrReason, detail),
		},
	)
	return verdict
}

// hostAllowed reports whether host matches the policy allowlist, either
// exactly (case-insensitive) or, when suffix matching is configured, as a
// subdomain of an entry. Suffix entries must themselves be registrable
// domains: "example.com" can grant "cdn.example.com", but "com" grants
// nothing.
func hostAllowed(host string, policy config.Policy) bool {
	host = strings.ToLower(host)

	for entry := range policy.AllowedHosts() {
		entry = strings.ToLower(strings.TrimSuffix(entry, "."))
		if entry == "" {
			continue
		}
		if host == entry {
			return true
		}
		if policy.MatchHostSuffix() && suffixAllowed(host, entry) {
			return true
		}
	}
	return false
}

func suffixAllowed(host, entry string) bool {
	if !strings.HasSuffix(host, "."+entry) {
		return false
	}
	// Reject entries that are bare public suffixes ("com", "co.uk"):
	// EffectiveTLDPlusOne fails on those.
	if _, err := publicsuffix.EffectiveTLDPlusOne(entry); err != nil {
		return false
	}
	return true
}
