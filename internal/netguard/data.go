package netguard

import "net/url"

// AddressClass is the classification of a single resolved IP address.
// It is derived deterministically from the address and never cached:
// the class must be recomputed per connection attempt so that a DNS
// answer changing between validation and connect (rebinding) cannot
// smuggle a private address past an earlier verdict.
type AddressClass int

const (
	ClassPublic AddressClass = iota
	ClassPrivateRFC1918
	ClassLoopback
	ClassLinkLocal
	ClassCloudMetadata
	ClassBenchmarking
	ClassReserved
)

func (c AddressClass) String() string {
	switch c {
	case ClassPublic:
		return "public"
	case ClassPrivateRFC1918:
		return "private_rfc1918"
	case ClassLoopback:
		return "loopback"
	case ClassLinkLocal:
		return "link_local"
	case ClassCloudMetadata:
		return "cloud_metadata"
	case ClassBenchmarking:
		return "benchmarking"
	case ClassReserved:
		return "reserved"
	default:
		return "unknown"
	}
}

// IsPublic reports whether an address of this class may be dialed.
func (c AddressClass) IsPublic() bool {
	return c == ClassPublic
}

// DenyReason identifies which guard rejected a URL.
// Callers branch on the reason, not on error unwinding.
type DenyReason string

const (
	ReasonSchemeBlocked         DenyReason = "scheme_blocked"
	ReasonHTTPSRequired         DenyReason = "https_required"
	ReasonRemoteFetchDisabled   DenyReason = "remote_fetch_disabled"
	ReasonPrivateAddressBlocked DenyReason = "private_address_blocked"
	ReasonHostNotAllowlisted    DenyReason = "host_not_allowlisted"
)

// Verdict is the immutable outcome of validating one URL against one policy.
// It is short-lived and never persisted.
type Verdict struct {
	url     url.URL
	allowed bool
	reason  DenyReason
	detail  string
}

// AllowedVerdict constructs a passing verdict for the URL.
func AllowedVerdict(u url.URL) Verdict {
	return Verdict{url: u, allowed: true}
}

// DeniedVerdict constructs a failing verdict with the rejecting guard's
// reason and a diagnostic detail.
func DeniedVerdict(u url.URL, reason DenyReason, detail string) Verdict {
	return Verdict{url: u, allowed: false, reason: reason, detail: detail}
}

func (v Verdict) URL() url.URL { return v.url }

func (v Verdict) Allowed() bool { return v.allowed }

// Reason returns the deny reason; empty for an allowed verdict.
func (v Verdict) Reason() DenyReason { return v.reason }

// Detail carries context for the calling parser's diagnostics
// (e.g. which resolved address was non-public). Never user-facing text.
func (v Verdict) Detail() string { return v.detail }
