package metadata

import (
	"time"
)

/*
Metadata Collected
- Fetch timestamps and HTTP status codes
- Gateway denials (which guard, which reason)
- Rate-limit waits
- Content hashes of fetched bodies and robots.txt files

Logging Goals
- Debuggable gateway behavior
- Post-run auditability of every denial
- Failure diagnostics

Structured records are preferred.

Determinism guarantees:
 - Metadata does not affect control flow
 - A denial is recorded after the verdict is produced, never before
 - Output is stable given identical inputs

Metadata is write-only.
No component may read metadata to influence gateway decisions.
*/

type FetchEvent struct {
	fetchUrl    string
	httpStatus  int
	duration    time.Duration
	contentType string
	bodyDigest  string
}

func (e FetchEvent) URL() string             { return e.fetchUrl }
func (e FetchEvent) HTTPStatus() int         { return e.httpStatus }
func (e FetchEvent) Duration() time.Duration { return e.duration }
func (e FetchEvent) ContentType() string     { return e.contentType }
func (e FetchEvent) BodyDigest() string      { return e.bodyDigest }

// DenialEvent captures one produced deny verdict, regardless of which
// guard produced it. Purely observational.
type DenialEvent struct {
	subject    string
	reason     string
	observedAt time.Time
	attrs      []Attribute
}

func (e DenialEvent) Subject() string       { return e.subject }
func (e DenialEvent) Reason() string        { return e.reason }
func (e DenialEvent) ObservedAt() time.Time { return e.observedAt }

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause is for observability only.
	 - It must never be used to derive retry, continuation, or abort decisions.
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause values MUST have stable, package-agnostic semantics.
	 - Gateway packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	Non-goals:
	 - ErrorCause does not encode severity.
	 - ErrorCause does not imply retryability.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.
  - Used as a safe fallback.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - TCP timeouts
  - DNS resolution failures
  - robots.txt fetch timeout

# CausePolicyDisallow

Meaning:
  - An operation was denied by an explicit policy or rule.

Examples:
  - blocked scheme or private address
  - host not on the allowlist
  - robots.txt disallow
  - rate-limit enforcement

# CauseContentInvalid

Meaning:
  - Content was retrieved but could not be processed meaningfully.

Examples:
  - Non-HTML responses on the convert path
  - Broken DOM preventing conversion

# CauseResourceExhaustion

Meaning:
  - An input would exhaust memory, disk, or time budgets if processed.

Examples:
  - archive compression-ratio or total-size violations
  - response bodies exceeding the configured byte cap

# CauseInvariantViolation

Meaning:
  - A system-level invariant was violated.

Examples:
  - a rate slot released twice
  - internal consistency checks failing
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseResourceExhaustion
	CauseInvariantViolation
)

type ErrorRecord struct {
	packageName string
	action      string
	cause       ErrorCause
	errorString string
	observedAt  time.Time
	attrs       []Attribute
}

func (r ErrorRecord) Package() string   { return r.packageName }
func (r ErrorRecord) Action() string    { return r.action }
func (r ErrorRecord) Cause() ErrorCause { return r.cause }
func (r ErrorRecord) Details() string   { return r.errorString }

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime       AttributeKey = "time"
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrOrigin     AttributeKey = "origin"
	AttrReason     AttributeKey = "reason"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrMember     AttributeKey = "member"
	AttrRatio      AttributeKey = "ratio"
	AttrViolations AttributeKey = "violations"
	AttrTotalBytes AttributeKey = "total_bytes"
	AttrAddress    AttributeKey = "address"
	AttrUserAgent  AttributeKey = "user_agent"
)
