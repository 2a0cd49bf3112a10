package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout               = "timeout"
	ErrCauseNetworkFailure        = "network issues"
	ErrCauseReadResponseBodyError = "failed to read response body"
	ErrCauseBodyTooLarge          = "response body exceeds size cap"
	ErrCauseRequestFailed         = "non-success status"
	ErrCauseURLDenied             = "url denied by policy"
	ErrCauseRateLimited           = "rate slot unavailable"
	ErrCauseRobotsDisallowed      = "disallowed by robots.txt"
)

type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s", e.Cause)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseURLDenied, ErrCauseRobotsDisallowed:
		return metadata.CausePolicyDisallow
	case ErrCauseRateLimited, ErrCauseBodyTooLarge:
		return metadata.CauseResourceExhaustion
	case ErrCauseReadResponseBodyError:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
