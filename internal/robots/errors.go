package robots

import (
	"fmt"

	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCauseDisallowed       = "path disallowed by robots.txt"
	ErrCauseServerError      = "origin cannot state its robots policy"
	ErrCausePreFetchFailure  = "failed to prepare robots.txt request"
	ErrCauseHttpFetchFailure = "failed to fetch robots.txt"
	ErrCauseParseError       = "failed to read robots.txt body"
	ErrCauseWaitCancelled    = "crawl-delay wait cancelled"
)

type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s", e.Cause)
}

func (e *RobotsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapRobotsErrorToMetadataCause maps robots-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapRobotsErrorToMetadataCause(err *RobotsError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseDisallowed:
		return metadata.CausePolicyDisallow
	case ErrCauseServerError, ErrCauseHttpFetchFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseParseError:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
