package netguard

import (
	"fmt"

	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/pkg/failure"
)

type GuardErrorCause string

const (
	ErrCauseDialBlocked    = "dial address is not public"
	ErrCauseResolveFailure = "hostname resolution failed"
)

type GuardError struct {
	Message   string
	Retryable bool
	Cause     GuardErrorCause
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("netguard error: %s", e.Cause)
}

func (e *GuardError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapGuardErrorToMetadataCause maps netguard-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapGuardErrorToMetadataCause(err *GuardError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseDialBlocked:
		return metadata.CausePolicyDisallow
	case ErrCauseResolveFailure:
		return metadata.CauseNetworkFailure
	default:
		return metadata.CauseUnknown
	}
}
