package limiter

import (
	"fmt"

	"github.com/rohmanhakim/docmark/pkg/failure"
)

type LimitErrorCause string

const (
	ErrCauseRateLimitExceeded = "rate limit wait timed out"
	ErrCauseAcquireCancelled  = "acquire cancelled"
	ErrCauseInvalidParams     = "invalid limiter params"
)

type LimitError struct {
	Message   string
	Retryable bool
	Cause     LimitErrorCause
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("limiter error: %s", e.Cause)
}

func (e *LimitError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRateLimitExceeded reports whether the error is a bounded-wait timeout,
// as opposed to caller cancellation.
func (e *LimitError) IsRateLimitExceeded() bool {
	return e.Cause == ErrCauseRateLimitExceeded
}
