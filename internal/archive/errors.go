package archive

import (
	"fmt"

	"github.com/rohmanhakim/docmark/pkg/failure"
)

type ArchiveErrorCause string

const (
	ErrCauseUnreadableContainer = "container listing unreadable"
	ErrCauseRejectedArchive     = "archive rejected by validation"
)

type ArchiveError struct {
	Message   string
	Retryable bool
	Cause     ArchiveErrorCause
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive error: %s", e.Cause)
}

func (e *ArchiveError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
