package mdconvert

import (
	"fmt"

	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/pkg/failure"
)

type ConversionErrorCause string

const (
	ErrCauseParseFailure      = "html parsing failed"
	ErrCauseConversionFailure = "conversion failed"
)

type ConversionError struct {
	Message   string
	Retryable bool
	Cause     ConversionErrorCause
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion error: %s", e.Cause)
}

func (e *ConversionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapConversionErrorToMetadataCause(err *ConversionError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseParseFailure, ErrCauseConversionFailure:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
