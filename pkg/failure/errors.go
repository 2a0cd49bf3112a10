package failure

type Severity int

// gateway control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

type ClassifiedError interface {
	error
	Severity() Severity
}

// IsRecoverable reports whether err carries a recoverable severity. Errors
// that do not implement ClassifiedError are treated as fatal.
func IsRecoverable(err error) bool {
	classified, ok := err.(ClassifiedError)
	return ok && classified.Severity() == SeverityRecoverable
}
