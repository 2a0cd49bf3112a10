package metadata

import (
	"sync"
	"time"
)

/*
Recorder captures structured gateway events.
It must not:
- perform I/O decisions
- affect control flow
- impose a logging backend
Ordering guarantees:
- Events are recorded synchronously in the order they are received by a single caller.
- No global ordering across concurrent callers is guaranteed.
- Consumers MUST NOT assume total ordering across a run.
- Ordering is provided for debuggability, not causality.
*/
type Recorder struct {
	mu      sync.Mutex
	errors  []ErrorRecord
	fetches []FetchEvent
	denials []DenialEvent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, ErrorRecord{
		packageName: packageName,
		action:      action,
		cause:       cause,
		errorString: errorString,
		observedAt:  observedAt,
		attrs:       attrs,
	})
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	bodyDigest string,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fetches = append(r.fetches, FetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		bodyDigest:  bodyDigest,
	})
}

func (r *Recorder) RecordDenial(subject string, reason string, attrs []Attribute) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.denials = append(r.denials, DenialEvent{
		subject:    subject,
		reason:     reason,
		observedAt: time.Now(),
		attrs:      attrs,
	})
}

// Errors returns a snapshot copy of the recorded error records.
func (r *Recorder) Errors() []ErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ErrorRecord, len(r.errors))
	copy(out, r.errors)
	return out
}

// Fetches returns a snapshot copy of the recorded fetch events.
func (r *Recorder) Fetches() []FetchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]FetchEvent, len(r.fetches))
	copy(out, r.fetches)
	return out
}

// Denials returns a snapshot copy of the recorded denial events.
func (r *Recorder) Denials() []DenialEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]DenialEvent, len(r.denials))
	copy(out, r.denials)
	return out
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		bodyDigest string,
	)

	RecordDenial(subject string, reason string, attrs []Attribute)
}

// NoopSink, struct that implements metadata.MetadataSink but does nothing.
// Callers (or tests) can decide whether to inject Recorder or NoopSink.
// Purpose is to make metadata orthogonal.

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	bodyDigest string,
) {
}

func (n *NoopSink) RecordDenial(subject string, reason string, attrs []Attribute) {}
