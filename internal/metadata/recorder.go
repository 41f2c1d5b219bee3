package metadata

import (
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
)

/*
Metadata Collected
- Template fetches (URL, status, duration, retries)
- Cache interactions (hit, miss, store, invalidate, clear)
- Failures with their canonical cause
- Written artifacts

Metadata is write-only for the pipeline.
No component may read metadata to influence loading or rendering decisions;
the retained error history exists for operators (see Errors).
*/

// DefaultErrorHistory is the number of error records a Recorder retains.
const DefaultErrorHistory = 1000

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
		retryCount int,
	)

	RecordCache(event CacheEvent, key string)

	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

/*
Recorder logs structured events through glog and retains the most recent
error records in memory.

Routine events (fetch, cache, artifact) are logged at verbosity 1 so they
stay silent unless -v=1 is set; errors are always logged.
Recorder is safe for concurrent use.
*/
type Recorder struct {
	mu         sync.Mutex
	maxErrors  int
	errors     []ErrorRecord
	fetchCount int
}

func NewRecorder(maxErrors int) *Recorder {
	if maxErrors <= 0 {
		maxErrors = DefaultErrorHistory
	}
	return &Recorder{
		maxErrors: maxErrors,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	glog.Errorf("[%s] %s failed (%s): %s%s", packageName, action, cause, details, formatAttrs(attrs))

	record := ErrorRecord{
		PackageName: packageName,
		Action:      action,
		Cause:       cause.String(),
		Details:     details,
		ObservedAt:  observedAt,
		Attrs:       append([]Attribute(nil), attrs...),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, record)
	if overflow := len(r.errors) - r.maxErrors; overflow > 0 {
		r.errors = append([]ErrorRecord(nil), r.errors[overflow:]...)
	}
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	retryCount int,
) {
	r.mu.Lock()
	r.fetchCount++
	r.mu.Unlock()

	event := FetchEvent{
		fetchUrl:   fetchUrl,
		httpStatus: httpStatus,
		duration:   duration,
		retryCount: retryCount,
	}
	glog.V(1).Infof("fetch url=%s status=%d duration=%s retries=%d",
		event.fetchUrl, event.httpStatus, event.duration, event.retryCount)
}

func (r *Recorder) RecordCache(event CacheEvent, key string) {
	glog.V(1).Infof("cache %s key=%q", event, key)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	glog.V(1).Infof("artifact %s path=%s%s", kind, path, formatAttrs(attrs))
}

// Errors returns a snapshot of retained error records, oldest first.
func (r *Recorder) Errors() []ErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ErrorRecord(nil), r.errors...)
}

func (r *Recorder) ClearErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = nil
}

// FetchCount is the number of fetches recorded so far.
func (r *Recorder) FetchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchCount
}

func formatAttrs(attrs []Attribute) string {
	if len(attrs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, a := range attrs {
		b.WriteString(" ")
		b.WriteString(string(a.Key))
		b.WriteString("=")
		b.WriteString(a.Value)
	}
	return b.String()
}

// NoopSink implements MetadataSink but does nothing.
// Callers (or tests) decide whether to inject a Recorder or a NoopSink.
type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	retryCount int,
) {
}

func (n *NoopSink) RecordCache(event CacheEvent, key string) {}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}
