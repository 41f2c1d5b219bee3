package metadata

import (
	"time"
)

type FetchEvent struct {
	fetchUrl   string
	httpStatus int
	duration   time.Duration
	retryCount int
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry or fallback decisions.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

  - Transport failures, timeouts, 5xx and 429 from the template origin.

# CauseNotFound

  - The template origin answered but has no resource for the key (404, other 4xx).

# CauseContentInvalid

  - A response was received but its body could not be read, or the key itself is unusable.

# CauseStorageFailure

  - Failure while writing rendered output to disk.

# CauseInvariantViolation

  - Internal consistency checks failing.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseNotFound
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseNotFound:
		return "not_found"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// ErrorRecord is the retained form of a RecordError call.
type ErrorRecord struct {
	PackageName string      `json:"package"`
	Action      string      `json:"action"`
	Cause       string      `json:"cause"`
	Details     string      `json:"details"`
	ObservedAt  time.Time   `json:"observedAt"`
	Attrs       []Attribute `json:"attrs,omitempty"`
}

type Attribute struct {
	Key   AttributeKey `json:"key"`
	Value string       `json:"value"`
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrKey         AttributeKey = "key"
	AttrHTTPStatus  AttributeKey = "http_status"
	AttrStatusText  AttributeKey = "status_text"
	AttrWritePath   AttributeKey = "write_path"
	AttrContentHash AttributeKey = "content_hash"
)

type ArtifactKind string

const (
	ArtifactRenderedPrompt ArtifactKind = "rendered_prompt"
)

// CacheEvent names a cache interaction of the template store.
type CacheEvent string

const (
	CacheHit        CacheEvent = "hit"
	CacheMiss       CacheEvent = "miss"
	CacheStore      CacheEvent = "store"
	CacheInvalidate CacheEvent = "invalidate"
	CacheClear      CacheEvent = "clear"
)
