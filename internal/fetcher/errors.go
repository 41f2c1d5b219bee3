package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseRequestBuildFailure   FetchErrorCause = "failed to build request"
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseRedirectLimitExceeded FetchErrorCause = "reached redirect limit"
	ErrCauseNotFound              FetchErrorCause = "not found"
	ErrCauseRequestForbidden      FetchErrorCause = "forbidden"
	ErrCauseRequestClientError    FetchErrorCause = "4xx"
	ErrCauseRequestTooMany        FetchErrorCause = "too many requests"
	ErrCauseRequest5xx            FetchErrorCause = "5xx"
)

type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
	// StatusCode and StatusText are zero when no response was received.
	StatusCode int
	StatusText string
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetcher error: %s: HTTP %d: %s", e.Cause, e.StatusCode, e.StatusText)
	}
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
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

// MapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func MapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNetworkFailure, ErrCauseRequest5xx, ErrCauseRequestTooMany:
		return metadata.CauseNetworkFailure
	case ErrCauseNotFound, ErrCauseRequestForbidden, ErrCauseRequestClientError:
		return metadata.CauseNotFound
	case ErrCauseReadResponseBodyError:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
