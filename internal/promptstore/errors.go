package promptstore

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/prompt-loader/internal/fetcher"
	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/pkg/failure"
)

type LoadErrorCause string

const (
	ErrCauseInvalidKey  LoadErrorCause = "invalid key"
	ErrCauseFetchFailed LoadErrorCause = "fetch failed"
)

// LoadError explains why Load produced no content.
type LoadError struct {
	Message   string
	Retryable bool
	Cause     LoadErrorCause
	Key       string
	// StatusCode and StatusText are zero when the origin never answered.
	StatusCode int
	StatusText string
	// Err is the fetcher error the load failed with, if any.
	Err failure.ClassifiedError
}

func (e *LoadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("promptstore error: %s: key %q: HTTP %d %s", e.Cause, e.Key, e.StatusCode, e.StatusText)
	}
	return fmt.Sprintf("promptstore error: %s: key %q: %s", e.Cause, e.Key, e.Message)
}

func (e *LoadError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *LoadError) IsRetryable() bool {
	return e.Retryable
}

func (e *LoadError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

func newInvalidKeyError(key string) *LoadError {
	return &LoadError{
		Message:   "template key must not be empty",
		Retryable: false,
		Cause:     ErrCauseInvalidKey,
		Key:       key,
	}
}

func newFetchFailedError(key string, err failure.ClassifiedError) *LoadError {
	loadErr := &LoadError{
		Message:   err.Error(),
		Retryable: err.Severity() == failure.SeverityRecoverable,
		Cause:     ErrCauseFetchFailed,
		Key:       key,
		Err:       err,
	}
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		loadErr.StatusCode = fetchErr.StatusCode
		loadErr.StatusText = fetchErr.StatusText
	}
	return loadErr
}

// mapLoadErrorToMetadataCause is observational only.
func mapLoadErrorToMetadataCause(err *LoadError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseInvalidKey:
		return metadata.CauseContentInvalid
	case ErrCauseFetchFailed:
		var fetchErr *fetcher.FetchError
		if errors.As(err, &fetchErr) {
			return fetcher.MapFetchErrorToMetadataCause(fetchErr)
		}
		return metadata.CauseNetworkFailure
	default:
		return metadata.CauseUnknown
	}
}
