package promptstore_test

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rohmanhakim/prompt-loader/internal/fetcher"
	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/pkg/failure"
	"github.com/rohmanhakim/prompt-loader/pkg/retry"
	"github.com/stretchr/testify/mock"
)

// fetcherMock is a testify mock for the Fetcher
type fetcherMock struct {
	mock.Mock
}

func (f *fetcherMock) Fetch(
	ctx context.Context,
	fetchParam fetcher.FetchParam,
	retryParam retry.RetryParam,
) (fetcher.FetchResult, failure.ClassifiedError) {
	args := f.Called(ctx, fetchParam, retryParam)
	result := args.Get(0).(fetcher.FetchResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

func okResult(key string, body string) fetcher.FetchResult {
	u, _ := url.Parse("http://localhost:28888/prompts/" + key)
	return fetcher.NewFetchResultForTest(*u, []byte(body), 200, "text/markdown")
}

func expectFetch(m *fetcherMock, key string, body string) *mock.Call {
	return m.On("Fetch", mock.Anything, fetcher.NewFetchParam(key), mock.Anything).
		Return(okResult(key, body), nil)
}

func expectFetchError(m *fetcherMock, key string, err failure.ClassifiedError) *mock.Call {
	return m.On("Fetch", mock.Anything, fetcher.NewFetchParam(key), mock.Anything).
		Return(fetcher.FetchResult{}, err)
}

func notFoundError() *fetcher.FetchError {
	return &fetcher.FetchError{
		Message:    "unexpected status: 404",
		Retryable:  false,
		Cause:      fetcher.ErrCauseNotFound,
		StatusCode: 404,
		StatusText: "Not Found",
	}
}

func networkError() *fetcher.FetchError {
	return &fetcher.FetchError{
		Message:   "request failed: dial tcp: connection refused",
		Retryable: true,
		Cause:     fetcher.ErrCauseNetworkFailure,
	}
}

type cacheEvent struct {
	event metadata.CacheEvent
	key   string
}

// recordingSink keeps cache events and errors for assertions
type recordingSink struct {
	metadata.NoopSink
	mu          sync.Mutex
	cacheEvents []cacheEvent
	errors      []recordedError
}

type recordedError struct {
	packageName string
	cause       metadata.ErrorCause
	details     string
	attrs       []metadata.Attribute
}

func (s *recordingSink) RecordCache(event metadata.CacheEvent, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheEvents = append(s.cacheEvents, cacheEvent{event: event, key: key})
}

func (s *recordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, recordedError{
		packageName: packageName,
		cause:       cause,
		details:     details,
		attrs:       attrs,
	})
}

func (s *recordingSink) events() []cacheEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cacheEvent(nil), s.cacheEvents...)
}
