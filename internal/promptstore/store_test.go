package promptstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/prompt-loader/internal/fetcher"
	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/internal/promptstore"
	"github.com/rohmanhakim/prompt-loader/internal/promptstore/cache"
	"github.com/rohmanhakim/prompt-loader/pkg/failure"
	"github.com/rohmanhakim/prompt-loader/pkg/retry"
	"github.com/rohmanhakim/prompt-loader/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newStore(f fetcher.Fetcher, opts ...promptstore.Option) (*promptstore.Store, *cache.MemoryCache, *recordingSink) {
	c := cache.NewMemoryCache()
	sink := &recordingSink{}
	return promptstore.New(f, c, sink, opts...), c, sink
}

func TestStore_LoadCachesFirstSuccess(t *testing.T) {
	f := &fetcherMock{}
	expectFetch(f, "chat.md", "Hello {{name}}!")
	store, c, _ := newStore(f)

	first := store.Load(context.Background(), "chat.md")
	second := store.Load(context.Background(), "chat.md")

	require.True(t, first.IsSuccess())
	assert.Equal(t, "Hello {{name}}!", first.Content())
	assert.False(t, first.FromCache())
	assert.Equal(t, "chat.md", first.Key())

	require.True(t, second.IsSuccess())
	assert.Equal(t, "Hello {{name}}!", second.Content())
	assert.True(t, second.FromCache())

	f.AssertNumberOfCalls(t, "Fetch", 1)
	assert.Equal(t, 1, c.Size())
	assert.True(t, store.Cached("chat.md"))
}

func TestStore_LoadEmptyBodyIsCached(t *testing.T) {
	f := &fetcherMock{}
	expectFetch(f, "empty.md", "")
	store, _, _ := newStore(f)

	first := store.Load(context.Background(), "empty.md")
	second := store.Load(context.Background(), "empty.md")

	assert.True(t, first.IsSuccess())
	assert.True(t, second.FromCache())
	f.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestStore_InvalidateForcesRefetch(t *testing.T) {
	f := &fetcherMock{}
	expectFetch(f, "chat.md", "v1").Once()
	expectFetch(f, "chat.md", "v2").Once()
	store, _, sink := newStore(f)

	assert.Equal(t, "v1", store.Load(context.Background(), "chat.md").Content())
	store.Invalidate("chat.md")
	assert.False(t, store.Cached("chat.md"))

	result := store.Load(context.Background(), "chat.md")
	assert.Equal(t, "v2", result.Content())
	assert.False(t, result.FromCache())
	f.AssertNumberOfCalls(t, "Fetch", 2)
	assert.Contains(t, sink.events(), cacheEvent{event: metadata.CacheInvalidate, key: "chat.md"})
}

func TestStore_InvalidateOnlyTouchesOneKey(t *testing.T) {
	f := &fetcherMock{}
	expectFetch(f, "a.md", "a")
	expectFetch(f, "b.md", "b")
	store, _, _ := newStore(f)

	store.Load(context.Background(), "a.md")
	store.Load(context.Background(), "b.md")
	store.Invalidate("a.md")
	store.Invalidate("never-loaded.md")

	assert.False(t, store.Cached("a.md"))
	assert.True(t, store.Cached("b.md"))
	assert.True(t, store.Load(context.Background(), "b.md").FromCache())
}

func TestStore_ClearCacheForcesRefetchOfEveryKey(t *testing.T) {
	f := &fetcherMock{}
	expectFetch(f, "a.md", "a")
	expectFetch(f, "b.md", "b")
	store, c, sink := newStore(f)

	store.Load(context.Background(), "a.md")
	store.Load(context.Background(), "b.md")
	store.ClearCache()
	assert.Equal(t, 0, c.Size())

	assert.False(t, store.Load(context.Background(), "a.md").FromCache())
	assert.False(t, store.Load(context.Background(), "b.md").FromCache())
	f.AssertNumberOfCalls(t, "Fetch", 4)
	assert.Contains(t, sink.events(), cacheEvent{event: metadata.CacheClear, key: ""})
}

func TestStore_NotFoundDegradesToEmpty(t *testing.T) {
	f := &fetcherMock{}
	expectFetchError(f, "missing.md", notFoundError())
	store, c, sink := newStore(f)

	result := store.Load(context.Background(), "missing.md")

	assert.True(t, result.IsFailure())
	assert.Equal(t, "", result.Content())
	require.NotNil(t, result.Err())
	assert.Equal(t, promptstore.ErrCauseFetchFailed, result.Err().Cause)
	assert.Equal(t, "missing.md", result.Err().Key)
	assert.Equal(t, 404, result.Err().StatusCode)
	assert.Equal(t, "Not Found", result.Err().StatusText)
	assert.False(t, result.Err().IsRetryable())
	assert.Equal(t, failure.SeverityFatal, result.Err().Severity())
	assert.Equal(t, 0, c.Size())

	require.Len(t, sink.errors, 1)
	assert.Equal(t, "promptstore", sink.errors[0].packageName)
	assert.Equal(t, metadata.CauseNotFound, sink.errors[0].cause)
	assert.Contains(t, sink.errors[0].attrs, metadata.NewAttr(metadata.AttrKey, "missing.md"))
	assert.Contains(t, sink.errors[0].attrs, metadata.NewAttr(metadata.AttrHTTPStatus, "404"))

	var fetchErr *fetcher.FetchError
	assert.True(t, errors.As(result.Err(), &fetchErr))
}

func TestStore_FailedLoadRetriesOnNextCall(t *testing.T) {
	f := &fetcherMock{}
	expectFetchError(f, "flaky.md", networkError()).Once()
	expectFetch(f, "flaky.md", "recovered").Once()
	store, _, _ := newStore(f)

	failed := store.Load(context.Background(), "flaky.md")
	assert.True(t, failed.IsFailure())
	assert.False(t, store.Cached("flaky.md"))

	recovered := store.Load(context.Background(), "flaky.md")
	assert.True(t, recovered.IsSuccess())
	assert.Equal(t, "recovered", recovered.Content())
	f.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestStore_NetworkFailureHasNoStatus(t *testing.T) {
	f := &fetcherMock{}
	expectFetchError(f, "chat.md", networkError())
	store, _, sink := newStore(f)

	result := store.Load(context.Background(), "chat.md")

	require.True(t, result.IsFailure())
	assert.Zero(t, result.Err().StatusCode)
	assert.True(t, result.Err().IsRetryable())
	assert.Contains(t, result.Err().Error(), "connection refused")
	require.Len(t, sink.errors, 1)
	assert.Equal(t, metadata.CauseNetworkFailure, sink.errors[0].cause)
}

func TestStore_FailedRefetchLeavesKeyUncached(t *testing.T) {
	f := &fetcherMock{}
	expectFetch(f, "chat.md", "v1").Once()
	expectFetchError(f, "chat.md", notFoundError()).Once()
	store, _, _ := newStore(f)

	store.Load(context.Background(), "chat.md")
	store.Invalidate("chat.md")
	store.Load(context.Background(), "chat.md")

	assert.False(t, store.Cached("chat.md"))
}

func TestStore_EmptyKeyIsRejectedWithoutFetching(t *testing.T) {
	f := &fetcherMock{}
	store, _, sink := newStore(f)

	result := store.Load(context.Background(), "")

	require.True(t, result.IsFailure())
	assert.Equal(t, promptstore.ErrCauseInvalidKey, result.Err().Cause)
	assert.Empty(t, result.Content())
	f.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, sink.errors, 1)
	assert.Equal(t, metadata.CauseContentInvalid, sink.errors[0].cause)
}

func TestStore_PassesRetryParamToFetcher(t *testing.T) {
	retryParam := retry.NewRetryParam(
		10*time.Millisecond,
		42,
		3,
		timeutil.NewBackoffParam(time.Millisecond, 2.0, time.Second),
	)
	f := &fetcherMock{}
	f.On("Fetch", mock.Anything, fetcher.NewFetchParam("chat.md"), retryParam).
		Return(okResult("chat.md", "hi"), nil)
	store, _, _ := newStore(f, promptstore.WithRetryParam(retryParam))

	result := store.Load(context.Background(), "chat.md")

	assert.True(t, result.IsSuccess())
	f.AssertExpectations(t)
}

func TestStore_DefaultsToSingleAttempt(t *testing.T) {
	f := &fetcherMock{}
	f.On("Fetch", mock.Anything, fetcher.NewFetchParam("chat.md"), retry.SingleAttempt()).
		Return(okResult("chat.md", "hi"), nil)
	store, _, _ := newStore(f)

	store.Load(context.Background(), "chat.md")

	f.AssertExpectations(t)
}

func TestStore_RecordsCacheEvents(t *testing.T) {
	f := &fetcherMock{}
	expectFetch(f, "chat.md", "hi")
	store, _, sink := newStore(f)

	store.Load(context.Background(), "chat.md")
	store.Load(context.Background(), "chat.md")

	assert.Equal(t, []cacheEvent{
		{event: metadata.CacheMiss, key: "chat.md"},
		{event: metadata.CacheStore, key: "chat.md"},
		{event: metadata.CacheHit, key: "chat.md"},
	}, sink.events())
}

func TestStore_LoadAndRender(t *testing.T) {
	f := &fetcherMock{}
	expectFetch(f, "greet.md", "Hello {{name}}, you are {{age}}.")
	store, _, _ := newStore(f)

	rendered, result := store.LoadAndRender(context.Background(), "greet.md", promptstore.RenderContext{
		"name": "Ada",
		"age":  36,
	})

	assert.True(t, result.IsSuccess())
	assert.Equal(t, "Hello Ada, you are 36.", rendered)
}

func TestStore_LoadAndRenderOnFailureRendersEmptyTemplate(t *testing.T) {
	f := &fetcherMock{}
	expectFetchError(f, "missing.md", notFoundError())
	store, _, _ := newStore(f)

	rendered, result := store.LoadAndRender(context.Background(), "missing.md", promptstore.RenderContext{"x": "y"})

	assert.Equal(t, "", rendered)
	assert.True(t, result.IsFailure())
	assert.Equal(t, 404, result.Err().StatusCode)
}

func TestStore_ConcurrentLoadsOfSameKey(t *testing.T) {
	f := &fetcherMock{}
	expectFetch(f, "chat.md", "shared")
	store, c, _ := newStore(f)

	var wg sync.WaitGroup
	results := make([]promptstore.LoadResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Load(context.Background(), "chat.md")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r.IsSuccess())
		assert.Equal(t, "shared", r.Content())
	}
	assert.Equal(t, 1, c.Size())
	calls := len(f.Calls)
	assert.GreaterOrEqual(t, calls, 1)
	assert.LessOrEqual(t, calls, len(results))
}
