package promptstore

import (
	"context"
	"strconv"
	"time"

	"github.com/rohmanhakim/prompt-loader/internal/fetcher"
	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/internal/promptstore/cache"
	"github.com/rohmanhakim/prompt-loader/pkg/retry"
)

/*
Store loads prompt templates by key, caches their raw text and renders them.

Responsibilities
- Serve cached template text without I/O
- Fetch missing templates through the Fetcher and cache successful bodies
- Degrade failed loads to an explicit failed LoadResult
- Invalidate single keys or the whole cache on request

Caching guarantees
- A cached key holds the text of the last successful fetch for that key.
- A failed fetch never writes to the cache.
- Entries are only removed by Invalidate or ClearCache.

Concurrent Loads of the same uncached key each fetch; the last one to
finish wins. Store methods are safe for concurrent use as long as the
Cache is.
*/
type Store struct {
	fetcher      fetcher.Fetcher
	cache        cache.Cache
	metadataSink metadata.MetadataSink
	retryParam   retry.RetryParam
}

type Option func(*Store)

// WithRetryParam sets the retry policy handed to the Fetcher on every miss.
func WithRetryParam(retryParam retry.RetryParam) Option {
	return func(s *Store) {
		s.retryParam = retryParam
	}
}

func New(
	templateFetcher fetcher.Fetcher,
	templateCache cache.Cache,
	metadataSink metadata.MetadataSink,
	opts ...Option,
) *Store {
	s := &Store{
		fetcher:      templateFetcher,
		cache:        templateCache,
		metadataSink: metadataSink,
		retryParam:   retry.SingleAttempt(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the template text for key, from the cache when present.
// Load never returns an error value; failures are reported through
// LoadResult.Err and recorded on the metadata sink.
func (s *Store) Load(ctx context.Context, key string) LoadResult {
	if key == "" {
		loadErr := newInvalidKeyError(key)
		s.recordError(loadErr)
		return failedResult(key, loadErr)
	}

	if content, ok := s.cache.Get(key); ok {
		s.metadataSink.RecordCache(metadata.CacheHit, key)
		return successResult(key, content, true)
	}
	s.metadataSink.RecordCache(metadata.CacheMiss, key)

	fetched, err := s.fetcher.Fetch(ctx, fetcher.NewFetchParam(key), s.retryParam)
	if err != nil {
		loadErr := newFetchFailedError(key, err)
		s.recordError(loadErr)
		return failedResult(key, loadErr)
	}

	content := fetched.Text()
	s.cache.Put(key, content)
	s.metadataSink.RecordCache(metadata.CacheStore, key)
	return successResult(key, content, false)
}

// Render is the package-level Render, exposed on the store for callers
// holding only a *Store.
func (s *Store) Render(template string, rc RenderContext) string {
	return Render(template, rc)
}

// LoadAndRender loads key and renders the result with rc.
// On failure the empty template is rendered, yielding "", and the failed
// LoadResult is returned alongside so callers can decide what to do.
func (s *Store) LoadAndRender(ctx context.Context, key string, rc RenderContext) (string, LoadResult) {
	result := s.Load(ctx, key)
	return Render(result.Content(), rc), result
}

func (s *Store) ClearCache() {
	s.cache.Clear()
	s.metadataSink.RecordCache(metadata.CacheClear, "")
}

// Invalidate drops key from the cache. Absent keys are ignored.
func (s *Store) Invalidate(key string) {
	s.cache.Delete(key)
	s.metadataSink.RecordCache(metadata.CacheInvalidate, key)
}

// Cached reports whether key is currently held in the cache.
func (s *Store) Cached(key string) bool {
	_, ok := s.cache.Get(key)
	return ok
}

func (s *Store) recordError(err *LoadError) {
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrKey, err.Key),
	}
	if err.StatusCode != 0 {
		attrs = append(attrs,
			metadata.NewAttr(metadata.AttrHTTPStatus, strconv.Itoa(err.StatusCode)),
			metadata.NewAttr(metadata.AttrStatusText, err.StatusText),
		)
	}
	s.metadataSink.RecordError(
		time.Now(),
		"promptstore",
		"Store.Load",
		mapLoadErrorToMetadataCause(err),
		err.Error(),
		attrs,
	)
}
