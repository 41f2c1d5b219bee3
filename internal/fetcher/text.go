package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/pkg/failure"
	"github.com/rohmanhakim/prompt-loader/pkg/hashutil"
	"github.com/rohmanhakim/prompt-loader/pkg/retry"
	"github.com/rohmanhakim/prompt-loader/pkg/urlutil"
)

/*
Responsibilities

- Resolve a template key to a URL under the templates root
- Perform HTTP requests with the configured headers and timeout
- Classify responses into typed FetchErrors
- Retry recoverable failures according to the RetryParam

Fetch Semantics

- Only 2xx responses count as success
- The body is returned verbatim as text; it is never parsed
- Every fetch is recorded on the metadata sink (RecordFetch)
- Failures are returned, not recorded as errors; the caller that owns
  the template key records them once
*/

type TextFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	baseURL      url.URL
	pathPrefix   string
	userAgent    string
}

func NewTextFetcher(
	metadataSink metadata.MetadataSink,
	baseURL url.URL,
	pathPrefix string,
	userAgent string,
	timeout time.Duration,
) *TextFetcher {
	return NewTextFetcherWithClient(
		metadataSink,
		baseURL,
		pathPrefix,
		userAgent,
		&http.Client{Timeout: timeout},
	)
}

// NewTextFetcherWithClient creates a TextFetcher with a custom HTTP client.
// This is useful for testing.
func NewTextFetcherWithClient(
	metadataSink metadata.MetadataSink,
	baseURL url.URL,
	pathPrefix string,
	userAgent string,
	httpClient *http.Client,
) *TextFetcher {
	return &TextFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		baseURL:      urlutil.Canonicalize(baseURL),
		pathPrefix:   pathPrefix,
		userAgent:    userAgent,
	}
}

// ResolveURL returns the URL the fetcher requests for key.
func (t *TextFetcher) ResolveURL(key string) url.URL {
	return urlutil.JoinPath(t.baseURL, t.pathPrefix, key)
}

func (t *TextFetcher) Fetch(
	ctx context.Context,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) (FetchResult, failure.ClassifiedError) {
	fetchUrl := t.ResolveURL(fetchParam.key)
	startTime := time.Now()

	result := retry.Retry(ctx, retryParam, func() (FetchResult, failure.ClassifiedError) {
		return t.performFetch(ctx, fetchUrl)
	})

	fetched := result.Value()
	statusCode := fetched.Code()
	if result.IsFailure() {
		var fetchErr *FetchError
		if errors.As(result.Err(), &fetchErr) {
			statusCode = fetchErr.StatusCode
		}
	}

	retryCount := result.Attempts() - 1
	if retryCount < 0 {
		retryCount = 0
	}
	t.metadataSink.RecordFetch(
		fetchUrl.String(),
		statusCode,
		time.Since(startTime),
		retryCount,
	)

	if result.IsFailure() {
		return FetchResult{}, result.Err()
	}

	return fetched, nil
}

func (t *TextFetcher) performFetch(ctx context.Context, fetchUrl url.URL) (FetchResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseRequestBuildFailure,
		}
	}

	for key, value := range requestHeaders(t.userAgent) {
		req.Header.Set(key, value)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// A cancelled caller will not benefit from another attempt.
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: ctx.Err() == nil,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if fetchErr := classifyStatus(resp.StatusCode); fetchErr != nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return FetchResult{}, fetchErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("failed to read response body: %v", err),
			Retryable:  true,
			Cause:      ErrCauseReadResponseBodyError,
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp.StatusCode),
		}
	}

	return FetchResult{
		url:  fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:  resp.StatusCode,
			statusText:  statusText(resp.StatusCode),
			contentType: resp.Header.Get("Content-Type"),
			contentHash: hashutil.Blake3Hex(body),
		},
	}, nil
}

// classifyStatus returns nil for 2xx responses.
func classifyStatus(code int) *FetchError {
	newErr := func(cause FetchErrorCause, retryable bool) *FetchError {
		return &FetchError{
			Message:    fmt.Sprintf("unexpected status: %d", code),
			Retryable:  retryable,
			Cause:      cause,
			StatusCode: code,
			StatusText: statusText(code),
		}
	}

	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 500:
		return newErr(ErrCauseRequest5xx, true)
	case code == http.StatusTooManyRequests:
		return newErr(ErrCauseRequestTooMany, true)
	case code == http.StatusNotFound:
		return newErr(ErrCauseNotFound, false)
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return newErr(ErrCauseRequestForbidden, false)
	case code >= 400:
		return newErr(ErrCauseRequestClientError, false)
	case code >= 300:
		// http.Client follows redirects; reaching here means the limit was hit
		return newErr(ErrCauseRedirectLimitExceeded, false)
	default:
		return newErr(ErrCauseRequestClientError, false)
	}
}

// statusText mirrors the reason phrase a browser exposes as Response.statusText.
func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", code)
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent": userAgent,
		"Accept":     "text/plain,text/markdown,*/*;q=0.8",
	}
}
