package fetcher

import (
	"net/url"
)

// HTTP boundary

type FetchParam struct {
	key string
}

// NewFetchParam addresses the template resource identified by key.
func NewFetchParam(key string) FetchParam {
	return FetchParam{
		key: key,
	}
}

func (p FetchParam) Key() string {
	return p.key
}

type FetchResult struct {
	url  url.URL
	body []byte
	meta ResponseMeta
}

func (f *FetchResult) URL() url.URL {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

// Text is the response body as template text.
func (f *FetchResult) Text() string {
	return string(f.body)
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

// Status is the reason phrase of the response, e.g. "OK".
func (f *FetchResult) Status() string {
	return f.meta.statusText
}

func (f *FetchResult) ContentType() string {
	return f.meta.contentType
}

func (f *FetchResult) ContentHash() string {
	return f.meta.contentHash
}

type ResponseMeta struct {
	statusCode  int
	statusText  string
	contentType string
	contentHash string
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url url.URL,
	body []byte,
	statusCode int,
	contentType string,
) FetchResult {
	return FetchResult{
		url:  url,
		body: body,
		meta: ResponseMeta{
			statusCode:  statusCode,
			statusText:  statusText(statusCode),
			contentType: contentType,
		},
	}
}
