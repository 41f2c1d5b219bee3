package promptstore

// RenderContext maps placeholder identifiers to the values substituted for them.
type RenderContext map[string]any

// LoadResult is the outcome of Store.Load.
// A failed result carries an empty Content and a non-nil Err.
type LoadResult struct {
	key       string
	content   string
	fromCache bool
	err       *LoadError
}

func (r LoadResult) Key() string {
	return r.key
}

func (r LoadResult) Content() string {
	return r.content
}

// FromCache reports whether the content was served without a fetch.
func (r LoadResult) FromCache() bool {
	return r.fromCache
}

func (r LoadResult) Err() *LoadError {
	return r.err
}

func (r LoadResult) IsSuccess() bool {
	return r.err == nil
}

func (r LoadResult) IsFailure() bool {
	return r.err != nil
}

func successResult(key string, content string, fromCache bool) LoadResult {
	return LoadResult{
		key:       key,
		content:   content,
		fromCache: fromCache,
	}
}

func failedResult(key string, err *LoadError) LoadResult {
	return LoadResult{
		key: key,
		err: err,
	}
}
