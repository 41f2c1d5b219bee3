package storage

// Persistence

type WriteResult struct {
	key         string // template key the output was rendered from
	path        string
	contentHash string
}

func NewWriteResult(
	key string,
	path string,
	contentHash string,
) WriteResult {
	return WriteResult{
		key:         key,
		path:        path,
		contentHash: contentHash,
	}
}

func (w *WriteResult) Key() string {
	return w.key
}

func (w *WriteResult) Path() string {
	return w.path
}

// ContentHash is the BLAKE3 hex digest of the written bytes.
func (w *WriteResult) ContentHash() string {
	return w.contentHash
}
