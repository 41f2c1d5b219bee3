package cache

// Cache defines the port interface for template content caching.
// The store depends on this port only, so the in-memory adapter and the
// memcached adapter can be swapped without touching load logic.
//
// Keys are template keys as the caller passed them; values are the raw
// template text. Adapters never expire entries on their own.
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns the cached value and true if found, or empty string and false if not found.
	Get(key string) (string, bool)

	// Put stores a key-value pair in the cache.
	// If the key already exists, the value is overwritten.
	Put(key string, value string)

	// Delete removes the entry for key. Deleting an absent key is a no-op.
	Delete(key string)

	// Clear removes every entry.
	Clear()
}
