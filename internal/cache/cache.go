// Package cache holds small in-process lookup caches. The import path
// resolves the same contractor name once per row, so resolved profile
// ids are kept here between lookups.
package cache

// Cache is a keyed store with expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Clear drops every entry, e.g. after the underlying data changed.
	Clear()
	Size() int
}

var _ Cache[string] = (*LRUCache[string])(nil)
