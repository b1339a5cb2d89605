// Package cache provides a generic LRU cache bounded by total entry cost.
//
//	c := cache.New[string, []byte](64 << 20)
//	c.Set("key", data, int64(len(data)))
//	value, ok := c.Get("key")
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
