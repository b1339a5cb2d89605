package image

import (
	"image"
	"reflect"

	"github.com/gogpu/texpack/internal/cache"
)

// SourceCache keeps resampled sources so repeated previews of the same
// images skip decoding work. Entries are keyed by image identity and size,
// so only images held by pointer are cached. Cached Floats are shared and
// must be treated as read-only.
//
// A nil *SourceCache is valid and resamples every call.
type SourceCache struct {
	c *cache.Cache[sourceKey, *Float]
}

type sourceKey struct {
	img  image.Image
	size int
}

// NewSourceCache creates a cache holding up to maxBytes of resampled pixels.
func NewSourceCache(maxBytes int64) *SourceCache {
	return &SourceCache{c: cache.New[sourceKey, *Float](maxBytes)}
}

// Resample is Resample backed by the cache.
func (s *SourceCache) Resample(src image.Image, size int) *Float {
	if s == nil || !cacheable(src) {
		return Resample(src, size)
	}
	return s.c.GetOrCreate(sourceKey{img: src, size: size}, func() (*Float, int64) {
		f := Resample(src, size)
		return f, int64(len(f.Pix)) * 4
	})
}

// Clear drops all cached sources.
func (s *SourceCache) Clear() {
	if s != nil {
		s.c.Clear()
	}
}

// Stats returns cache statistics. A nil cache reports zeros.
func (s *SourceCache) Stats() cache.Stats {
	if s == nil {
		return cache.Stats{}
	}
	return s.c.Stats()
}

// cacheable reports whether img has stable identity: a non-nil pointer.
// Value images compare by contents, which may be uncomparable or mutable.
func cacheable(img image.Image) bool {
	if img == nil {
		return false
	}
	v := reflect.ValueOf(img)
	return v.Kind() == reflect.Pointer && !v.IsNil()
}
