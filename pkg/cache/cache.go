// Package cache stores inspected image bounds between runs.
//
// Reading bounds is cheap, but a photo library scanned repeatedly (plan,
// then affix, then affix again with different spacing) re-reads the same
// headers and EXIF blocks every time. Entries are keyed by path, size and
// modification time, so an edited file is simply a different key.
//
// Implementations:
//   - FileCache: JSON entries under the user cache directory (CLI default)
//   - NullCache: stores nothing (--no-cache, tests)
package cache

import (
	"context"
	"time"
)

// TTLBounds is how long inspected bounds stay valid. The key already changes
// when the file does, so this only bounds the size of stale entries.
const TTLBounds = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with expiration.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// BoundsKey identifies the inspected bounds of one file version.
	BoundsKey(uri string, size int64, modTime time.Time) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// BoundsKey implements Keyer.
func (DefaultKeyer) BoundsKey(uri string, size int64, modTime time.Time) string {
	return hashKey("bounds", uri, size, modTime.UTC().UnixNano())
}
