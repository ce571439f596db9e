package cache

import "time"

// ScopedKeyer wraps a Keyer with a prefix. The CLI scopes keys by release
// version so entries written by an older build are never read back.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "v1.2.0:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// BoundsKey generates a prefixed bounds key.
func (k *ScopedKeyer) BoundsKey(uri string, size int64, modTime time.Time) string {
	return k.prefix + k.inner.BoundsKey(uri, size, modTime)
}
