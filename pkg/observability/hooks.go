// Package observability provides hooks for instrumenting affix requests.
//
// Libraries emit events through the registered hooks; the defaults do
// nothing. The CLI registers LogHooks in verbose mode so every stage is
// traced to the debug log, and tests register recorders.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetAffixHooks(observability.NewLogHooks(logger))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Affix().OnComposeStart(ctx, len(images), plan.Scale)
//	// ... compose ...
//	observability.Affix().OnComposeComplete(ctx, peak, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Affix Hooks
// =============================================================================

// AffixHooks receives events from the affixing stages.
type AffixHooks interface {
	// Bounds inspection
	OnInspectStart(ctx context.Context, images int)
	OnInspectComplete(ctx context.Context, images, cacheHits int, duration time.Duration, err error)

	// Layout planning
	OnPlan(ctx context.Context, width, height int, scale float64, budget int64, err error)

	// Composition
	OnComposeStart(ctx context.Context, images int, scale float64)
	OnComposeComplete(ctx context.Context, peakBytes int64, duration time.Duration, err error)

	// Encoding
	OnEncodeStart(ctx context.Context, format string)
	OnEncodeComplete(ctx context.Context, path string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopAffixHooks is a no-op implementation of AffixHooks.
type NoopAffixHooks struct{}

func (NoopAffixHooks) OnInspectStart(context.Context, int)                               {}
func (NoopAffixHooks) OnInspectComplete(context.Context, int, int, time.Duration, error) {}
func (NoopAffixHooks) OnPlan(context.Context, int, int, float64, int64, error)           {}
func (NoopAffixHooks) OnComposeStart(context.Context, int, float64)                      {}
func (NoopAffixHooks) OnComposeComplete(context.Context, int64, time.Duration, error)    {}
func (NoopAffixHooks) OnEncodeStart(context.Context, string)                             {}
func (NoopAffixHooks) OnEncodeComplete(context.Context, string, time.Duration, error)    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	affixHooks AffixHooks = NoopAffixHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	hooksMu    sync.RWMutex
)

// SetAffixHooks registers custom affix hooks.
// This should be called once at application startup before any request runs.
func SetAffixHooks(h AffixHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		affixHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Affix returns the registered affix hooks.
func Affix() AffixHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return affixHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	affixHooks = NoopAffixHooks{}
	cacheHooks = NoopCacheHooks{}
}
