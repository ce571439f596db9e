package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks traces affix and cache events to a logger at debug level.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks creates hooks that log to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{Logger: logger}
}

func (h *LogHooks) OnInspectStart(_ context.Context, images int) {
	h.Logger.Debug("inspecting bounds", "images", images)
}

func (h *LogHooks) OnInspectComplete(_ context.Context, images, cacheHits int, d time.Duration, err error) {
	h.Logger.Debug("inspected bounds", "images", images, "cached", cacheHits, "duration", d, "err", err)
}

func (h *LogHooks) OnPlan(_ context.Context, width, height int, scale float64, budget int64, err error) {
	h.Logger.Debug("planned layout", "width", width, "height", height, "scale", scale, "budget", budget, "err", err)
}

func (h *LogHooks) OnComposeStart(_ context.Context, images int, scale float64) {
	h.Logger.Debug("composing", "images", images, "scale", scale)
}

func (h *LogHooks) OnComposeComplete(_ context.Context, peak int64, d time.Duration, err error) {
	h.Logger.Debug("composed", "peak", peak, "duration", d, "err", err)
}

func (h *LogHooks) OnEncodeStart(_ context.Context, format string) {
	h.Logger.Debug("encoding", "format", format)
}

func (h *LogHooks) OnEncodeComplete(_ context.Context, path string, d time.Duration, err error) {
	h.Logger.Debug("encoded", "path", path, "duration", d, "err", err)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ AffixHooks = (*LogHooks)(nil)
	_ CacheHooks = (*LogHooks)(nil)
)
