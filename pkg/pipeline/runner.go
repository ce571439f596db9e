package pipeline

import (
	"context"
	"encoding/json"
	"image"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/photoaffix/pkg/bounds"
	"github.com/matzehuels/photoaffix/pkg/budget"
	"github.com/matzehuels/photoaffix/pkg/cache"
	"github.com/matzehuels/photoaffix/pkg/compose"
	"github.com/matzehuels/photoaffix/pkg/encode"
	"github.com/matzehuels/photoaffix/pkg/layout"
	"github.com/matzehuels/photoaffix/pkg/observability"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// Runner encapsulates pipeline execution with caching.
// The coordinator and the CLI both use it to avoid duplicating stage logic.
//
// The Runner is stateless except for its collaborators - it doesn't store
// pipeline results. It is safe to share between goroutines as long as the
// collaborators are.
type Runner struct {
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger
	Estimator budget.Estimator
	Inspector *bounds.Inspector
	Decoder   compose.Decoder
	Writer    *encode.Writer

	// now is the clock used for generated output names.
	now func() time.Time
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// The memory budget defaults to the runtime estimator.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:     c,
		Keyer:     keyer,
		Logger:    logger,
		Estimator: budget.NewRuntime(0, 0),
		Inspector: bounds.New(),
		Decoder:   compose.ImagingDecoder{},
		Writer:    encode.NewWriter(),
		now:       time.Now,
	}
}

// Execute runs the complete inspect → plan → compose → encode pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Inspect
	inspectStart := time.Now()
	images, info, err := r.InspectWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Sources = images
	result.CacheInfo = info
	result.Stats.ImageCount = len(images)
	result.Stats.InspectTime = time.Since(inspectStart)

	r.Logger.Info("inspected images",
		"images", len(images),
		"cached", info.BoundsHits,
		"duration", result.Stats.InspectTime)

	// Stage 2: Plan
	planStart := time.Now()
	plan, err := r.Plan(ctx, images, opts)
	if err != nil {
		return nil, err
	}
	result.Plan = plan
	result.Stats.PlanTime = time.Since(planStart)

	r.Logger.Info("planned layout",
		"width", plan.Width,
		"height", plan.Height,
		"scale", plan.Scale,
		"duration", result.Stats.PlanTime)

	// Stage 3: Compose
	canvas, stats, err := r.Compose(ctx, images, plan, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.Decodes = stats.Decodes
	result.Stats.PeakBytes = stats.PeakBytes
	result.Stats.ComposeTime = stats.Duration

	r.Logger.Info("composed canvas",
		"decodes", stats.Decodes,
		"peak", budget.FormatBytes(stats.PeakBytes),
		"duration", stats.Duration)

	// Stage 4: Encode
	encodeStart := time.Now()
	output, err := r.Encode(ctx, canvas, plan, opts)
	if err != nil {
		return nil, err
	}
	result.Output = output
	result.Stats.EncodeTime = time.Since(encodeStart)

	r.Logger.Info("wrote output",
		"path", output,
		"duration", result.Stats.EncodeTime)

	return result, nil
}

// Inspect reads the bounds of every URI in opts, in order.
func (r *Runner) Inspect(ctx context.Context, opts Options) ([]source.SourceImage, error) {
	images, _, err := r.InspectWithCacheInfo(ctx, opts)
	return images, err
}

// InspectWithCacheInfo reads bounds with caching and reports cache usage.
// Bounds of local files are cached by path, size and modification time;
// anything that cannot be stat'ed is always read.
func (r *Runner) InspectWithCacheInfo(ctx context.Context, opts Options) ([]source.SourceImage, CacheInfo, error) {
	var info CacheInfo
	if err := opts.ValidateForInspect(); err != nil {
		return nil, info, err
	}

	hooks := observability.Affix()
	hooks.OnInspectStart(ctx, len(opts.URIs))
	start := time.Now()

	images := make([]source.SourceImage, len(opts.URIs))
	keys := make([]string, len(opts.URIs))
	var missing []int

	for i, uri := range opts.URIs {
		keys[i] = r.boundsKey(uri)
		if keys[i] != "" && !opts.Refresh {
			if img, ok := r.cachedBounds(ctx, keys[i]); ok {
				img.URI = uri
				images[i] = img
				info.BoundsHits++
				continue
			}
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		uris := make([]string, len(missing))
		for j, i := range missing {
			uris[j] = opts.URIs[i]
		}
		read, err := r.Inspector.InspectAll(ctx, uris)
		if err != nil {
			hooks.OnInspectComplete(ctx, len(opts.URIs), info.BoundsHits, time.Since(start), err)
			return nil, info, err
		}
		for j, i := range missing {
			images[i] = read[j]
			info.BoundsMisses++
			if keys[i] != "" {
				r.storeBounds(ctx, keys[i], read[j])
			}
		}
	}

	hooks.OnInspectComplete(ctx, len(opts.URIs), info.BoundsHits, time.Since(start), nil)
	return images, info, nil
}

// Plan computes the layout of images against the current memory budget.
func (r *Runner) Plan(ctx context.Context, images []source.SourceImage, opts Options) (layout.Plan, error) {
	if err := opts.ValidateForPlan(); err != nil {
		return layout.Plan{}, err
	}
	planner := layout.NewPlanner(r.Estimator, opts.MinScale)
	plan, err := planner.Plan(ctx, images, opts.LayoutOptions())
	observability.Affix().OnPlan(ctx, plan.Width, plan.Height, plan.Scale, plan.Budget, err)
	if err != nil {
		return layout.Plan{}, err
	}
	opts.Logger.Debug("layout planned",
		"natural", [2]int{plan.NaturalWidth, plan.NaturalHeight},
		"scale", plan.Scale,
		"peak", budget.FormatBytes(plan.PeakBytes),
		"budget", budget.FormatBytes(plan.Budget))
	return plan, nil
}

// Compose draws images onto a canvas according to plan.
func (r *Runner) Compose(ctx context.Context, images []source.SourceImage, plan layout.Plan, opts Options) (*image.NRGBA, compose.Stats, error) {
	hooks := observability.Affix()
	hooks.OnComposeStart(ctx, len(images), plan.Scale)

	engine := compose.NewEngine(r.Decoder, r.Estimator, r.Logger)
	canvas, stats, err := engine.Compose(ctx, plan, images, compose.Options{
		Progress: opts.Progress,
		Ceiling:  opts.Ceiling,
	})
	hooks.OnComposeComplete(ctx, stats.PeakBytes, stats.Duration, err)
	return canvas, stats, err
}

// Encode writes canvas to the target derived from opts and returns its path.
func (r *Runner) Encode(ctx context.Context, canvas image.Image, plan layout.Plan, opts Options) (string, error) {
	hooks := observability.Affix()
	hooks.OnEncodeStart(ctx, string(plan.Format))
	start := time.Now()

	path, err := r.Writer.Write(ctx, canvas, opts.Target(plan.Format, r.now()), plan.Format, plan.Quality)
	hooks.OnEncodeComplete(ctx, path, time.Since(start), err)
	return path, err
}

// Close releases the runner's cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) boundsKey(uri string) string {
	path, err := source.Path(uri)
	if err != nil {
		return ""
	}
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return ""
	}
	return r.Keyer.BoundsKey(path, fi.Size(), fi.ModTime())
}

func (r *Runner) cachedBounds(ctx context.Context, key string) (source.SourceImage, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "bounds")
		return source.SourceImage{}, false
	}
	var img source.SourceImage
	if err := json.Unmarshal(data, &img); err != nil || img.Width <= 0 || img.Height <= 0 {
		observability.Cache().OnCacheMiss(ctx, "bounds")
		return source.SourceImage{}, false
	}
	observability.Cache().OnCacheHit(ctx, "bounds")
	return img, true
}

func (r *Runner) storeBounds(ctx context.Context, key string, img source.SourceImage) {
	data, err := json.Marshal(img)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLBounds); err != nil {
		r.Logger.Debug("cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "bounds", len(data))
}
