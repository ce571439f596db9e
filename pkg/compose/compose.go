// Package compose draws planned images onto a single canvas.
//
// The engine allocates the destination canvas once and then processes the
// sources strictly one at a time: decode, scale-draw into the planned
// rectangle, release. At most one decoded source is alive next to the canvas,
// which is the memory shape the layout planner budgets for.
//
// Before every decode the engine checks for cancellation and re-evaluates the
// memory budget, so a request that is superseded or whose budget collapses
// stops between images and never produces a partial canvas.
package compose

import (
	"context"
	stderrors "errors"
	"image"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/matzehuels/photoaffix/pkg/budget"
	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/layout"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// ErrAllocation is returned (possibly wrapped) by decoders that could not
// allocate a bitmap. The engine reports it as MEMORY_PRESSURE.
var ErrAllocation = stderrors.New("bitmap allocation failed")

// Decoder decodes a source image into an upright bitmap.
type Decoder interface {
	Decode(ctx context.Context, img source.SourceImage) (image.Image, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, img source.SourceImage) (image.Image, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(ctx context.Context, img source.SourceImage) (image.Image, error) {
	return f(ctx, img)
}

// ImagingDecoder decodes with disintegration/imaging and applies the EXIF
// orientation, so the result has the image's display dimensions.
type ImagingDecoder struct {
	Open func(uri string) (io.ReadCloser, error)
}

// Decode implements Decoder.
func (d ImagingDecoder) Decode(_ context.Context, img source.SourceImage) (image.Image, error) {
	open := d.Open
	if open == nil {
		open = source.Open
	}
	rc, err := open(img.URI)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return imaging.Decode(rc, imaging.AutoOrientation(true))
}

// ProgressFunc is called after each image has been drawn.
type ProgressFunc func(done, total int)

// Options configures one composition.
type Options struct {
	// Progress, if set, is called after each image.
	Progress ProgressFunc
	// Ceiling, if positive, is a hard cap on the bytes the canvas and the
	// current source may hold together.
	Ceiling int64
}

// Stats describes a finished composition.
type Stats struct {
	Decodes     int
	Releases    int
	PeakBytes   int64
	CanvasBytes int64
	Duration    time.Duration
}

// Engine composes planned images.
type Engine struct {
	Decoder   Decoder
	Estimator budget.Estimator
	Logger    *log.Logger
}

// NewEngine creates an Engine. Nil arguments select the imaging decoder, an
// unlimited budget and a discarding logger.
func NewEngine(dec Decoder, est budget.Estimator, logger *log.Logger) *Engine {
	if dec == nil {
		dec = ImagingDecoder{}
	}
	if est == nil {
		est = budget.Static(budget.Unlimited)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{Decoder: dec, Estimator: est, Logger: logger}
}

// Compose draws images onto a canvas laid out by plan.
//
// Errors: DECODE_ERROR if a source cannot be decoded, MEMORY_PRESSURE if the
// budget no longer covers the next source or the decoder reports
// ErrAllocation, CANCELLED if ctx ends. On error the canvas is dropped.
func (e *Engine) Compose(ctx context.Context, plan layout.Plan, images []source.SourceImage, opts Options) (*image.NRGBA, Stats, error) {
	start := time.Now()
	var stats Stats

	if len(images) != len(plan.Offsets) || len(images) != len(plan.Sizes) {
		return nil, stats, errors.New(errors.ErrCodeInternal,
			"plan covers %d images, got %d", len(plan.Offsets), len(images))
	}
	if err := errors.Cancelled(ctx, "compose"); err != nil {
		return nil, stats, err
	}

	ledger := budget.NewLedger(opts.Ceiling)
	stats.CanvasBytes = plan.CanvasBytes()
	if err := ledger.Acquire(stats.CanvasBytes); err != nil {
		return nil, stats, err
	}
	canvas := newCanvas(plan)

	for i, img := range images {
		if err := e.drawOne(ctx, canvas, plan.Rect(i), img, ledger, &stats); err != nil {
			e.Logger.Debug("composition aborted", "image", i, "uri", img.URI, "err", err)
			return nil, stats, err
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(images))
		}
	}

	stats.PeakBytes = ledger.Peak()
	stats.Duration = time.Since(start)
	e.Logger.Debug("composed canvas",
		"width", plan.Width,
		"height", plan.Height,
		"images", len(images),
		"peak", budget.FormatBytes(stats.PeakBytes),
		"duration", stats.Duration)
	return canvas, stats, nil
}

// drawOne runs one decode-draw-release cycle.
func (e *Engine) drawOne(ctx context.Context, canvas *image.NRGBA, dst image.Rectangle, img source.SourceImage, ledger *budget.Ledger, stats *Stats) error {
	if err := errors.Cancelled(ctx, "compose"); err != nil {
		return err
	}

	need := img.DecodedBytes()
	avail, err := e.Estimator.Budget(ctx)
	if err != nil {
		if ctxErr := errors.Cancelled(ctx, "compose"); ctxErr != nil {
			return ctxErr
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "estimate memory budget")
	}
	if err := budget.CheckViable(avail, need); err != nil {
		return err
	}
	if err := ledger.Acquire(need); err != nil {
		return err
	}
	defer func() {
		ledger.Release(need)
		stats.Releases++
	}()

	src, err := e.Decoder.Decode(ctx, img)
	stats.Decodes++
	if err != nil {
		switch {
		case stderrors.Is(err, ErrAllocation):
			return errors.Wrap(errors.ErrCodeMemoryPressure, err, "decode %s", img.URI)
		case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
			return errors.Wrap(errors.ErrCodeCancelled, err, "compose cancelled")
		}
		return errors.Wrap(errors.ErrCodeDecode, err, "decode %s", img.URI)
	}

	sb := src.Bounds()
	if sb.Size() == dst.Size() {
		draw.Draw(canvas, dst, src, sb.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(canvas, dst, src, sb, draw.Src, nil)
	}
	return nil
}

func newCanvas(plan layout.Plan) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, plan.Width, plan.Height))
	if plan.Background.A != 0 {
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(plan.Background), image.Point{}, draw.Src)
	}
	return canvas
}
