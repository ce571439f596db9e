package layout

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/matzehuels/photoaffix/pkg/budget"
	"github.com/matzehuels/photoaffix/pkg/encode"
	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/source"
)

const (
	// DefaultMinScale is the smallest scale candidate tried (1/16).
	DefaultMinScale = 1.0 / 16

	// DefaultQuality is the JPEG quality used when none is chosen.
	DefaultQuality = 90
)

// QualityOf returns q in the form Options.Quality takes.
func QualityOf(q int) *int {
	return &q
}

// Options configures a layout computation.
type Options struct {
	Direction  Direction
	Spacing    int     // pixels between adjacent images, before scaling
	Scale      float64 // forced scale factor in (0, 1]; 0 selects automatically
	Format     encode.Format
	Quality    *int // nil selects DefaultQuality; 0 is a valid quality
	Background color.NRGBA
	Budget     int64   // bytes available for one decode+draw cycle
	MinScale   float64 // smallest automatic scale; 0 means DefaultMinScale
}

// ValidateAndSetDefaults validates options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if err := errors.ValidateSpacing(o.Spacing); err != nil {
		return err
	}
	if err := errors.ValidateScale(o.Scale); err != nil {
		return err
	}
	if o.Format == "" {
		o.Format = encode.PNG
	}
	if _, err := encode.ParseFormat(string(o.Format)); err != nil {
		return err
	}
	quality := DefaultQuality
	if o.Quality != nil {
		quality = *o.Quality
	}
	if err := errors.ValidateQuality(quality); err != nil {
		return err
	}
	o.Quality = &quality
	if o.MinScale <= 0 || o.MinScale > 1 {
		o.MinScale = DefaultMinScale
	}
	return nil
}

// Plan is the computed geometry of one affix request.
type Plan struct {
	Direction     Direction
	Spacing       int
	Scale         float64
	NaturalWidth  int
	NaturalHeight int
	Width         int
	Height        int
	Offsets       []image.Point // top-left corner of each image on the canvas
	Sizes         []image.Point // scaled display size of each image
	Format        encode.Format
	Quality       int
	Background    color.NRGBA
	PeakBytes     int64 // estimated peak for the chosen scale
	Budget        int64 // budget the scale was chosen against
}

// Rect returns the destination rectangle of image i.
func (p Plan) Rect(i int) image.Rectangle {
	return image.Rectangle{Min: p.Offsets[i], Max: p.Offsets[i].Add(p.Sizes[i])}
}

// CanvasBytes is the memory the destination canvas needs.
func (p Plan) CanvasBytes() int64 {
	return int64(p.Width) * int64(p.Height) * 4
}

// ScaledSpacing is the gap between images on the canvas.
func (p Plan) ScaledSpacing() int {
	return scaleExtent(p.Spacing, p.Scale)
}

// Compute plans the layout of images under opts.Budget.
//
// It fails with VALIDATION_ERROR for fewer than two images or invalid
// options, and with LAYOUT_ERROR when no scale candidate (or the forced
// scale) fits the budget.
func Compute(images []source.SourceImage, opts Options) (Plan, error) {
	if err := errors.ValidateImageCount(len(images)); err != nil {
		return Plan{}, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Plan{}, err
	}

	natW, natH := naturalSize(images, opts.Direction, opts.Spacing)
	srcBytes := maxSourceBytes(images)

	p := Plan{
		Direction:     opts.Direction,
		Spacing:       opts.Spacing,
		NaturalWidth:  natW,
		NaturalHeight: natH,
		Format:        opts.Format,
		Quality:       *opts.Quality,
		Background:    opts.Background,
		Budget:        opts.Budget,
	}

	if opts.Scale > 0 {
		peak := peakBytes(images, opts.Direction, opts.Spacing, opts.Scale, srcBytes)
		if peak > opts.Budget {
			return Plan{}, errors.New(errors.ErrCodeLayout,
				"scale %g needs %s, only %s available", opts.Scale,
				budget.FormatBytes(peak), budget.FormatBytes(opts.Budget))
		}
		p.apply(images, opts.Scale, peak)
		return p, nil
	}

	for _, s := range Candidates(opts.MinScale) {
		peak := peakBytes(images, opts.Direction, opts.Spacing, s, srcBytes)
		if peak <= opts.Budget {
			p.apply(images, s, peak)
			return p, nil
		}
	}
	return Plan{}, errors.New(errors.ErrCodeLayout,
		"%d images (%dx%d) do not fit in %s even at scale %g",
		len(images), natW, natH, budget.FormatBytes(opts.Budget), opts.MinScale)
}

// Candidates lists the automatic scale factors from 1 down to minScale.
func Candidates(minScale float64) []float64 {
	if minScale <= 0 || minScale > 1 {
		minScale = DefaultMinScale
	}
	var out []float64
	for s := 1.0; s >= minScale; s /= 2 {
		out = append(out, s)
	}
	return out
}

func (p *Plan) apply(images []source.SourceImage, s float64, peak int64) {
	p.Scale = s
	p.PeakBytes = peak
	p.Offsets = make([]image.Point, len(images))
	p.Sizes = make([]image.Point, len(images))

	gap := p.ScaledSpacing()
	pos := 0
	for i, img := range images {
		w := scaleExtent(img.DisplayWidth(), s)
		h := scaleExtent(img.DisplayHeight(), s)
		p.Sizes[i] = image.Pt(w, h)
		if p.Direction == Horizontal {
			p.Offsets[i] = image.Pt(pos, 0)
			pos += w
		} else {
			p.Offsets[i] = image.Pt(0, pos)
			pos += h
		}
		if i < len(images)-1 {
			pos += gap
		}
	}
	p.Width, p.Height = scaledSize(images, p.Direction, p.Spacing, s)
}

// naturalSize is the unscaled canvas size.
func naturalSize(images []source.SourceImage, dir Direction, spacing int) (int, int) {
	return scaledSize(images, dir, spacing, 1)
}

// scaledSize sums scaled extents along the stack axis and takes the maximum
// across it, so it always matches the geometry produced by apply.
func scaledSize(images []source.SourceImage, dir Direction, spacing int, s float64) (int, int) {
	along, across := 0, 0
	for _, img := range images {
		w := scaleExtent(img.DisplayWidth(), s)
		h := scaleExtent(img.DisplayHeight(), s)
		if dir == Horizontal {
			w, h = h, w
		}
		along += h
		across = max(across, w)
	}
	along += scaleExtent(spacing, s) * (len(images) - 1)
	if dir == Horizontal {
		return along, across
	}
	return across, along
}

func peakBytes(images []source.SourceImage, dir Direction, spacing int, s float64, srcBytes int64) int64 {
	w, h := scaledSize(images, dir, spacing, s)
	return int64(w)*int64(h)*4 + srcBytes
}

func maxSourceBytes(images []source.SourceImage) int64 {
	var m int64
	for _, img := range images {
		m = max(m, img.DecodedBytes())
	}
	return m
}

// scaleExtent scales a pixel extent, never collapsing a non-zero extent to 0.
func scaleExtent(px int, s float64) int {
	if px == 0 {
		return 0
	}
	return max(1, int(math.Round(float64(px)*s)))
}

// Planner computes layouts against a live memory budget.
type Planner struct {
	Estimator budget.Estimator
	MinScale  float64
}

// NewPlanner creates a Planner. A nil estimator means an unlimited budget.
func NewPlanner(est budget.Estimator, minScale float64) *Planner {
	if est == nil {
		est = budget.Static(budget.Unlimited)
	}
	return &Planner{Estimator: est, MinScale: minScale}
}

// Plan evaluates the budget once and computes the layout.
func (p *Planner) Plan(ctx context.Context, images []source.SourceImage, opts Options) (Plan, error) {
	if err := errors.Cancelled(ctx, "plan"); err != nil {
		return Plan{}, err
	}
	b, err := p.Estimator.Budget(ctx)
	if err != nil {
		return Plan{}, errors.Wrap(errors.ErrCodeInternal, err, "estimate memory budget")
	}
	opts.Budget = b
	if opts.MinScale == 0 {
		opts.MinScale = p.MinScale
	}
	return Compute(images, opts)
}
