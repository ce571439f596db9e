// Package pipeline runs the affixing stages for photoaffix.
//
// This package implements the inspect → plan → compose → encode pipeline
// used by both the interactive coordinator and the one-shot CLI commands.
// By centralizing this logic, every entry point shares the same caching,
// validation and instrumentation.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Inspect: Read bounds and orientation of every source (cached)
//  2. Plan: Compute canvas geometry and the scale that fits the memory budget
//  3. Compose: Decode each source in turn and draw it onto the canvas
//  4. Encode: Write the canvas atomically in the chosen format
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    URIs:      []string{"a.jpg", "b.jpg"},
//	    Direction: layout.Vertical,
//	    Spacing:   20,
//	    OutputDir: ".",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Output)
//
// Run individual stages:
//
//	images, err := runner.Inspect(ctx, opts)
//	plan, err := runner.Plan(ctx, images, opts)
//	canvas, stats, err := runner.Compose(ctx, images, plan, opts)
//	output, err := runner.Encode(ctx, canvas, plan, opts)
package pipeline

import (
	"image/color"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/photoaffix/pkg/compose"
	"github.com/matzehuels/photoaffix/pkg/encode"
	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/layout"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one affix run.
type Options struct {
	// Inspect options
	URIs    []string `json:"uris"`
	Refresh bool     `json:"refresh,omitempty"` // ignore cached bounds

	// Plan options
	Direction  layout.Direction `json:"direction"`
	Spacing    int              `json:"spacing,omitempty"`
	Scale      float64          `json:"scale,omitempty"` // 0 selects automatically
	MinScale   float64          `json:"min_scale,omitempty"`
	Format     encode.Format    `json:"format,omitempty"`
	Quality    *int             `json:"quality,omitempty"`
	Background color.NRGBA      `json:"-"`

	// Output options
	Output    string `json:"output,omitempty"`     // explicit target path
	OutputDir string `json:"output_dir,omitempty"` // used with a generated name when Output is empty

	// Runtime options (not serialized)
	Ceiling  int64                `json:"-"` // hard cap for the composition ledger
	Progress compose.ProgressFunc `json:"-"`
	Logger   *log.Logger          `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Sources are the inspected images in input order.
	Sources []source.SourceImage

	// Plan is the layout the canvas was drawn with.
	Plan layout.Plan

	// Output is the path of the written file.
	Output string

	// Stats contains timing and memory information.
	Stats Stats

	// CacheInfo tracks bounds cache usage.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ImageCount  int
	Decodes     int
	PeakBytes   int64
	InspectTime time.Duration
	PlanTime    time.Duration
	ComposeTime time.Duration
	EncodeTime  time.Duration
}

// CacheInfo tracks cache usage of the inspect stage.
type CacheInfo struct {
	BoundsHits   int // sources whose bounds came from cache
	BoundsMisses int // sources that had to be read
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := errors.ValidateImageCount(len(o.URIs)); err != nil {
		return err
	}
	if err := o.ValidateForPlan(); err != nil {
		return err
	}
	if o.Output != "" {
		if err := errors.ValidateOutputPath(o.Output); err != nil {
			return err
		}
	}
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	o.validated = true
	return nil
}

// ValidateForInspect checks that there is something to inspect.
func (o *Options) ValidateForInspect() error {
	if len(o.URIs) == 0 {
		return errors.New(errors.ErrCodeValidation, "no images given")
	}
	o.setLoggerDefault()
	return nil
}

// ValidateForPlan validates and sets defaults for layout planning.
func (o *Options) ValidateForPlan() error {
	lo := o.LayoutOptions()
	if err := lo.ValidateAndSetDefaults(); err != nil {
		return err
	}
	o.Format = lo.Format
	o.Quality = lo.Quality
	o.MinScale = lo.MinScale
	o.setLoggerDefault()
	return nil
}

// LayoutOptions converts the plan options for the layout package.
func (o *Options) LayoutOptions() layout.Options {
	return layout.Options{
		Direction:  o.Direction,
		Spacing:    o.Spacing,
		Scale:      o.Scale,
		Format:     o.Format,
		Quality:    o.Quality,
		Background: o.Background,
		MinScale:   o.MinScale,
	}
}

// Target returns the output path for a plan, generating a timestamped name
// in OutputDir when Output is empty.
func (o *Options) Target(format encode.Format, now time.Time) string {
	if o.Output != "" {
		return o.Output
	}
	dir := o.OutputDir
	if dir == "" {
		dir = "."
	}
	return encode.DefaultTarget(dir, format, now)
}

func (o *Options) setLoggerDefault() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}
