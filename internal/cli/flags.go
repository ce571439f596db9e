package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/photoaffix/pkg/config"
	"github.com/matzehuels/photoaffix/pkg/encode"
	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/layout"
	"github.com/matzehuels/photoaffix/pkg/pipeline"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// inputFlags select the photos a command works on.
type inputFlags struct {
	dir     string
	count   int
	refresh bool
}

func (f *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.dir, "dir", "", "take photos from this directory, newest first")
	fs.IntVarP(&f.count, "count", "n", 0, "with --dir, use only the newest N photos (0 = all)")
	fs.BoolVar(&f.refresh, "refresh", false, "ignore cached bounds")
}

// photos resolves the photos from positional args or --dir.
func (f *inputFlags) photos(args []string) ([]source.Photo, error) {
	if f.dir == "" {
		return source.FromPaths(args), nil
	}
	if len(args) > 0 {
		return nil, errors.New(errors.ErrCodeValidation, "give either photo paths or --dir, not both")
	}
	photos, err := source.Scan(f.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "scan %s", f.dir)
	}
	if f.count > 0 && f.count < len(photos) {
		photos = photos[:f.count]
	}
	return photos, nil
}

// layoutFlags override the layout and output settings of the config file.
// Only flags set on the command line take effect.
type layoutFlags struct {
	direction  string
	spacing    int
	format     string
	quality    int
	background string
	scale      float64
	minScale   float64
	output     string
	outputDir  string
}

func (f *layoutFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.direction, "direction", "d", "", "stacking direction: vertical (default), horizontal")
	fs.IntVar(&f.spacing, "spacing", 0, "gap between photos in pixels")
	fs.StringVarP(&f.format, "format", "f", "", "output format: png (default), jpeg, tiff, bmp")
	fs.IntVarP(&f.quality, "quality", "q", 0, "JPEG quality 0-100")
	fs.StringVar(&f.background, "background", "", "fill colour for gaps, e.g. #000000 or transparent")
	fs.Float64Var(&f.scale, "scale", 0, "force a scale factor in (0, 1] instead of choosing one")
	fs.Float64Var(&f.minScale, "min-scale", 0, "smallest scale the planner may choose")
	fs.StringVarP(&f.output, "output", "o", "", "output file (default: affix_<timestamp>.<ext> in the output directory)")
	fs.StringVar(&f.outputDir, "output-dir", "", "directory for generated output names")
}

// apply builds pipeline options and live settings from cfg with the flags
// that were set on cmd layered on top.
func (f *layoutFlags) apply(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, *config.Settings, error) {
	changed := cmd.Flags().Changed
	var opts pipeline.Options

	settings, err := cfg.Settings()
	if err != nil {
		return opts, nil, err
	}
	if changed("direction") {
		dir, err := layout.ParseDirection(f.direction)
		if err != nil {
			return opts, nil, err
		}
		settings.SetDirection(dir)
	}
	if changed("spacing") {
		if err := errors.ValidateSpacing(f.spacing); err != nil {
			return opts, nil, err
		}
		settings.SetSpacing(f.spacing, f.spacing)
	}

	opts.Format, err = encode.ParseFormat(cfg.Format)
	if err != nil {
		return opts, nil, err
	}
	switch {
	case changed("format"):
		if opts.Format, err = encode.ParseFormat(f.format); err != nil {
			return opts, nil, err
		}
	case f.output != "":
		if inferred, err := encode.FormatFromPath(f.output); err == nil {
			opts.Format = inferred
		}
	}

	opts.Quality = layout.QualityOf(cfg.Quality)
	if changed("quality") {
		opts.Quality = layout.QualityOf(f.quality)
	}
	bg := cfg.Background
	if changed("background") {
		bg = f.background
	}
	if opts.Background, err = config.ParseColor(bg); err != nil {
		return opts, nil, err
	}
	opts.MinScale = cfg.MinScale
	if changed("min-scale") {
		opts.MinScale = f.minScale
	}
	if err := errors.ValidateScale(f.scale); err != nil {
		return opts, nil, err
	}
	opts.Scale = f.scale

	opts.Output = f.output
	opts.OutputDir = cfg.OutputDir
	if changed("output-dir") {
		opts.OutputDir = f.outputDir
	}
	opts.Ceiling = ceiling(cfg)

	opts.Direction = settings.Direction()
	opts.Spacing = settings.Spacing()
	return opts, settings, nil
}
