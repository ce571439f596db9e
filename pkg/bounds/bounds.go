// Package bounds reads image dimensions and orientation without decoding pixels.
//
// Only the image header is parsed (image.DecodeConfig), plus the EXIF block of
// JPEG files for the orientation tag. No bitmap is ever allocated, so
// inspecting a large selection costs a few kilobytes per image regardless of
// resolution.
//
// Supported formats are JPEG, PNG and GIF from the standard library, and WebP,
// BMP and TIFF from golang.org/x/image.
package bounds

import (
	"bufio"
	"context"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"
	"runtime"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// OpenFunc opens the image behind a URI.
type OpenFunc func(uri string) (io.ReadCloser, error)

// Inspector reads bounds for source images.
type Inspector struct {
	open        OpenFunc
	concurrency int
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithOpener replaces the function used to open URIs (default source.Open).
func WithOpener(fn OpenFunc) Option {
	return func(i *Inspector) { i.open = fn }
}

// WithConcurrency bounds the number of images InspectAll reads at once.
func WithConcurrency(n int) Option {
	return func(i *Inspector) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// New creates an Inspector.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		open:        source.Open,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inspect returns the declared dimensions and orientation of the image at uri.
// It fails with errors.ErrCodeDecode if the image is unreadable or its format
// is unsupported.
func (i *Inspector) Inspect(ctx context.Context, uri string) (source.SourceImage, error) {
	if err := errors.Cancelled(ctx, "inspect"); err != nil {
		return source.SourceImage{}, err
	}

	cfg, format, err := i.decodeConfig(uri)
	if err != nil {
		return source.SourceImage{}, errors.Wrap(errors.ErrCodeDecode, err, "read bounds of %s", uri)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return source.SourceImage{}, errors.New(errors.ErrCodeDecode, "%s declares empty bounds %dx%d", uri, cfg.Width, cfg.Height)
	}

	img := source.SourceImage{
		URI:         uri,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Orientation: source.OrientationNormal,
		Format:      format,
	}
	if format == "jpeg" {
		img.Orientation = i.orientation(uri)
	}
	return img, nil
}

// InspectAll inspects uris and returns their bounds in the same order.
// Reads run concurrently since they touch metadata only; the first failure
// cancels the remaining reads and is returned.
func (i *Inspector) InspectAll(ctx context.Context, uris []string) ([]source.SourceImage, error) {
	out := make([]source.SourceImage, len(uris))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for idx, uri := range uris {
		g.Go(func() error {
			img, err := i.Inspect(gctx, uri)
			if err != nil {
				return err
			}
			out[idx] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (i *Inspector) decodeConfig(uri string) (image.Config, string, error) {
	rc, err := i.open(uri)
	if err != nil {
		return image.Config{}, "", err
	}
	defer rc.Close()
	return image.DecodeConfig(bufio.NewReader(rc))
}

// orientation reads the EXIF orientation tag. Missing or malformed EXIF data
// means the image is upright.
func (i *Inspector) orientation(uri string) source.Orientation {
	rc, err := i.open(uri)
	if err != nil {
		return source.OrientationNormal
	}
	defer rc.Close()

	x, err := exif.Decode(rc)
	if err != nil {
		return source.OrientationNormal
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return source.OrientationNormal
	}
	v, err := tag.Int(0)
	if err != nil {
		return source.OrientationNormal
	}
	if o := source.Orientation(v); o.Valid() {
		return o
	}
	return source.OrientationNormal
}
