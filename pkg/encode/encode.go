// Package encode writes composed images to disk.
//
// Output is written atomically: the image is encoded into a temporary file
// next to the target, synced, and renamed into place only when everything
// succeeded. A failed or cancelled write leaves no file behind.
package encode

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/photoaffix/pkg/errors"
)

// Format is an output image format.
type Format string

// Supported output formats.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	TIFF Format = "tiff"
	BMP  Format = "bmp"
)

// Formats lists the supported formats in display order.
var Formats = []Format{PNG, JPEG, TIFF, BMP}

// ParseFormat parses a format name or file extension ("jpg", ".png").
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "tif", "tiff":
		return TIFF, nil
	case "bmp":
		return BMP, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported output format %q (supported: png, jpeg, tiff, bmp)", s)
}

// FormatFromPath infers the format from a file name's extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Ext returns the canonical file extension without the dot.
func (f Format) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// Lossy reports whether quality affects the output.
func (f Format) Lossy() bool { return f == JPEG }

func (f Format) imaging() imaging.Format {
	switch f {
	case JPEG:
		return imaging.JPEG
	case TIFF:
		return imaging.TIFF
	case BMP:
		return imaging.BMP
	default:
		return imaging.PNG
	}
}

// DefaultTarget names an output file in dir after the given time.
func DefaultTarget(dir string, format Format, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("affix_%s.%s", now.Format("20060102_150405"), format.Ext()))
}

// Writer encodes images and writes them atomically.
type Writer struct {
	// Perm is the mode of written files (default 0644).
	Perm os.FileMode
}

// NewWriter creates a Writer with default permissions.
func NewWriter() *Writer {
	return &Writer{Perm: 0644}
}

// Write encodes img in format to target and returns the final path.
// quality applies to JPEG only. Failures, including an unusable target path,
// surface as IO_ERROR, or CANCELLED when ctx ends before the file is renamed
// into place.
func (w *Writer) Write(ctx context.Context, img image.Image, target string, format Format, quality int) (string, error) {
	if err := errors.Cancelled(ctx, "encode"); err != nil {
		return "", err
	}
	if err := errors.ValidateOutputPath(target); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "write %q", target)
	}
	if err := errors.ValidateQuality(quality); err != nil {
		return "", err
	}

	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "create output in %s", dir)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := imaging.Encode(tmp, img, format.imaging(), imaging.JPEGQuality(quality)); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "encode %s", format)
	}
	if err := tmp.Sync(); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "sync output")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "close output")
	}
	if err := os.Chmod(tmpPath, w.perm()); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "set output permissions")
	}

	if err := errors.Cancelled(ctx, "encode"); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "move output into place")
	}
	committed = true
	return target, nil
}

func (w *Writer) perm() os.FileMode {
	if w.Perm == 0 {
		return 0644
	}
	return w.Perm
}

// Discard removes a previously written output. A missing file is not an error.
func Discard(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeIO, err, "discard %s", path)
	}
	return nil
}
