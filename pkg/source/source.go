package source

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"
)

// Photo is a candidate image offered for selection.
type Photo struct {
	ID        int64     `json:"id"`
	URI       string    `json:"uri"`
	Timestamp time.Time `json:"timestamp"`
}

// Orientation is the EXIF orientation tag (1-8). Zero is treated as 1.
type Orientation int

// EXIF orientation values.
const (
	OrientationNormal     Orientation = 1
	OrientationFlipH      Orientation = 2
	OrientationRotate180  Orientation = 3
	OrientationFlipV      Orientation = 4
	OrientationTranspose  Orientation = 5
	OrientationRotate270  Orientation = 6
	OrientationTransverse Orientation = 7
	OrientationRotate90   Orientation = 8
)

// SwapsAxes reports whether displaying the image upright exchanges its width
// and height (orientations 5 through 8).
func (o Orientation) SwapsAxes() bool {
	return o >= OrientationTranspose && o <= OrientationRotate90
}

// Valid reports whether o is a defined EXIF orientation.
func (o Orientation) Valid() bool {
	return o >= OrientationNormal && o <= OrientationRotate90
}

// SourceImage is an inspected image. It is immutable after inspection.
type SourceImage struct {
	URI         string      `json:"uri"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Orientation Orientation `json:"orientation"`
	Format      string      `json:"format"`
}

// DisplayWidth is the width of the image as it appears upright.
func (s SourceImage) DisplayWidth() int {
	if s.Orientation.SwapsAxes() {
		return s.Height
	}
	return s.Width
}

// DisplayHeight is the height of the image as it appears upright.
func (s SourceImage) DisplayHeight() int {
	if s.Orientation.SwapsAxes() {
		return s.Width
	}
	return s.Height
}

// DecodedBytes is the memory a fully decoded 8-bit RGBA copy of the image needs.
func (s SourceImage) DecodedBytes() int64 {
	return int64(s.Width) * int64(s.Height) * 4
}

// String implements fmt.Stringer.
func (s SourceImage) String() string {
	return fmt.Sprintf("%s (%dx%d %s, orientation %d)", s.URI, s.Width, s.Height, s.Format, s.Orientation)
}

// Path resolves a URI to a filesystem path.
// Plain paths are returned unchanged; file:// URLs are unescaped.
func Path(uri string) (string, error) {
	if !strings.Contains(uri, "://") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return u.Path, nil
}

// Open opens the image behind uri for reading.
func Open(uri string) (io.ReadCloser, error) {
	path, err := Path(uri)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// URIs returns the URIs of photos, preserving order.
func URIs(photos []Photo) []string {
	uris := make([]string, len(photos))
	for i, p := range photos {
		uris[i] = p.URI
	}
	return uris
}

// FromPaths builds photos from explicit paths, keeping their order.
// IDs are positional; timestamps come from the file modification time when
// the file can be stat'ed.
func FromPaths(paths []string) []Photo {
	photos := make([]Photo, len(paths))
	for i, p := range paths {
		photos[i] = Photo{ID: int64(i + 1), URI: p}
		if path, err := Path(p); err == nil {
			if info, err := os.Stat(path); err == nil {
				photos[i].Timestamp = info.ModTime()
			}
		}
	}
	return photos
}
