package encode

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/photoaffix/pkg/errors"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 12, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 30), B: 50, A: 255})
		}
	}
	return img
}

// entries lists the names in dir, failing the test on error.
func entries(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

func TestWriteFormats(t *testing.T) {
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			dir := t.TempDir()
			target := filepath.Join(dir, "out."+f.Ext())

			got, err := NewWriter().Write(context.Background(), testImage(), target, f, 80)
			if err != nil {
				t.Fatalf("Write() error: %v", err)
			}
			if got != target {
				t.Errorf("Write() = %s, want %s", got, target)
			}

			decoded, err := imaging.Open(target)
			if err != nil {
				t.Fatalf("written file does not decode: %v", err)
			}
			if decoded.Bounds().Dx() != 12 || decoded.Bounds().Dy() != 8 {
				t.Errorf("decoded bounds = %v, want 12x8", decoded.Bounds())
			}
			if names := entries(t, dir); len(names) != 1 {
				t.Errorf("dir contains %v, want only the output", names)
			}
		})
	}
}

func TestWriteLosslessRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := testImage()
	target := filepath.Join(dir, "out.png")
	if _, err := NewWriter().Write(context.Background(), src, target, PNG, 0); err != nil {
		t.Fatal(err)
	}
	decoded, err := imaging.Open(target)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			want := src.NRGBAAt(x, y)
			r, g, b, a := decoded.At(x, y).RGBA()
			got := color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
			if got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestWriteFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.png")

	// An empty image cannot be encoded as PNG.
	_, err := NewWriter().Write(context.Background(), image.NewNRGBA(image.Rect(0, 0, 0, 0)), target, PNG, 0)
	if !errors.Is(err, errors.ErrCodeIO) {
		t.Fatalf("Write() error = %v, want %s", err, errors.ErrCodeIO)
	}
	if names := entries(t, dir); len(names) != 0 {
		t.Errorf("dir contains %v after failed write, want nothing", names)
	}
}

func TestWriteMissingDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "missing", "out.png")
	_, err := NewWriter().Write(context.Background(), testImage(), target, PNG, 0)
	if !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("Write() error = %v, want %s", err, errors.ErrCodeIO)
	}
}

func TestWriteCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWriter().Write(ctx, testImage(), filepath.Join(dir, "out.png"), PNG, 0)
	if !errors.Is(err, errors.ErrCodeCancelled) {
		t.Fatalf("Write() error = %v, want %s", err, errors.ErrCodeCancelled)
	}
	if names := entries(t, dir); len(names) != 0 {
		t.Errorf("dir contains %v after cancelled write, want nothing", names)
	}
}

func TestWriteValidation(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		target  string
		quality int
		code    errors.Code
	}{
		{"empty target", "", 90, errors.ErrCodeIO},
		{"directory target", dir + "/", 90, errors.ErrCodeIO},
		{"bad quality", filepath.Join(dir, "x.jpg"), 120, errors.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWriter().Write(context.Background(), testImage(), tt.target, JPEG, tt.quality)
			if !errors.Is(err, tt.code) {
				t.Errorf("Write() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestWriteInvalidPathKeepsCause(t *testing.T) {
	_, err := NewWriter().Write(context.Background(), testImage(), "", PNG, 0)
	var pathErr *errors.Error
	if !stderrors.As(stderrors.Unwrap(err), &pathErr) || pathErr.Code != errors.ErrCodeInvalidPath {
		t.Errorf("cause = %v, want %s", stderrors.Unwrap(err), errors.ErrCodeInvalidPath)
	}
}

// noise fills an image with pseudo-random pixels so lossy quality shows up
// in the encoded size.
func noise(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	seed := uint32(7)
	for i := range img.Pix {
		seed = seed*1664525 + 1013904223
		img.Pix[i] = uint8(seed >> 24)
	}
	return img
}

func TestWriteJPEGQualityZero(t *testing.T) {
	dir := t.TempDir()
	img := noise(64, 64)

	sizes := map[int]int64{}
	for _, q := range []int{0, 100} {
		target := filepath.Join(dir, fmt.Sprintf("q%d.jpg", q))
		if _, err := NewWriter().Write(context.Background(), img, target, JPEG, q); err != nil {
			t.Fatalf("Write(quality %d) error: %v", q, err)
		}
		fi, err := os.Stat(target)
		if err != nil {
			t.Fatal(err)
		}
		sizes[q] = fi.Size()
	}
	if sizes[0] >= sizes[100] {
		t.Errorf("quality 0 wrote %d bytes, quality 100 wrote %d; want quality 0 smaller", sizes[0], sizes[100])
	}
}

func TestWriteOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.png")
	if err := os.WriteFile(target, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewWriter().Write(context.Background(), testImage(), target, PNG, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := imaging.Open(target); err != nil {
		t.Errorf("target was not replaced: %v", err)
	}
}

func TestDiscard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Discard(path); err != nil {
		t.Fatalf("Discard() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after Discard")
	}
	if err := Discard(path); err != nil {
		t.Errorf("Discard() of missing file error: %v", err)
	}
	if err := Discard(""); err != nil {
		t.Errorf("Discard(\"\") error: %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"png", PNG, false},
		{".PNG", PNG, false},
		{"jpg", JPEG, false},
		{"jpeg", JPEG, false},
		{"tif", TIFF, false},
		{"bmp", BMP, false},
		{"gif", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ParseFormat(%q) code = %s, want %s", tt.in, errors.GetCode(err), errors.ErrCodeInvalidFormat)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultTarget(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	got := DefaultTarget("/tmp/out", JPEG, now)
	want := filepath.Join("/tmp/out", "affix_20240309_140507.jpg")
	if got != want {
		t.Errorf("DefaultTarget() = %s, want %s", got, want)
	}
}
