package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// MinImages is the smallest number of images an affix request accepts.
const MinImages = 2

// ValidateImageCount rejects requests with fewer than MinImages images.
func ValidateImageCount(n int) error {
	if n < MinImages {
		return New(ErrCodeValidation, "need two or more images to affix (got %d)", n)
	}
	return nil
}

// ValidateSpacing rejects negative spacing values.
func ValidateSpacing(px int) error {
	if px < 0 {
		return New(ErrCodeValidation, "spacing cannot be negative (got %d)", px)
	}
	return nil
}

// ValidateQuality checks that a lossy quality is within [0, 100].
func ValidateQuality(q int) error {
	if q < 0 || q > 100 {
		return New(ErrCodeValidation, "quality must be between 0 and 100 (got %d)", q)
	}
	return nil
}

// ValidateScale checks that a forced scale factor is within (0, 1].
// Zero means "choose automatically" and is accepted.
func ValidateScale(s float64) error {
	if s < 0 || s > 1 {
		return New(ErrCodeValidation, "scale must be within (0, 1] (got %g)", s)
	}
	return nil
}

// ValidateOutputPath validates an output file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Must name a file, not a directory
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "output path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "output path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, string(filepath.Separator)) || strings.HasSuffix(path, "/") {
		return New(ErrCodeInvalidPath, "output path must name a file, not a directory")
	}
	base := filepath.Base(path)
	if base == "." || base == ".." {
		return New(ErrCodeInvalidPath, "output path must name a file")
	}

	return nil
}
