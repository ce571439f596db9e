package errors

import (
	"strings"
	"testing"
)

func TestValidateImageCount(t *testing.T) {
	tests := []struct {
		n       int
		wantErr bool
	}{
		{0, true},
		{1, true},
		{2, false},
		{10, false},
	}

	for _, tt := range tests {
		err := ValidateImageCount(tt.n)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateImageCount(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
		if err != nil && !Is(err, ErrCodeValidation) {
			t.Errorf("ValidateImageCount(%d) code = %v, want %v", tt.n, GetCode(err), ErrCodeValidation)
		}
	}
}

func TestValidateSpacing(t *testing.T) {
	if err := ValidateSpacing(0); err != nil {
		t.Errorf("zero spacing should pass: %v", err)
	}
	if err := ValidateSpacing(20); err != nil {
		t.Errorf("positive spacing should pass: %v", err)
	}
	if err := ValidateSpacing(-1); err == nil {
		t.Error("negative spacing should fail")
	}
}

func TestValidateQuality(t *testing.T) {
	tests := []struct {
		q       int
		wantErr bool
	}{
		{-1, true},
		{0, false},
		{85, false},
		{100, false},
		{101, true},
	}

	for _, tt := range tests {
		if err := ValidateQuality(tt.q); (err != nil) != tt.wantErr {
			t.Errorf("ValidateQuality(%d) error = %v, wantErr %v", tt.q, err, tt.wantErr)
		}
	}
}

func TestValidateScale(t *testing.T) {
	tests := []struct {
		s       float64
		wantErr bool
	}{
		{0, false}, // automatic
		{0.25, false},
		{1, false},
		{1.5, true},
		{-0.5, true},
	}

	for _, tt := range tests {
		if err := ValidateScale(tt.s); (err != nil) != tt.wantErr {
			t.Errorf("ValidateScale(%g) error = %v, wantErr %v", tt.s, err, tt.wantErr)
		}
	}
}

func TestValidateOutputPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple file", "out.png", false},
		{"nested file", "photos/affix_1.jpg", false},
		{"absolute file", "/tmp/affix.png", false},
		{"empty", "", true},
		{"directory", "photos/", true},
		{"dot", ".", true},
		{"null byte", "out\x00.png", true},
		{"too long", strings.Repeat("a", 4097), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutputPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidPath)
			}
		})
	}
}
