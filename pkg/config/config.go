// Package config loads user preferences for photoaffix.
//
// Preferences live in a TOML file, by default
// $XDG_CONFIG_HOME/photoaffix/config.toml. A missing file is not an error:
// every key has a default. Command-line flags override file values.
//
//	direction          = "vertical"
//	spacing_horizontal = 0
//	spacing_vertical   = 20
//	format             = "jpeg"
//	quality            = 85
//	background         = "#ffffff"
//	memory_ceiling     = "512MiB"
//	memory_reserve     = 0.15
//	min_scale          = 0.0625
//	output_dir         = "~/Pictures"
package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/photoaffix/pkg/budget"
	"github.com/matzehuels/photoaffix/pkg/encode"
	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/layout"
)

// Config mirrors the configuration file.
type Config struct {
	Direction         string  `toml:"direction"`
	SpacingHorizontal int     `toml:"spacing_horizontal"`
	SpacingVertical   int     `toml:"spacing_vertical"`
	Format            string  `toml:"format"`
	Quality           int     `toml:"quality"`
	Background        string  `toml:"background"` // hex colour, or "transparent"
	MemoryCeiling     string  `toml:"memory_ceiling"`
	MemoryReserve     float64 `toml:"memory_reserve"`
	MinScale          float64 `toml:"min_scale"`
	OutputDir         string  `toml:"output_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Direction:     layout.Vertical.String(),
		Format:        string(encode.PNG),
		Quality:       layout.DefaultQuality,
		Background:    "#ffffff",
		MemoryReserve: budget.DefaultReserve,
		MinScale:      layout.DefaultMinScale,
		OutputDir:     ".",
	}
}

// DefaultPath returns the default configuration file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "photoaffix", "config.toml"), nil
}

// Load reads the configuration at path on top of the defaults. Returns the
// defaults (not an error) if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidation, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value that has a constrained domain.
func (c *Config) Validate() error {
	if _, err := layout.ParseDirection(c.Direction); err != nil {
		return err
	}
	if err := errors.ValidateSpacing(c.SpacingHorizontal); err != nil {
		return err
	}
	if err := errors.ValidateSpacing(c.SpacingVertical); err != nil {
		return err
	}
	if _, err := encode.ParseFormat(c.Format); err != nil {
		return err
	}
	if err := errors.ValidateQuality(c.Quality); err != nil {
		return err
	}
	if _, err := c.BackgroundColor(); err != nil {
		return err
	}
	if _, err := c.Ceiling(); err != nil {
		return err
	}
	if c.MemoryReserve < 0 || c.MemoryReserve >= 1 {
		return errors.New(errors.ErrCodeValidation, "memory_reserve must be within [0, 1) (got %g)", c.MemoryReserve)
	}
	if c.MinScale < 0 || c.MinScale > 1 {
		return errors.New(errors.ErrCodeValidation, "min_scale must be within (0, 1] (got %g)", c.MinScale)
	}
	return nil
}

// BackgroundColor parses the background colour. An empty value or
// "transparent" yields a fully transparent colour.
func (c *Config) BackgroundColor() (color.NRGBA, error) {
	return ParseColor(c.Background)
}

// ParseColor parses "#rrggbb", "#rgb" or "transparent".
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "transparent") {
		return color.NRGBA{}, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	col, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, errors.Wrap(errors.ErrCodeValidation, err, "invalid background colour %q", s)
	}
	r, g, b := col.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// Ceiling returns the configured memory ceiling in bytes, 0 if unset.
func (c *Config) Ceiling() (int64, error) {
	if strings.TrimSpace(c.MemoryCeiling) == "" {
		return 0, nil
	}
	return budget.ParseBytes(c.MemoryCeiling)
}

// Estimator returns the runtime memory estimator configured by the file.
func (c *Config) Estimator() (budget.Estimator, error) {
	ceiling, err := c.Ceiling()
	if err != nil {
		return nil, err
	}
	return budget.NewRuntime(ceiling, c.MemoryReserve), nil
}

// Settings returns live settings initialised from the file.
func (c *Config) Settings() (*Settings, error) {
	dir, err := layout.ParseDirection(c.Direction)
	if err != nil {
		return nil, err
	}
	return NewSettings(dir, c.SpacingHorizontal, c.SpacingVertical), nil
}
