package layout

import (
	"strings"

	"github.com/matzehuels/photoaffix/pkg/errors"
)

// Direction is the stacking axis.
type Direction int

const (
	// Vertical stacks images top to bottom.
	Vertical Direction = iota
	// Horizontal stacks images left to right.
	Horizontal
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Flip returns the other direction.
func (d Direction) Flip() Direction {
	if d == Horizontal {
		return Vertical
	}
	return Horizontal
}

// ParseDirection parses "vertical"/"horizontal" (or "v"/"h").
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "vertical", "v":
		return Vertical, nil
	case "horizontal", "h":
		return Horizontal, nil
	}
	return Vertical, errors.New(errors.ErrCodeValidation, "unknown direction %q (want vertical or horizontal)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
