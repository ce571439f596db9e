package config

import (
	"sync"

	"github.com/matzehuels/photoaffix/pkg/layout"
)

// Settings holds the stacking direction and both spacing values. The active
// spacing depends on the direction. Safe for concurrent use.
type Settings struct {
	mu         sync.RWMutex
	direction  layout.Direction
	horizontal int
	vertical   int
}

// NewSettings creates Settings.
func NewSettings(dir layout.Direction, horizontal, vertical int) *Settings {
	return &Settings{direction: dir, horizontal: horizontal, vertical: vertical}
}

// Direction returns the stacking direction.
func (s *Settings) Direction() layout.Direction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direction
}

// Spacing returns the spacing for the current direction.
func (s *Settings) Spacing() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.direction == layout.Horizontal {
		return s.horizontal
	}
	return s.vertical
}

// SetDirection changes the stacking direction.
func (s *Settings) SetDirection(d layout.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.direction = d
}

// SetSpacing changes both spacing values.
func (s *Settings) SetSpacing(horizontal, vertical int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.horizontal = horizontal
	s.vertical = vertical
}
