package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/photoaffix/pkg/encode"
)

func press(m SizingModel, keys ...string) (SizingModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(SizingModel)
	}
	return m, cmd
}

func TestNewSizingModelCursor(t *testing.T) {
	tests := []struct {
		suggested float64
		want      int
	}{
		{1, 0},
		{0.5, 1},
		{0.3, 2},
		{0.01, 0}, // below the minimum: start at full size
	}
	for _, tt := range tests {
		m := NewSizingModel(1000, 5020, tt.suggested, 1.0/16, encode.PNG, 90)
		if m.Cursor != tt.want {
			t.Errorf("suggested %g: cursor = %d, want %d", tt.suggested, m.Cursor, tt.want)
		}
	}
}

func TestSizingModelAccept(t *testing.T) {
	m := NewSizingModel(1000, 5020, 1, 1.0/16, encode.PNG, 90)
	m, cmd := press(m, "down", "down", "up", "f", "-", "-", "enter")
	if cmd == nil {
		t.Fatal("enter should quit the program")
	}

	choice := m.Choice()
	if choice.Cancelled {
		t.Fatal("accepted dialog reported cancellation")
	}
	if choice.Scale != 0.5 {
		t.Errorf("Scale = %g, want 0.5", choice.Scale)
	}
	if choice.Format != encode.JPEG {
		t.Errorf("Format = %s, want jpeg", choice.Format)
	}
	if choice.Quality == nil || *choice.Quality != 80 {
		t.Errorf("Quality = %v, want 80", choice.Quality)
	}
}

func TestSizingModelBounds(t *testing.T) {
	m := NewSizingModel(100, 100, 1, 0.25, encode.JPEG, 98)
	m, _ = press(m, "up", "+", "+", "+")
	if m.Cursor != 0 {
		t.Errorf("cursor moved above the first scale: %d", m.Cursor)
	}
	if m.Quality != 100 {
		t.Errorf("quality = %d, want clamp at 100", m.Quality)
	}

	m, _ = press(m, "down", "down", "down", "down")
	if m.Cursor != len(m.Scales)-1 {
		t.Errorf("cursor = %d, want last index %d", m.Cursor, len(m.Scales)-1)
	}

	m = NewSizingModel(100, 100, 1, 0.25, encode.JPEG, 7)
	m, _ = press(m, "-", "-", "enter")
	if m.Quality != 0 {
		t.Errorf("quality = %d, want clamp at 0", m.Quality)
	}
	if q := m.Choice().Quality; q == nil || *q != 0 {
		t.Errorf("choice quality = %v, want 0", q)
	}
}

func TestSizingModelCancel(t *testing.T) {
	for _, key := range []string{"esc", "q"} {
		m := NewSizingModel(10, 10, 1, 0, "", 90)
		m, cmd := press(m, key)
		if cmd == nil {
			t.Errorf("%s should quit the program", key)
		}
		if !m.Choice().Cancelled {
			t.Errorf("%s should cancel", key)
		}
	}
}

func TestSizingModelRearrange(t *testing.T) {
	m := NewSizingModel(10, 10, 1, 0, encode.PNG, 90)
	m, cmd := press(m, "d")
	if cmd == nil {
		t.Error("d should close the dialog")
	}
	if !m.Rearrange || m.Accepted {
		t.Errorf("rearrange/accepted = %v/%v, want true/false", m.Rearrange, m.Accepted)
	}
}

func TestSizingModelView(t *testing.T) {
	m := NewSizingModel(1000, 5020, 0.5, 0.25, encode.JPEG, 85)
	view := m.View()
	for _, want := range []string{"Output Size", "1000 × 5020", "500 × 2510", "1/4", "quality 85"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q:\n%s", want, view)
		}
	}
}

func TestNextFormatCycles(t *testing.T) {
	seen := map[encode.Format]bool{}
	f := encode.PNG
	for range encode.Formats {
		seen[f] = true
		f = nextFormat(f)
	}
	if f != encode.PNG || len(seen) != len(encode.Formats) {
		t.Errorf("nextFormat did not cycle through all formats: %v", seen)
	}
	if nextFormat("gif") != encode.PNG {
		t.Error("unknown format should reset to png")
	}
}
