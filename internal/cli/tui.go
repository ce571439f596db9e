package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/photoaffix/pkg/affix"
	"github.com/matzehuels/photoaffix/pkg/encode"
	"github.com/matzehuels/photoaffix/pkg/layout"
)

var (
	dialogSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	dialogNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	dialogDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// qualityStep is the quality change per keypress.
const qualityStep = 5

// =============================================================================
// SizingModel - Interactive output size selection
// =============================================================================

// SizingModel is the bubbletea model behind the sizing dialog. It offers the
// power-of-two scales down to the minimum, the output format and the lossy
// quality.
type SizingModel struct {
	Width, Height int
	Scales        []float64
	Cursor        int
	Format        encode.Format
	Quality       int

	Accepted  bool
	Cancelled bool
	// Rearrange asks for the other stacking direction; the dialog closes so
	// the layout can be planned again.
	Rearrange bool
}

// NewSizingModel creates a sizing model for a canvas of the given natural
// size. The cursor starts on the largest scale not above suggested.
func NewSizingModel(width, height int, suggested, minScale float64, format encode.Format, quality int) SizingModel {
	scales := layout.Candidates(minScale)
	cursor := 0
	for i, s := range scales {
		if s <= suggested {
			cursor = i
			break
		}
	}
	if format == "" {
		format = encode.PNG
	}
	return SizingModel{
		Width:   width,
		Height:  height,
		Scales:  scales,
		Cursor:  cursor,
		Format:  format,
		Quality: quality,
	}
}

func (m SizingModel) Init() tea.Cmd {
	return nil
}

func (m SizingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.Cancelled = true
		return m, tea.Quit
	case "d":
		m.Rearrange = true
		return m, tea.Quit
	case "enter":
		m.Accepted = true
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Scales)-1 {
			m.Cursor++
		}
	case "f", "tab":
		m.Format = nextFormat(m.Format)
	case "+", "=", "right", "l":
		m.Quality = min(m.Quality+qualityStep, 100)
	case "-", "left", "h":
		m.Quality = max(m.Quality-qualityStep, 0)
	}
	return m, nil
}

func (m SizingModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Output Size"))
	b.WriteString("\n")
	b.WriteString(dialogDimStyle.Render("↑/↓ size  f format  +/- quality  d direction  ⏎ accept  esc cancel"))
	b.WriteString("\n\n")

	for i, s := range m.Scales {
		w, h := scaledDims(m.Width, m.Height, s)
		line := fmt.Sprintf("%5d × %-5d  %s", w, h, formatScale(s))
		if i == m.Cursor {
			b.WriteString(dialogSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(dialogNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	format := "format  " + string(m.Format)
	if m.Format.Lossy() {
		format += fmt.Sprintf("  quality %d", m.Quality)
	}
	b.WriteString(dialogDimStyle.Render(format))
	b.WriteString("\n")
	return b.String()
}

// Choice converts the model's final state into a size choice.
func (m SizingModel) Choice() affix.SizeChoice {
	if !m.Accepted || m.Rearrange {
		return affix.SizeChoice{Cancelled: true}
	}
	return affix.SizeChoice{
		Scale:   m.Scales[m.Cursor],
		Format:  m.Format,
		Quality: layout.QualityOf(m.Quality),
	}
}

// nextFormat cycles through the supported output formats.
func nextFormat(f encode.Format) encode.Format {
	for i, candidate := range encode.Formats {
		if candidate == f {
			return encode.Formats[(i+1)%len(encode.Formats)]
		}
	}
	return encode.PNG
}

// scaledDims approximates the canvas size at scale; per-image rounding can
// shift the exact result by a few pixels.
func scaledDims(w, h int, scale float64) (int, int) {
	return max(1, int(float64(w)*scale+0.5)), max(1, int(float64(h)*scale+0.5))
}

func formatScale(s float64) string {
	if s >= 1 {
		return "full size"
	}
	return fmt.Sprintf("1/%d", int(1/s+0.5))
}
