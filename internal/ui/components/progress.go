package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/openta/adaptive/internal/ui/theme"
)

// ScoreBar renders a fixed-width bar for a value in [0,1].
type ScoreBar struct {
	Value       float64
	Width       int
	ShowPercent bool
}

// NewScoreBar creates a new score bar.
func NewScoreBar(value float64, width int, showPercent bool) ScoreBar {
	return ScoreBar{Value: value, Width: width, ShowPercent: showPercent}
}

// View renders the bar.
func (b ScoreBar) View() string {
	width := b.Width
	if width < 4 {
		width = 4
	}

	filled := int(float64(width)*b.Value + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	result := lipgloss.NewStyle().Foreground(theme.Secondary).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("░", width-filled))

	if b.ShowPercent {
		result += lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render(fmt.Sprintf(" %3d%%", int(b.Value*100+0.5)))
	}
	return result
}
