package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Mastery and review states
var (
	Strong = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Weak = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Learning = lipgloss.NewStyle().
			Foreground(Secondary)

	Warning = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// Status renders a status word in its state color.
func Status(s string) string {
	switch s {
	case "strong":
		return Strong.Render(s)
	case "weak", "overdue", "triggered":
		return Weak.Render(s)
	case "learning", "due", "watching":
		return Learning.Render(s)
	default:
		return Subtitle.Render(s)
	}
}
