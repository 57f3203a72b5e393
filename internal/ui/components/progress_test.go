package components

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestScoreBar_Width(t *testing.T) {
	tests := []struct {
		value      float64
		wantFilled int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{1.7, 10},
		{-0.3, 0},
	}

	for _, tt := range tests {
		view := NewScoreBar(tt.value, 10, false).View()
		if got := lipgloss.Width(view); got != 10 {
			t.Errorf("Width(%v) = %d, want 10", tt.value, got)
		}
		if got := strings.Count(view, "█"); got != tt.wantFilled {
			t.Errorf("filled(%v) = %d, want %d", tt.value, got, tt.wantFilled)
		}
	}
}

func TestScoreBar_Percent(t *testing.T) {
	view := NewScoreBar(0.42, 8, true).View()
	if !strings.Contains(view, "42%") {
		t.Errorf("View() = %q, want it to contain 42%%", view)
	}
}
