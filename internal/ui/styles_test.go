package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestProgressBarWidth(t *testing.T) {
	for _, pct := range []int{-10, 0, 40, 100, 140} {
		bar := ProgressBar(pct, 20, false)
		if w := lipgloss.Width(bar); w != 20 {
			t.Errorf("ProgressBar(%d) width = %d, want 20", pct, w)
		}
	}
}

func TestProgressBarFill(t *testing.T) {
	bar := ProgressBar(40, 10, false)
	if got := strings.Count(bar, "█"); got != 4 {
		t.Errorf("filled cells = %d, want 4", got)
	}
	if got := strings.Count(ProgressBar(140, 10, true), "█"); got != 10 {
		t.Errorf("over-range percent should clamp to full, got %d", got)
	}
	if ProgressBar(50, 0, false) != "" {
		t.Error("zero width should render nothing")
	}
}
