package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF0000")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PanelTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	// Transcript
	ActiveSegmentStyle = lipgloss.NewStyle().
				Foreground(ColorYellow).
				Bold(true)

	AutoOnBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)

	AutoOffBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorYellow).
				Bold(true)

	LanguageBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorMagenta)

	// Progress
	ProgressFillStyle = lipgloss.NewStyle().
				Foreground(ColorGreen)

	ProgressFailedStyle = lipgloss.NewStyle().
				Foreground(ColorRed)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(ColorGray)

	StageStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	SucceededStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	FailedStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	// Health
	HealthOKStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	HealthWarnStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	HealthDownStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	// Player
	PlayingDotStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	FadingStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)
)

// ProgressBar renders percent (0..100) as a bar of the given width.
func ProgressBar(percent, width int, failed bool) string {
	if width <= 0 {
		return ""
	}
	percent = max(0, min(100, percent))
	filled := percent * width / 100

	fill := ProgressFillStyle
	if failed {
		fill = ProgressFailedStyle
	}
	return fill.Render(strings.Repeat("█", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}
