package app

import (
	"fmt"
	"strings"

	"github.com/a2vstudio/a2v/internal/api"
	"github.com/a2vstudio/a2v/internal/player"
	"github.com/a2vstudio/a2v/internal/transcript"
	"github.com/a2vstudio/a2v/internal/ui"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

const maxBatchRows = 6

func (m Model) transcriptVisibleLines() int {
	return max(1, m.contentHeight()-1) // minus panel header
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + divider(2) + player(1) + notice/error(1) + footer(1)
	reserved := 7
	return max(5, m.height-reserved-len(m.progressLines()))
}

func (m Model) historyPanelWidth() int {
	if m.width == 0 {
		return 30
	}
	return max(24, m.width*35/100)
}

func (m Model) transcriptPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(30, m.width-m.historyPanelWidth()-1)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, ui.DimStyle.Render(m.statusText))
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.progressLines()...)
	sections = append(sections, m.renderMainContent())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderPlayerBar())

	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	} else if m.notice != "" {
		sections = append(sections, ui.DimStyle.Render(m.notice))
	}

	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("A2V")
	if m.playing != nil {
		title += ui.DimStyle.Render(" · " + m.playing.Title())
	}
	badge := m.renderHealthBadge()
	gap := max(1, m.width-lipgloss.Width(title)-lipgloss.Width(badge))
	return title + strings.Repeat(" ", gap) + badge
}

func (m Model) renderHealthBadge() string {
	h := m.health
	switch {
	case !h.checked:
		return ui.DimStyle.Render("API …")
	case h.err != "":
		return ui.HealthDownStyle.Render("● API unreachable")
	case !h.ok:
		return ui.HealthWarnStyle.Render("● API unhealthy")
	case h.ffmpeg != nil && !*h.ffmpeg:
		return ui.HealthWarnStyle.Render("● ffmpeg missing")
	default:
		return ui.HealthOKStyle.Render("● API ok")
	}
}

// progressLines renders the job or batch progress block. It is empty while
// replaying from history.
func (m Model) progressLines() []string {
	switch m.mode {
	case ModeUploading:
		return []string{ui.StageStyle.Render("  " + m.statusText)}
	case ModeJob:
		return m.jobProgressLines()
	case ModeBatch:
		return m.batchProgressLines()
	default:
		return nil
	}
}

func (m Model) barWidth() int {
	return max(10, min(40, m.width/3))
}

func (m Model) jobProgressLines() []string {
	if m.job == nil {
		return nil
	}
	var lines []string
	name := ui.PanelTitleStyle.Render("  " + m.job.Title())

	if m.jobStatus == nil {
		lines = append(lines, name+ui.DimStyle.Render("  waiting for status..."))
	} else {
		s := *m.jobStatus
		lines = append(lines, name+"  "+renderState(s))
		lines = append(lines, "  "+renderStatusBar(s, m.barWidth()))
		if s.State == api.StateFailed && s.Error != "" {
			lines = append(lines, ui.ErrorTextStyle.Render("  "+s.Error))
		}
	}
	if m.pollErr != "" {
		lines = append(lines, ui.ErrorStyle.Render("  Status unavailable: ")+ui.ErrorTextStyle.Render(m.pollErr))
	}
	return lines
}

func (m Model) batchProgressLines() []string {
	var lines []string
	if m.batchStatus == nil {
		lines = append(lines, ui.PanelTitleStyle.Render(fmt.Sprintf("  Batch of %d", len(m.batchJobs)))+
			ui.DimStyle.Render("  waiting for status..."))
	} else {
		b := *m.batchStatus
		succeeded, failed := b.Counts()
		summary := fmt.Sprintf("  Batch: %d/%d completed, %d failed", succeeded+failed, len(b.Jobs), failed)
		if len(b.Jobs) == 0 {
			summary = "  Batch: no jobs"
		}
		lines = append(lines, ui.PanelTitleStyle.Render(summary))

		nameW := max(12, m.width/4)
		for i, j := range b.Jobs {
			if i == maxBatchRows {
				lines = append(lines, ui.DimStyle.Render(fmt.Sprintf("  …and %d more", len(b.Jobs)-maxBatchRows)))
				break
			}
			name := j.ResourceBaseName
			if name == "" {
				name = j.Filename
			}
			row := "  " + padRight(truncateToWidth(name, nameW), nameW) + " " +
				renderStatusBar(j.Status, max(10, m.barWidth()/2)) + " " + renderState(j.Status)
			lines = append(lines, row)
		}
	}
	if m.pollErr != "" {
		lines = append(lines, ui.ErrorStyle.Render("  Status unavailable: ")+ui.ErrorTextStyle.Render(m.pollErr))
	}
	return lines
}

func renderStatusBar(s api.JobStatus, width int) string {
	pct := s.ClampedPercent()
	return ui.ProgressBar(pct, width, s.State == api.StateFailed) + fmt.Sprintf(" %3d%%", pct)
}

func renderState(s api.JobStatus) string {
	switch s.State {
	case api.StateSucceeded:
		return ui.SucceededStyle.Render("✓ " + api.StageDone.Label())
	case api.StateFailed:
		return ui.FailedStyle.Render("✗ Failed")
	case api.StateQueued:
		return ui.DimStyle.Render("Queued")
	}
	label := ui.StageStyle.Render(s.Stage.Label())
	if s.Message != "" {
		label += ui.DimStyle.Render("  " + s.Message)
	}
	return label
}

func (m Model) renderMainContent() string {
	historyW := m.historyPanelWidth()
	transcriptW := m.transcriptPanelWidth()
	contentH := m.contentHeight()

	historyLines := strings.Split(m.renderHistoryPanel(historyW, contentH), "\n")
	transcriptLines := strings.Split(m.renderTranscriptPanel(transcriptW, contentH), "\n")

	divider := ui.DividerStyle.Render("│")
	rows := make([]string, 0, contentH)
	for i := 0; i < contentH; i++ {
		hl := strings.Repeat(" ", historyW)
		if i < len(historyLines) {
			hl = historyLines[i]
		}
		tl := ""
		if i < len(transcriptLines) {
			tl = transcriptLines[i]
		}
		rows = append(rows, hl+divider+tl)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderHistoryPanel(width, height int) string {
	title := fmt.Sprintf("HISTORY (%d)", len(m.entries))
	var header string
	if m.focus == FocusHistory {
		header = ui.PanelTitleActiveStyle.Render(title)
	} else {
		header = ui.PanelTitleStyle.Render(title)
	}

	lines := []string{header}
	if m.historyErr != "" {
		lines = append(lines, ui.ErrorTextStyle.Render(truncateToWidth("  "+m.historyErr, width)))
	}

	if len(m.entries) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No conversions yet"))
		lines = append(lines, ui.DimStyle.Render("  Run: a2v file.mp3"))
	} else {
		rowsAvail := max(1, height-len(lines))
		start := max(0, m.selected-rowsAvail+1)
		for i := start; i < len(m.entries) && len(lines) < height; i++ {
			e := m.entries[i]
			cursor := " "
			if i == m.selected && m.focus == FocusHistory {
				cursor = ui.SelectedStyle.Render(">")
			}
			dot := " "
			if m.playing != nil && m.playing.ID == e.ID {
				dot = ui.PlayingDotStyle.Render("▶")
			}
			meta := fmt.Sprintf(" · %s · %s", e.Source, humanize.Time(e.CreatedAt))
			name := truncateToWidth(e.Title(), max(4, width-lipgloss.Width(meta)-3))
			if i == m.selected {
				name = ui.SelectedStyle.Render(name)
			}
			lines = append(lines, cursor+dot+" "+name+ui.DimStyle.Render(meta))
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, l := range lines {
		lines[i] = padRight(l, width)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTranscriptPanel(width, height int) string {
	var header string
	if m.focus == FocusTranscript {
		header = ui.PanelTitleActiveStyle.Render("TRANSCRIPT")
	} else {
		header = ui.PanelTitleStyle.Render("TRANSCRIPT")
	}
	if m.sync != nil {
		if m.sync.AutoScroll() {
			header += ui.AutoOnBadgeStyle.Render(" FOLLOW")
		} else {
			header += ui.AutoOffBadgeStyle.Render(" MANUAL")
		}
		if m.language != "" {
			header += ui.LanguageBadgeStyle.Render(" [" + m.language + "]")
		}
	}

	lines := []string{header}
	switch {
	case m.playing == nil:
		lines = append(lines, "", ui.DimStyle.Render("  Select a conversion to play it"))
	case m.transcriptErr != "":
		lines = append(lines, "", ui.ErrorTextStyle.Render("  "+m.transcriptErr))
	case m.sync == nil:
		lines = append(lines, "", ui.DimStyle.Render("  Loading transcript..."))
	case len(m.sync.Segments()) == 0:
		lines = append(lines, "", ui.DimStyle.Render("  Transcript is empty"))
	default:
		segments := m.sync.Segments()
		active := m.sync.Active()
		end := min(len(segments), m.transcriptScroll+height-1)
		for i := m.transcriptScroll; i < end; i++ {
			lines = append(lines, m.renderSegment(segments[i], i, i == active, width))
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSegment(seg transcript.Segment, i int, active bool, width int) string {
	cursor := "  "
	if m.focus == FocusTranscript && i == m.cursor {
		cursor = ui.SelectedStyle.Render("› ")
	}
	ts := transcript.FormatRange(seg)
	text := truncateToWidth(strings.TrimSpace(seg.Text), max(10, width-lipgloss.Width(ts)-4))
	if active {
		return cursor + ui.ActiveSegmentStyle.Render(ts+" "+text)
	}
	return cursor + ui.TimestampStyle.Render(ts) + " " + text
}

func (m Model) renderPlayerBar() string {
	if m.ctrl == nil {
		return ui.DimStyle.Render("Playback disabled (mpv not available)")
	}

	var parts []string
	if src, ok := m.ctrl.Active(); ok {
		icon := ui.PlayingDotStyle.Render("▶")
		if m.ctrl.Paused() {
			icon = ui.DimStyle.Render("⏸")
		}
		name := src.VideoURL
		if m.playing != nil {
			name = m.playing.Title()
		}
		parts = append(parts, icon+" "+name+" "+ui.TimestampStyle.Render(transcript.FormatTimestamp(m.position)))
	} else {
		parts = append(parts, ui.DimStyle.Render("■ Nothing playing"))
	}

	switch m.ctrl.State() {
	case player.Preloading:
		parts = append(parts, ui.FadingStyle.Render("loading next..."))
	case player.Transitioning:
		parts = append(parts, ui.FadingStyle.Render("crossfading"))
	}
	if err := m.ctrl.LastError(); err != nil {
		parts = append(parts, ui.ErrorTextStyle.Render(err.Error()))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string
	if m.focus == FocusHistory {
		parts = append(parts, ui.FooterKeyStyle.Render("Enter")+ui.FooterDescStyle.Render(" Play"))
		parts = append(parts, ui.FooterKeyStyle.Render("j/k")+ui.FooterDescStyle.Render(" Nav"))
	} else {
		parts = append(parts, ui.FooterKeyStyle.Render("Enter")+ui.FooterDescStyle.Render(" Seek"))
		parts = append(parts, ui.FooterKeyStyle.Render("↑↓")+ui.FooterDescStyle.Render(" Scroll"))
		parts = append(parts, ui.FooterKeyStyle.Render("f")+ui.FooterDescStyle.Render(" Follow"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Pause"))
	parts = append(parts, ui.FooterKeyStyle.Render("Tab")+ui.FooterDescStyle.Render(" Focus"))
	parts = append(parts, ui.FooterKeyStyle.Render("d")+ui.FooterDescStyle.Render(" Download"))
	parts = append(parts, ui.FooterKeyStyle.Render("n")+ui.FooterDescStyle.Render(" New"))
	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))
	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// truncateToWidth shortens text to at most width terminal cells.
func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}
