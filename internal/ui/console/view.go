package console

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/scatter/internal/ui/shared/panes"
	"github.com/zjrosen/scatter/internal/ui/styles"
	"github.com/zjrosen/scatter/internal/worker"
)

// Status colors
var (
	colorRunning = lipgloss.Color("#00BFFF") // Deep sky blue
	colorPaused  = lipgloss.Color("#FFFF00") // Yellow
	colorDone    = lipgloss.Color("#00FF00") // Green
	colorFailed  = lipgloss.Color("#FF0000") // Red
	colorStopped = lipgloss.Color("#808080") // Gray
	colorDimmed  = lipgloss.Color("#666666") // Dimmed text
	colorHeader  = lipgloss.Color("#FFFFFF") // White
)

// Status display labels
const (
	statusRunning = "RUNNING"
	statusPaused  = "PAUSED"
	statusDrained = "DRAINED"
	statusEnded   = "ENDED"
	statusFailed  = "FAILED"
	statusStopped = "STOPPED"
)

// Layout dimensions
const (
	workersPaneWidth = 34
	logPaneMaxHeight = 10
	inputPaneHeight  = 3
	footerHeight     = 3
	headerHeight     = 1
)

// statusFor maps a worker row to its display label and color.
func statusFor(row workerRow) (string, lipgloss.TerminalColor) {
	if row.live {
		if row.state == worker.StatePaused {
			return statusPaused, colorPaused
		}
		return statusRunning, colorRunning
	}
	switch row.exitReason {
	case worker.ExitDrained:
		return statusDrained, colorDone
	case worker.ExitEnded:
		return statusEnded, colorDone
	case worker.ExitSetupFailed, worker.ExitJobFailed:
		return statusFailed, colorFailed
	case worker.ExitTerminated:
		return statusStopped, colorStopped
	default:
		return statusStopped, colorDimmed
	}
}

// renderView assembles the full-screen layout: header, workers beside
// results and log, command input, and the action hint footer.
func (m Model) renderView() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	header := m.renderHeader()
	input := m.input.View()
	footer := m.renderActionHints()

	workers := m.workers.View()
	right := m.results.View()
	if m.showLog && m.logs.Height() > 0 {
		right = lipgloss.JoinVertical(lipgloss.Left, right, m.logs.View())
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, workers, right)

	view := lipgloss.JoinVertical(lipgloss.Left, header, body, input, footer)
	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, view)
}

// renderHeader draws the one-line status bar with the run identity and
// live pool counters. The spinner runs while workers are live.
func (m Model) renderHeader() string {
	indicator := " "
	if !m.finished && m.pool.Live() > 0 {
		indicator = spinnerFrames[m.spinnerFrame]
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(colorHeader).Render("scatter")
	line := fmt.Sprintf("%s %s  run %s  %s", indicator, title, shortRunID(m.pool.RunID()), m.pool.Stats().FormatSummary())
	return styles.StatusBarStyle.Width(m.width).Render(line)
}

// renderActionHints draws the footer pane with keyboard shortcuts.
func (m Model) renderActionHints() string {
	hintStyle := lipgloss.NewStyle().Foreground(colorDimmed)
	keyStyle := lipgloss.NewStyle().Foreground(colorHeader).Bold(true)

	hints := []string{
		keyStyle.Render("j/k") + hintStyle.Render(" navigate"),
		keyStyle.Render("enter") + hintStyle.Render(" pause/resume"),
		keyStyle.Render("e") + hintStyle.Render(" end"),
		keyStyle.Render("tab") + hintStyle.Render(" focus"),
		keyStyle.Render(":") + hintStyle.Render(" command"),
		keyStyle.Render("l") + hintStyle.Render(" log"),
		keyStyle.Render("?") + hintStyle.Render(" help"),
		keyStyle.Render("q") + hintStyle.Render(" quit"),
	}

	hintLine := ""
	for i, hint := range hints {
		if i > 0 {
			hintLine += "  "
		}
		hintLine += hint
	}

	return panes.BorderedPane(panes.BorderConfig{
		Content: hintLine,
		Width:   m.width,
		Height:  footerHeight,
	})
}

// shortRunID trims a run UUID down to its first block.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
