package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/scatter/internal/ui/shared/panes"
	"github.com/zjrosen/scatter/internal/ui/styles"
)

// maxLogLines bounds the in-memory log scrollback.
const maxLogLines = 200

// logModel is the tail of the run's log stream.
type logModel struct {
	vp      viewport.Model
	lines   []string
	width   int
	height  int
	focused bool
}

func newLogModel() logModel {
	return logModel{vp: viewport.New(0, 0)}
}

// Append records one log line, dropping the oldest once the scrollback
// is full.
func (l logModel) Append(line string) logModel {
	line = strings.TrimSpace(line)
	if line == "" {
		return l
	}
	l.lines = append(l.lines, line)
	if len(l.lines) > maxLogLines {
		l.lines = l.lines[len(l.lines)-maxLogLines:]
	}

	wasAtBottom := l.vp.AtBottom()
	l.vp.SetContent(l.content(l.vp.Width))
	if wasAtBottom {
		l.vp.GotoBottom()
	}
	return l
}

// Update forwards scroll keys and wheel events to the viewport.
func (l logModel) Update(msg tea.Msg) (logModel, tea.Cmd) {
	var cmd tea.Cmd
	l.vp, cmd = l.vp.Update(msg)
	return l, cmd
}

func (l logModel) GotoTop() logModel {
	l.vp.GotoTop()
	return l
}

func (l logModel) GotoBottom() logModel {
	l.vp.GotoBottom()
	return l
}

func (l logModel) SetFocused(focused bool) logModel {
	l.focused = focused
	return l
}

func (l logModel) SetSize(width, height int) logModel {
	l.width = width
	l.height = height
	l.vp.Width = max(width-2, 1)
	l.vp.Height = max(height-2, 1)
	l.vp.SetContent(l.content(l.vp.Width))
	l.vp.GotoBottom()
	return l
}

func (l logModel) Height() int {
	return l.height
}

func (l logModel) View() string {
	return panes.ScrollablePane(l.width, l.height, panes.ScrollableConfig{
		Viewport:           &l.vp,
		Title:              "Log",
		Badge:              fmt.Sprintf("%d lines", len(l.lines)),
		BottomLeft:         "l to hide",
		Focused:            l.focused,
		FocusedBorderColor: styles.BorderHighlightFocusColor,
	}, l.content)
}

func (l logModel) content(wrapWidth int) string {
	if len(l.lines) == 0 {
		return workerEmptyStyle.Render("log stream is quiet")
	}
	wrap := lipgloss.NewStyle().Width(max(wrapWidth, 1))
	out := make([]string, len(l.lines))
	for i, line := range l.lines {
		style := wrap.Foreground(logLineColor(line))
		out[i] = style.Render(line)
	}
	return strings.Join(out, "\n")
}

// logLineColor picks a color from the level token embedded in the line.
func logLineColor(line string) lipgloss.TerminalColor {
	switch {
	case strings.Contains(line, "[ERROR]"):
		return styles.StatusErrorColor
	case strings.Contains(line, "[WARN]"):
		return styles.StatusWarningColor
	case strings.Contains(line, "[DEBUG]"):
		return styles.TextMutedColor
	default:
		return styles.TextDescriptionColor
	}
}
