package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/scatter/internal/pool"
	"github.com/zjrosen/scatter/internal/ui/shared/panes"
	"github.com/zjrosen/scatter/internal/ui/styles"
	"github.com/zjrosen/scatter/internal/worker"
)

var (
	workerNameStyle   = lipgloss.NewStyle().Foreground(styles.TextSecondaryColor)
	workerCountStyle  = lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	workerCursorStyle = lipgloss.NewStyle().Foreground(styles.SelectionIndicatorColor).Bold(true)
	workerEmptyStyle  = lipgloss.NewStyle().Foreground(styles.TextMutedColor).Italic(true)
)

// workerRow is one worker's display state, refreshed from the pool on
// every poll tick.
type workerRow struct {
	name       string
	state      worker.State
	live       bool
	completed  int
	exitReason worker.ExitReason
	lastTask   string
}

// workersModel renders the worker roster and tracks the selected row.
type workersModel struct {
	rows []workerRow
	// tasks remembers each worker's most recent result preview across
	// roster refreshes.
	tasks    map[string]string
	selected int
	width    int
	height   int
	focused  bool
}

func newWorkersModel() workersModel {
	return workersModel{tasks: make(map[string]string)}
}

// SetRows replaces the roster from a pool listing, preserving the
// selection and remembered task previews.
func (w workersModel) SetRows(infos []pool.WorkerInfo) workersModel {
	rows := make([]workerRow, len(infos))
	for i, info := range infos {
		rows[i] = workerRow{
			name:       info.Name,
			state:      info.State,
			live:       info.Live,
			completed:  info.Completed,
			exitReason: info.ExitReason,
			lastTask:   w.tasks[info.Name],
		}
	}
	w.rows = rows
	if w.selected >= len(rows) {
		w.selected = max(len(rows)-1, 0)
	}
	return w
}

// SetLastTask records a result preview for one worker.
func (w workersModel) SetLastTask(name, task string) workersModel {
	w.tasks[name] = task
	for i := range w.rows {
		if w.rows[i].name == name {
			w.rows[i].lastTask = task
		}
	}
	return w
}

func (w workersModel) Count() int {
	return len(w.rows)
}

// Selected returns the highlighted row, if any.
func (w workersModel) Selected() (workerRow, bool) {
	if len(w.rows) == 0 {
		return workerRow{}, false
	}
	return w.rows[w.selected], true
}

// Select moves the highlight to row i, clamped to the roster.
func (w workersModel) Select(i int) workersModel {
	if len(w.rows) == 0 {
		return w
	}
	if i < 0 {
		i = 0
	}
	if i >= len(w.rows) {
		i = len(w.rows) - 1
	}
	w.selected = i
	return w
}

// MoveUp moves the highlight up one row, wrapping at the top.
func (w workersModel) MoveUp() workersModel {
	if len(w.rows) == 0 {
		return w
	}
	w.selected = (w.selected - 1 + len(w.rows)) % len(w.rows)
	return w
}

// MoveDown moves the highlight down one row, wrapping at the bottom.
func (w workersModel) MoveDown() workersModel {
	if len(w.rows) == 0 {
		return w
	}
	w.selected = (w.selected + 1) % len(w.rows)
	return w
}

func (w workersModel) SetFocused(focused bool) workersModel {
	w.focused = focused
	return w
}

func (w workersModel) SetSize(width, height int) workersModel {
	w.width = width
	w.height = height
	return w
}

func (w workersModel) liveCount() int {
	n := 0
	for _, row := range w.rows {
		if row.live {
			n++
		}
	}
	return n
}

// View renders the roster inside a bordered pane. Each row is
// zone-marked so clicks can move the selection.
func (w workersModel) View() string {
	var lines []string
	for i, row := range w.rows {
		lines = append(lines, zone.Mark(makeWorkerZoneID(i), w.renderRow(i, row)))
	}
	content := strings.Join(lines, "\n")
	if len(w.rows) == 0 {
		content = workerEmptyStyle.Render("no workers")
	}

	bottomLeft := ""
	if row, ok := w.Selected(); ok && row.lastTask != "" {
		bottomLeft = row.lastTask
	}

	return panes.BorderedPane(panes.BorderConfig{
		Content:            content,
		Width:              w.width,
		Height:             w.height,
		TopLeft:            "Workers",
		TopRight:           fmt.Sprintf("%d live", w.liveCount()),
		BottomLeft:         bottomLeft,
		Focused:            w.focused,
		FocusedBorderColor: styles.BorderHighlightFocusColor,
	})
}

func (w workersModel) renderRow(i int, row workerRow) string {
	cursor := "  "
	if i == w.selected {
		cursor = workerCursorStyle.Render("▸ ")
	}
	status, color := statusFor(row)
	statusStyle := lipgloss.NewStyle().Foreground(color)
	return fmt.Sprintf("%s%s %s %s %s",
		cursor,
		statusStyle.Render("●"),
		workerNameStyle.Render(fmt.Sprintf("%-4s", row.name)),
		statusStyle.Render(fmt.Sprintf("%-8s", status)),
		workerCountStyle.Render(fmt.Sprintf("%3d done", row.completed)),
	)
}
