package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/zjrosen/scatter/internal/runner"
	"github.com/zjrosen/scatter/internal/ui/shared/panes"
	"github.com/zjrosen/scatter/internal/ui/styles"
)

var (
	resultOKStyle   = lipgloss.NewStyle().Foreground(styles.StatusSuccessColor)
	resultFailStyle = lipgloss.NewStyle().Foreground(styles.StatusErrorColor)
	resultBodyStyle = lipgloss.NewStyle().Foreground(styles.TextDescriptionColor)
)

// resultsModel is the scrollback of finished task results.
type resultsModel struct {
	vp      viewport.Model
	entries []string
	count   int
	failed  int
	hasNew  bool
	width   int
	height  int
	focused bool
}

func newResultsModel() resultsModel {
	return resultsModel{vp: viewport.New(0, 0)}
}

// Append formats and records one result, keeping the viewport pinned to
// the bottom unless the user has scrolled away.
func (r resultsModel) Append(res runner.ExecResult) resultsModel {
	r.entries = append(r.entries, formatResult(res))
	r.count++
	if res.ExitCode != 0 {
		r.failed++
	}

	wasAtBottom := r.vp.AtBottom()
	r.vp.SetContent(r.content(r.vp.Width))
	if wasAtBottom {
		r.vp.GotoBottom()
	} else {
		r.hasNew = true
	}
	return r
}

// Update forwards scroll keys and wheel events to the viewport.
func (r resultsModel) Update(msg tea.Msg) (resultsModel, tea.Cmd) {
	var cmd tea.Cmd
	r.vp, cmd = r.vp.Update(msg)
	if r.vp.AtBottom() {
		r.hasNew = false
	}
	return r, cmd
}

func (r resultsModel) GotoTop() resultsModel {
	r.vp.GotoTop()
	return r
}

func (r resultsModel) GotoBottom() resultsModel {
	r.vp.GotoBottom()
	r.hasNew = false
	return r
}

func (r resultsModel) SetFocused(focused bool) resultsModel {
	r.focused = focused
	return r
}

func (r resultsModel) SetSize(width, height int) resultsModel {
	r.width = width
	r.height = height
	r.vp.Width = max(width-2, 1)
	r.vp.Height = max(height-2, 1)
	r.vp.SetContent(r.content(r.vp.Width))
	r.vp.GotoBottom()
	return r
}

func (r resultsModel) View() string {
	badge := fmt.Sprintf("%d done", r.count)
	if r.failed > 0 {
		badge = fmt.Sprintf("%d done, %d failed", r.count, r.failed)
	}
	return panes.ScrollablePane(r.width, r.height, panes.ScrollableConfig{
		Viewport:           &r.vp,
		HasNewContent:      r.hasNew,
		Title:              "Results",
		Badge:              badge,
		Focused:            r.focused,
		FocusedBorderColor: styles.BorderHighlightFocusColor,
	}, r.content)
}

// content renders all entries word-wrapped to the viewport width,
// separated by blank lines. The hard wrap pass catches words longer
// than the pane.
func (r resultsModel) content(wrapWidth int) string {
	if len(r.entries) == 0 {
		return workerEmptyStyle.Render("waiting for results")
	}
	width := max(wrapWidth, 1)
	blocks := make([]string, len(r.entries))
	for i, entry := range r.entries {
		blocks[i] = wrap.String(wordwrap.String(entry, width), width)
	}
	return strings.Join(blocks, "\n\n")
}

// formatResult colors the header line of a result by exit code and dims
// the captured output below it.
func formatResult(res runner.ExecResult) string {
	s := res.String()
	head, rest, found := strings.Cut(s, "\n")
	headStyle := resultOKStyle
	if res.ExitCode != 0 {
		headStyle = resultFailStyle
	}
	head = headStyle.Render(head)
	if !found || rest == "" {
		return head
	}
	return head + "\n" + resultBodyStyle.Render(rest)
}
