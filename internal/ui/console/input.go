package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/scatter/internal/keys"
	"github.com/zjrosen/scatter/internal/ui/shared/panes"
	"github.com/zjrosen/scatter/internal/ui/styles"
)

// submitMsg carries one command line submitted from the input pane.
type submitMsg string

// inputModel wraps a single-line text input with command history.
type inputModel struct {
	ti      textinput.Model
	keymap  keys.InputKeyMap
	history []string
	// histIdx is the history slot being recalled, or -1 for the live line.
	histIdx int
	width   int
	height  int
	focused bool
}

func newInputModel() inputModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "list | disable w1 | enable w1 | end w1 | quit"
	ti.CharLimit = 200
	return inputModel{
		ti:      ti,
		keymap:  keys.DefaultInputKeyMap(),
		histIdx: -1,
	}
}

// Update handles submit and history recall itself and forwards
// everything else to the text input.
func (im inputModel) Update(msg tea.Msg) (inputModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, im.keymap.Submit):
			return im.submit()
		case key.Matches(keyMsg, im.keymap.HistoryPrev):
			return im.recallPrev(), nil
		case key.Matches(keyMsg, im.keymap.HistoryNext):
			return im.recallNext(), nil
		}
	}
	var cmd tea.Cmd
	im.ti, cmd = im.ti.Update(msg)
	return im, cmd
}

func (im inputModel) submit() (inputModel, tea.Cmd) {
	line := strings.TrimSpace(im.ti.Value())
	im.ti.SetValue("")
	im.histIdx = -1
	if line == "" {
		return im, nil
	}
	im.history = append(im.history, line)
	return im, func() tea.Msg { return submitMsg(line) }
}

// recallPrev steps backward through history, oldest last.
func (im inputModel) recallPrev() inputModel {
	if len(im.history) == 0 {
		return im
	}
	if im.histIdx == -1 {
		im.histIdx = len(im.history) - 1
	} else if im.histIdx > 0 {
		im.histIdx--
	}
	im.ti.SetValue(im.history[im.histIdx])
	im.ti.CursorEnd()
	return im
}

// recallNext steps forward through history, back to a blank live line.
func (im inputModel) recallNext() inputModel {
	if im.histIdx == -1 {
		return im
	}
	im.histIdx++
	if im.histIdx >= len(im.history) {
		im.histIdx = -1
		im.ti.SetValue("")
		return im
	}
	im.ti.SetValue(im.history[im.histIdx])
	im.ti.CursorEnd()
	return im
}

// Focus activates the input and starts the cursor blink.
func (im inputModel) Focus() (inputModel, tea.Cmd) {
	im.focused = true
	cmd := im.ti.Focus()
	return im, cmd
}

func (im inputModel) Blur() inputModel {
	im.focused = false
	im.ti.Blur()
	return im
}

func (im inputModel) Focused() bool {
	return im.focused
}

func (im inputModel) Value() string {
	return im.ti.Value()
}

func (im inputModel) SetSize(width, height int) inputModel {
	im.width = width
	im.height = height
	// Borders plus the prompt eat four columns.
	im.ti.Width = max(width-6, 10)
	return im
}

func (im inputModel) View() string {
	hint := ": to focus"
	if im.focused {
		hint = "esc to leave"
	}
	return panes.BorderedPane(panes.BorderConfig{
		Content:            zone.Mark(zoneCommandInput, im.ti.View()),
		Width:              im.width,
		Height:             im.height,
		TopLeft:            "Command",
		BottomRight:        hint,
		Focused:            im.focused,
		FocusedBorderColor: styles.BorderHighlightFocusColor,
	})
}
