package console

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/scatter/internal/keys"
	"github.com/zjrosen/scatter/internal/ui/overlay"
	"github.com/zjrosen/scatter/internal/ui/shared/markdown"
	"github.com/zjrosen/scatter/internal/ui/styles"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.TextPrimaryColor)

	helpDividerStyle = lipgloss.NewStyle().
				Foreground(styles.BorderDefaultColor)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(styles.BorderHighlightFocusColor)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(styles.StatusWarningColor).
			Width(11)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(styles.TextDescriptionColor)

	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.BorderDefaultColor).
			Padding(1, 2)

	helpFooterStyle = lipgloss.NewStyle().
			Foreground(styles.TextMutedColor).
			Italic(true)
)

// commandsDoc is the command reference shown in the help overlay,
// rendered through glamour.
const commandsDoc = "- `list` refresh the worker roster\n" +
	"- `disable <name>` pause a worker after its current task\n" +
	"- `enable <name>` resume a paused worker\n" +
	"- `end <name>` stop one worker after its current task\n" +
	"- `quit` stop all workers after their current task\n" +
	"- `terminate` stop all workers immediately\n" +
	"- `status` show pool counters\n" +
	"- `set <key> <value>` save a setting to the config file\n"

// helpModel renders the keybinding and command reference overlay.
type helpModel struct {
	keymap   keys.KeyMap
	renderer *markdown.CachedRenderer
	// commands holds the glamour-rendered reference, refreshed on resize.
	commands string
	width    int
	height   int
}

func newHelpModel() helpModel {
	return helpModel{
		keymap:   keys.DefaultKeyMap(),
		renderer: markdown.NewCached("dark"),
	}
}

// SetSize stores the terminal size and re-renders the command reference
// at the new width.
func (h helpModel) SetSize(width, height int) helpModel {
	h.width = width
	h.height = height

	renderWidth := min(58, max(width-12, 20))
	rendered, err := h.renderer.Render(context.Background(), commandsDoc, renderWidth)
	if err != nil {
		rendered = commandsDoc
	}
	h.commands = strings.TrimRight(rendered, "\n")
	return h
}

// Overlay centers the help box over the given background. An empty
// background places the box in a blank frame.
func (h helpModel) Overlay(bg string) string {
	box := h.render()
	if bg == "" {
		return lipgloss.Place(h.width, h.height, lipgloss.Center, lipgloss.Center, box)
	}
	return overlay.Place(bg, box, overlay.Config{
		Width:    h.width,
		Height:   h.height,
		Position: overlay.Center,
	})
}

func (h helpModel) render() string {
	left := lipgloss.JoinVertical(lipgloss.Left,
		helpSectionStyle.Render("Navigate"),
		renderBinding(h.keymap.Up),
		renderBinding(h.keymap.Down),
		renderBinding(h.keymap.Top),
		renderBinding(h.keymap.Bottom),
		"",
		helpSectionStyle.Render("Workers"),
		renderBinding(h.keymap.Toggle),
		renderBinding(h.keymap.End),
		renderBinding(h.keymap.Terminate),
	)

	right := lipgloss.JoinVertical(lipgloss.Left,
		helpSectionStyle.Render("Panes"),
		renderBinding(h.keymap.CycleFocus),
		renderBinding(h.keymap.FocusInput),
		renderBinding(h.keymap.ToggleLog),
		renderBinding(h.keymap.Escape),
		"",
		helpSectionStyle.Render("General"),
		renderBinding(h.keymap.Help),
		renderBinding(h.keymap.Quit),
	)

	columns := lipgloss.JoinHorizontal(lipgloss.Top,
		left,
		strings.Repeat(" ", 6),
		right,
	)

	boxWidth := lipgloss.Width(columns)
	if w := lipgloss.Width(h.commands); w > boxWidth {
		boxWidth = w
	}
	divider := helpDividerStyle.Render(strings.Repeat("─", boxWidth))

	content := lipgloss.JoinVertical(lipgloss.Left,
		helpTitleStyle.Render("Console Help"),
		divider,
		columns,
		divider,
		helpSectionStyle.Render("Commands"),
		h.commands,
		divider,
		helpFooterStyle.Render("Press ? or Esc to close"),
	)

	return helpBoxStyle.Render(content)
}

// renderBinding formats one keybinding as an aligned key and description
// pair.
func renderBinding(b key.Binding) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		helpKeyStyle.Render(strings.Join(b.Keys(), "/")),
		helpDescStyle.Render(b.Help().Desc),
	)
}
