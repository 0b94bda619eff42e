// Package toaster provides a transient notification overlay component.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/scatter/internal/ui/overlay"
	"github.com/zjrosen/scatter/internal/ui/styles"
)

// Style determines the visual appearance of the toast.
type Style int

const (
	// StyleSuccess shows ✅ with a green border.
	StyleSuccess Style = iota
	// StyleError shows ❌ with a red border.
	StyleError
	// StyleInfo shows ℹ️ with a blue border.
	StyleInfo
	// StyleWarn shows ⚠️ with a yellow border.
	StyleWarn
)

// decoration returns the emoji prefix and border color for the style.
func (s Style) decoration() (string, lipgloss.TerminalColor) {
	switch s {
	case StyleError:
		return "❌", styles.ToastBorderErrorColor
	case StyleInfo:
		return "ℹ️", styles.ToastBorderInfoColor
	case StyleWarn:
		return "⚠️", styles.ToastBorderWarnColor
	default:
		return "✅", styles.ToastBorderSuccessColor
	}
}

// Model holds the toaster state. The zero value is hidden; Show returns a
// visible copy.
type Model struct {
	message string
	style   Style
	visible bool
	width   int
	height  int
}

// New creates a new toaster model.
func New() Model {
	return Model{}
}

// Show displays a toast with the given message and style. The style's emoji
// is prepended automatically.
func (m Model) Show(message string, style Style) Model {
	m.message = message
	m.style = style
	m.visible = true
	return m
}

// Hide dismisses the toast.
func (m Model) Hide() Model {
	m.visible = false
	m.message = ""
	return m
}

// Visible returns whether the toast is currently showing.
func (m Model) Visible() bool {
	return m.visible
}

// SetSize updates the viewport dimensions used for overlay positioning.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	return m
}

// View renders the toast box.
func (m Model) View() string {
	if !m.visible || m.message == "" {
		return ""
	}

	emoji, borderColor := m.style.decoration()

	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Render(emoji + " " + m.message)
}

// Overlay renders the toast on top of a background view at the stored
// viewport size. Toasts sit bottom-center, one row above the edge.
func (m Model) Overlay(bg string) string {
	if !m.visible || m.message == "" {
		return bg
	}

	cfg := overlay.Config{
		Width:    m.width,
		Height:   m.height,
		Position: overlay.Bottom,
		PadY:     1,
	}

	return overlay.Place(cfg, m.View(), bg)
}

// DismissMsg signals that the toast should be dismissed.
type DismissMsg struct{}

// ScheduleDismiss returns a command that dismisses the toast after d.
func ScheduleDismiss(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return DismissMsg{}
	})
}
