package console

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHelpModel_SetSize_RendersCommands(t *testing.T) {
	h := newHelpModel()
	require.Empty(t, h.commands)

	h = h.SetSize(100, 40)

	require.NotEmpty(t, h.commands)
	require.Contains(t, h.commands, "list")
	require.Contains(t, h.commands, "terminate")
}

func TestHelpModel_Render_ContainsSections(t *testing.T) {
	h := newHelpModel().SetSize(100, 40)

	box := h.render()

	require.Contains(t, box, "Console Help")
	require.Contains(t, box, "Navigate")
	require.Contains(t, box, "Workers")
	require.Contains(t, box, "Panes")
	require.Contains(t, box, "General")
	require.Contains(t, box, "Commands")
	require.Contains(t, box, "Press ? or Esc to close")
}

func TestHelpModel_Render_ContainsKeybindings(t *testing.T) {
	h := newHelpModel().SetSize(100, 40)

	box := h.render()

	require.Contains(t, box, "k/up")
	require.Contains(t, box, "pause/resume worker")
	require.Contains(t, box, "terminate all workers")
	require.Contains(t, box, "q/ctrl+c")
}

func TestHelpModel_Overlay_EmptyBackground(t *testing.T) {
	h := newHelpModel().SetSize(100, 40)

	out := h.Overlay("")

	require.Contains(t, out, "Console Help")
	require.Len(t, strings.Split(out, "\n"), 40)
}

func TestHelpModel_Overlay_OverBackground(t *testing.T) {
	h := newHelpModel().SetSize(100, 40)
	bgLine := strings.Repeat(".", 100)
	bg := strings.Repeat(bgLine+"\n", 39) + bgLine

	out := h.Overlay(bg)

	require.Contains(t, out, "Console Help")
	require.Contains(t, out, "....", "background shows around the box")
	require.Len(t, strings.Split(out, "\n"), 40)
}
