// Package overlay renders modal content on top of background views
// without clearing the screen.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position specifies where to place the overlay content.
type Position int

const (
	// Center places the overlay in the center of the viewport.
	Center Position = iota
	// Bottom places the overlay at the bottom center of the viewport.
	Bottom
)

// Config controls overlay rendering behavior.
type Config struct {
	// Width is the total viewport width.
	Width int
	// Height is the total viewport height.
	Height int
	// Position specifies where to place the overlay (Center, Bottom).
	Position Position
	// PadY adds vertical padding from the bottom edge (Bottom position only).
	PadY int
}

// Place renders foreground content on top of background.
// Uses ANSI-aware string manipulation to preserve styling in both
// the foreground and background content.
func Place(cfg Config, fg, bg string) string {
	fgLines := strings.Split(fg, "\n")
	bgLines := strings.Split(bg, "\n")

	// Pad background to full height
	for len(bgLines) < cfg.Height {
		bgLines = append(bgLines, strings.Repeat(" ", cfg.Width))
	}

	startX, startY := origin(cfg, lipgloss.Width(fg), len(fgLines))

	for i, fgLine := range fgLines {
		bgY := startY + i
		if bgY >= len(bgLines) {
			break
		}

		bgLines[bgY] = spliceLine(bgLines[bgY], fgLine, startX)
	}

	return strings.Join(bgLines, "\n")
}

// origin determines the top-left coordinates for the overlay.
// Coordinates are clamped to zero when the foreground exceeds the viewport.
func origin(cfg Config, fgWidth, fgHeight int) (x, y int) {
	x = (cfg.Width - fgWidth) / 2
	switch cfg.Position {
	case Bottom:
		y = cfg.Height - fgHeight - cfg.PadY
	default:
		y = (cfg.Height - fgHeight) / 2
	}
	return max(x, 0), max(y, 0)
}

// spliceLine overlays fgLine onto bgLine starting at column startX.
// Both sides of the background line survive with their ANSI styling intact.
func spliceLine(bgLine, fgLine string, startX int) string {
	// Left portion of the background (ANSI-aware truncation)
	left := ansi.Truncate(bgLine, startX, "")
	if w := ansi.StringWidth(left); w < startX {
		left += strings.Repeat(" ", startX-w)
	}

	// Right portion of the background after the overlay
	endX := startX + ansi.StringWidth(fgLine)
	var right string
	if endX < ansi.StringWidth(bgLine) {
		// TruncateLeft removes chars from the left, keeping the right
		right = ansi.TruncateLeft(bgLine, endX, "")
	}

	return left + fgLine + right
}
