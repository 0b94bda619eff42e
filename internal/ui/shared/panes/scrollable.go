// Package panes contains reusable bordered pane UI components.
package panes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/scatter/internal/ui/styles"
)

// Scroll indicator styles
var (
	// ScrollIndicatorStyle is the style for scroll position indicators (e.g., "↑50%").
	ScrollIndicatorStyle = lipgloss.NewStyle().
				Foreground(styles.TextMutedColor)

	// NewContentIndicatorStyle is the style for the "↓New" indicator shown when
	// new content arrives while scrolled up.
	NewContentIndicatorStyle = lipgloss.NewStyle().
					Foreground(styles.StatusWarningColor).
					Bold(true)
)

// ScrollableConfig holds the configuration for rendering a scrollable pane.
type ScrollableConfig struct {
	// Viewport is a pointer to the viewport model.
	// CRITICAL: Must be a pointer to preserve reference semantics for scroll
	// state persistence. The viewport is modified by ScrollablePane
	// (dimensions, content, scroll position).
	Viewport *viewport.Model

	// HasNewContent indicates new content arrived while scrolled up.
	// Displayed as "↓New" indicator in the right title.
	HasNewContent bool

	// Title is shown on the left side of the top border.
	Title string

	// Badge is shown on the right side of the top border (e.g., a line count).
	Badge string

	// BottomLeft is optional text shown on the bottom-left of the border.
	BottomLeft string

	// Styling, passed through to BorderedPane.
	Focused            bool
	TitleColor         lipgloss.AdaptiveColor
	BorderColor        lipgloss.AdaptiveColor
	FocusedBorderColor lipgloss.AdaptiveColor

	// TopAligned disables the bottom-padding behavior.
	// When true, content starts at the top of the viewport.
	// When false (default), short content is padded to appear at the bottom
	// and the pane follows new content chat-style.
	TopAligned bool
}

// ScrollablePane handles the common viewport setup, content padding,
// auto-scroll, and border rendering pattern shared by the scrolling panes.
//
// CRITICAL INVARIANTS (do not change the order of operations):
//  1. wasAtBottom MUST be captured BEFORE SetContent() to preserve user scroll
//     position. If checked after SetContent(), users are forcibly scrolled to
//     bottom on every render.
//  2. Content padding MUST be PREPENDED (not appended) to push content to the
//     bottom of the viewport.
//
// contentFn receives the available width (viewport width) and returns the
// rendered content string.
func ScrollablePane(
	width, height int,
	cfg ScrollableConfig,
	contentFn func(wrapWidth int) string,
) string {
	// Viewport dimensions exclude the borders
	vpWidth := max(width-2, 1)
	vpHeight := max(height-2, 1)

	content := contentFn(vpWidth)

	// Pad short content so it sits at the bottom of the viewport.
	// TopAligned panes skip this and start content at the top.
	if !cfg.TopAligned {
		contentLines := strings.Split(content, "\n")
		if len(contentLines) < vpHeight {
			padding := make([]string, vpHeight-len(contentLines))
			contentLines = append(padding, contentLines...)
			content = strings.Join(contentLines, "\n")
		}
	}

	// Capture scroll state BEFORE dimension/content changes.
	wasAtBottom := cfg.Viewport.AtBottom()
	oldScrollPercent := cfg.Viewport.ScrollPercent()
	dimensionsChanged := cfg.Viewport.Width != vpWidth || cfg.Viewport.Height != vpHeight

	cfg.Viewport.Width = vpWidth
	cfg.Viewport.Height = vpHeight
	cfg.Viewport.SetContent(content)

	if wasAtBottom && !cfg.TopAligned {
		cfg.Viewport.GotoBottom()
	} else if dimensionsChanged && oldScrollPercent > 0 && !cfg.TopAligned {
		// Restore proportional scroll position after resize
		scrollableRange := cfg.Viewport.TotalLineCount() - cfg.Viewport.Height
		if scrollableRange > 0 {
			cfg.Viewport.SetYOffset(int(oldScrollPercent * float64(scrollableRange)))
		}
	}

	// Badge composition must happen AFTER SetContent so the scroll indicator
	// reflects the final state.
	var badgeParts []string
	if cfg.HasNewContent {
		badgeParts = append(badgeParts, NewContentIndicatorStyle.Render("↓New"))
	}
	if indicator := ScrollIndicator(*cfg.Viewport); indicator != "" {
		badgeParts = append(badgeParts, indicator)
	}
	if cfg.Badge != "" {
		badgeParts = append(badgeParts, cfg.Badge)
	}

	return BorderedPane(BorderConfig{
		Content:            cfg.Viewport.View(),
		Width:              width,
		Height:             height,
		TopLeft:            cfg.Title,
		TopRight:           strings.Join(badgeParts, " "),
		BottomLeft:         cfg.BottomLeft,
		Focused:            cfg.Focused,
		TitleColor:         cfg.TitleColor,
		BorderColor:        cfg.BorderColor,
		FocusedBorderColor: cfg.FocusedBorderColor,
	})
}

// ScrollIndicator returns a styled scroll position indicator for the viewport.
// Returns empty string if content fits in the viewport or the view is at the
// bottom (live position). Returns styled "↑XX%" when scrolled up.
func ScrollIndicator(vp viewport.Model) string {
	if vp.TotalLineCount() <= vp.Height {
		return ""
	}
	if vp.AtBottom() {
		return ""
	}
	return ScrollIndicatorStyle.Render(fmt.Sprintf("↑%.0f%%", vp.ScrollPercent()*100))
}
