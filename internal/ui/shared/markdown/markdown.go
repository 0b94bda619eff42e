// Package markdown provides styled markdown rendering for the TUI.
package markdown

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/zjrosen/scatter/internal/cachemanager"
)

// noMarginStyle is a JSON style that removes document margins.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// renderTTL keeps a cached render alive between help toggles.
const renderTTL = 5 * time.Minute

// Renderer wraps glamour with scatter-specific configuration.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// New creates a markdown renderer with the given width and style.
// style should be "dark" or "light". Defaults to "dark" if empty.
// Use a fixed style instead of WithAutoStyle() to avoid terminal OSC
// queries. WithAutoStyle() creates a new lipgloss renderer that detects
// light/dark background by querying the terminal, which causes escape
// sequence responses to leak into the input stream.
func New(width int, style string) (*Renderer, error) {
	if style == "" {
		style = "dark"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, width: width}, nil
}

// Width returns the configured word wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Render transforms markdown to styled terminal output.
func (r *Renderer) Render(markdown string) (string, error) {
	return r.renderer.Render(markdown)
}

// renderJob carries one render request through the read-through cache.
type renderJob struct {
	width int
	doc   string
}

// CachedRenderer memoizes styled output per document and width, so
// overlays that redraw every frame only pay the glamour cost once per
// resize. A hit renews the entry's TTL.
type CachedRenderer struct {
	style   string
	manager *cachemanager.InMemoryCacheManager[string, string]
	cache   *cachemanager.ReadThroughCache[string, string, renderJob]
}

// NewCached creates a caching renderer for the given style.
func NewCached(style string) *CachedRenderer {
	c := &CachedRenderer{
		style: style,
		manager: cachemanager.NewInMemoryCacheManager[string, string](
			"markdown", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval),
	}
	c.cache = cachemanager.NewReadThroughCache[string, string, renderJob](c.manager, c.render, false)
	return c
}

// Render returns the styled document at width, from cache when warm.
func (c *CachedRenderer) Render(ctx context.Context, doc string, width int) (string, error) {
	job := renderJob{width: width, doc: doc}
	return c.cache.GetWithRefresh(ctx, renderKey(c.style, width, doc), job, renderTTL)
}

// Invalidate drops every cached render. Called on terminal resize so
// stale widths stop occupying memory.
func (c *CachedRenderer) Invalidate(ctx context.Context) {
	_ = c.manager.Flush(ctx)
}

func (c *CachedRenderer) render(_ context.Context, job renderJob) (string, error) {
	r, err := New(job.width, c.style)
	if err != nil {
		return "", err
	}
	return r.Render(job.doc)
}

// renderKey buckets cache entries by style, width, and document hash.
func renderKey(style string, width int, doc string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(doc))
	return fmt.Sprintf("%s:%d:%x", style, width, h.Sum32())
}
