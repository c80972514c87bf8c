package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minDescriptionWidth bounds how narrow descriptions may wrap.
const minDescriptionWidth = 24

// markdownRenderer renders task descriptions, rebuilding the glamour renderer when width or style changes.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer

	lastInput  string
	lastOutput string
}

// render converts markdown into ANSI-styled text wrapped at width; failures fall back to the raw input.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(width, minDescriptionWidth)
	if r.renderer == nil || r.width != wrapWidth {
		style := strings.TrimSpace(r.style)
		if style == "" {
			style = "dark"
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
		r.lastInput, r.lastOutput = "", ""
	}
	if markdown == r.lastInput {
		return r.lastOutput
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	r.lastInput = markdown
	r.lastOutput = strings.TrimRight(rendered, "\n")
	return r.lastOutput
}
