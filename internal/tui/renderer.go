package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderer pretty-prints markdown answers for the terminal. When the
// glamour renderer cannot be built or fails, the raw text goes through
// unchanged.
type renderer struct {
	term *glamour.TermRenderer
}

func newRenderer(width int) *renderer {
	if width <= 0 {
		width = 80
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &renderer{}
	}
	return &renderer{term: term}
}

func (r *renderer) render(markdown string) string {
	if r.term == nil {
		return markdown
	}
	out, err := r.term.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSpace(out)
}
