package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/slidex/internal/formatter"
	"github.com/desertthunder/slidex/internal/models"
)

var _ list.Item = pageItem{}

// pageItem wraps [models.Page] to implement [list.Item]. busy marks an
// in-flight generation task for the page.
type pageItem struct {
	page models.Page
	busy bool
}

func (i pageItem) FilterValue() string { return i.page.Outline }

func (i pageItem) Title() string {
	marker := formatter.StatusGlyph(i.page.Status)
	if i.busy {
		marker = "⟳"
	}
	return fmt.Sprintf("%s %s", marker, i.page.Outline)
}

func (i pageItem) Description() string {
	if i.page.ErrorMessage != "" {
		return fmt.Sprintf("%s • %s", i.page.Status, i.page.ErrorMessage)
	}
	desc := string(i.page.Status)
	if i.page.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, truncate(i.page.Description, 60))
	}
	if i.page.UncaptionedCount > 0 {
		desc = fmt.Sprintf("%s • %d uncaptioned", desc, i.page.UncaptionedCount)
	}
	return desc
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
