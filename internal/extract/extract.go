// Package extract turns a decomposed document into candidate text blocks.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docdigest/internal/doctree"
)

// MinBlockChars is the shortest trimmed block text kept. Shorter blocks are
// titles, page numbers and labels.
const MinBlockChars = 40

// Blocks flattens a layout into text blocks tagged with document and 1-based
// page number, preserving page order and in-page order.
func Blocks(layout *doctree.Layout, document string) []doctree.TextBlock {
	if layout == nil {
		return nil
	}
	var out []doctree.TextBlock
	for i, page := range layout.Pages {
		for _, block := range page.Blocks {
			text := BlockText(block)
			if utf8.RuneCountInString(text) < MinBlockChars {
				continue
			}
			out = append(out, doctree.TextBlock{
				Document: document,
				Text:     text,
				Page:     i + 1,
			})
		}
	}
	return out
}

// BlockText joins the first text-bearing span of every line with single
// spaces and trims the result. Additional spans on a line are ignored.
func BlockText(block doctree.Block) string {
	parts := make([]string, 0, len(block.Lines))
	for _, line := range block.Lines {
		if s, ok := firstSpan(line); ok {
			parts = append(parts, s)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func firstSpan(line doctree.Line) (string, bool) {
	for _, sp := range line.Spans {
		if sp.Text != "" {
			return sp.Text, true
		}
	}
	return "", false
}
