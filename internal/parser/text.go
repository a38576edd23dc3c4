package parser

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/dgallion1/docdigest/internal/doctree"
)

// TextParser handles plain text files. Form feeds separate pages and
// blank lines separate blocks.
type TextParser struct{}

func (p *TextParser) Parse(ctx context.Context, r io.Reader, filename string) (*doctree.Layout, error) {
	layout, err := parsePlainText(r)
	if err != nil {
		return nil, err
	}
	layout.Title = strings.TrimSuffix(filename, ".txt")
	return layout, nil
}

// parsePlainText builds a layout from line-oriented text. It is shared by
// the plain text parser and the pdftotext fallback.
func parsePlainText(r io.Reader) (*doctree.Layout, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	layout := &doctree.Layout{}
	var page doctree.Page
	var current []string

	flushBlock := func() {
		if len(current) > 0 {
			b := singleSpanBlock(current)
			if len(b.Lines) > 0 {
				page.Blocks = append(page.Blocks, b)
			}
			current = current[:0]
		}
	}
	flushPage := func() {
		flushBlock()
		layout.Pages = append(layout.Pages, page)
		page = doctree.Page{}
	}

	for scanner.Scan() {
		line := scanner.Text()
		for {
			before, after, found := strings.Cut(line, "\f")
			if !found {
				break
			}
			if strings.TrimSpace(before) != "" {
				current = append(current, before)
			}
			flushPage()
			line = after
		}
		if strings.TrimSpace(line) == "" {
			flushBlock()
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	flushBlock()
	if len(page.Blocks) > 0 || len(layout.Pages) == 0 {
		layout.Pages = append(layout.Pages, page)
	}
	return layout, nil
}
