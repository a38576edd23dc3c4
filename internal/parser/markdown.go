package parser

import (
	"context"
	"io"
	"strings"

	"github.com/dgallion1/docdigest/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Every leaf block
// (paragraph, heading, code block, list item text) becomes one block on a
// single page; each source line becomes a one-span line.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader, filename string) (*doctree.Layout, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var page doctree.Page
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		lines := n.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		raw := make([]string, 0, lines.Len())
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			raw = append(raw, string(seg.Value(src)))
		}
		if b := singleSpanBlock(raw); len(b.Lines) > 0 {
			page.Blocks = append(page.Blocks, b)
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}

	return &doctree.Layout{
		Title: strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown"),
		Pages: []doctree.Page{page},
	}, nil
}
