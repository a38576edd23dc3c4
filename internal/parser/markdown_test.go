package parser

import (
	"context"
	"strings"
	"testing"
)

func TestMarkdownParser_LeafBlocks(t *testing.T) {
	input := `# Title

Intro text spanning
two source lines.

## Section A

- first item
- second item
`
	p := &MarkdownParser{}
	layout, err := p.Parse(context.Background(), strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout.Title != "doc" {
		t.Errorf("expected title %q, got %q", "doc", layout.Title)
	}
	if len(layout.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(layout.Pages))
	}

	blocks := layout.Pages[0].Blocks
	if len(blocks) != 5 {
		t.Fatalf("expected 5 blocks (2 headings, 1 paragraph, 2 items), got %d", len(blocks))
	}
	if got := lineTexts(blocks[0]); got[0] != "Title" {
		t.Errorf("expected heading block %q, got %q", "Title", got)
	}
	if got := lineTexts(blocks[1]); len(got) != 2 || got[1] != "two source lines." {
		t.Errorf("expected two-line paragraph, got %q", got)
	}
	if got := lineTexts(blocks[4]); got[0] != "second item" {
		t.Errorf("expected list item block, got %q", got)
	}
}

func TestMarkdownParser_CodeBlocks(t *testing.T) {
	input := "Some intro.\n\n```\nGET /api/users\nPOST /api/users\n```\n"
	p := &MarkdownParser{}
	layout, err := p.Parse(context.Background(), strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocks := layout.Pages[0].Blocks
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if got := lineTexts(blocks[1]); len(got) != 2 || got[0] != "GET /api/users" {
		t.Errorf("expected code lines, got %q", got)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	layout, err := p.Parse(context.Background(), strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout.BlockCount() != 0 {
		t.Errorf("expected 0 blocks for empty input, got %d", layout.BlockCount())
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		layout, err := p.Parse(context.Background(), strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if layout.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, layout.Title)
		}
	}
}
