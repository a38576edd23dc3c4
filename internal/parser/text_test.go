package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/dgallion1/docdigest/internal/doctree"
)

func lineTexts(b doctree.Block) []string {
	var out []string
	for _, l := range b.Lines {
		out = append(out, l.Spans[0].Text)
	}
	return out
}

func TestTextParser_BasicBlockSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	layout, err := p.Parse(context.Background(), strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if layout.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", layout.Title)
	}
	if len(layout.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(layout.Pages))
	}
	blocks := layout.Pages[0].Blocks
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}

	got := lineTexts(blocks[0])
	if len(got) != 2 || got[0] != "First paragraph line one." || got[1] != "First paragraph line two." {
		t.Errorf("unexpected first block lines: %q", got)
	}
	if lineTexts(blocks[2])[0] != "Third paragraph." {
		t.Errorf("unexpected third block: %q", lineTexts(blocks[2]))
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	layout, err := p.Parse(context.Background(), strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", layout.Title)
	}
	if layout.BlockCount() != 0 {
		t.Errorf("expected 0 blocks for empty input, got %d", layout.BlockCount())
	}
}

func TestTextParser_MultipleBlankLines(t *testing.T) {
	// Multiple consecutive blank lines should not produce empty blocks.
	input := "Para one.\n\n\n\nPara two."
	p := &TextParser{}
	layout, err := p.Parse(context.Background(), strings.NewReader(input), "gaps.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout.BlockCount() != 2 {
		t.Fatalf("expected 2 blocks, got %d", layout.BlockCount())
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	input := "Para one.\n   \nPara two."
	p := &TextParser{}
	layout, err := p.Parse(context.Background(), strings.NewReader(input), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout.BlockCount() != 2 {
		t.Fatalf("expected 2 blocks, got %d", layout.BlockCount())
	}
}

func TestTextParser_FormFeedStartsNewPage(t *testing.T) {
	input := "Page one text.\n\fPage two text.\nmore\fPage three."
	p := &TextParser{}
	layout, err := p.Parse(context.Background(), strings.NewReader(input), "paged.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(layout.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(layout.Pages))
	}
	if got := lineTexts(layout.Pages[1].Blocks[0]); len(got) != 2 || got[0] != "Page two text." {
		t.Errorf("unexpected page 2 block: %q", got)
	}
	if got := lineTexts(layout.Pages[2].Blocks[0]); got[0] != "Page three." {
		t.Errorf("unexpected page 3 block: %q", got)
	}
}

func TestTextParser_TrailingFormFeedAddsNoPage(t *testing.T) {
	layout, err := parsePlainText(strings.NewReader("one\f two\f"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(layout.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(layout.Pages))
	}
}
