package parser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docdigest/internal/doctree"
)

// Parser decomposes raw document bytes into pages of blocks, lines and spans.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, filename string) (*doctree.Layout, error)
}

// Options tunes parser construction.
type Options struct {
	// PDFFallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// singleSpanBlock wraps each line of text as a one-span line.
// Blank lines are dropped.
func singleSpanBlock(lines []string) doctree.Block {
	var b doctree.Block
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		b.Lines = append(b.Lines, doctree.Line{Spans: []doctree.Span{{Text: l}}})
	}
	return b
}
