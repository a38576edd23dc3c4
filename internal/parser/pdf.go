package parser

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/dgallion1/docdigest/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

const (
	// A row starts a new block when its distance from the previous row
	// exceeds this multiple of the previous row's font size.
	blockGapFactor = 1.5
	// Two adjacent runs are separated by a space when the horizontal gap
	// between them exceeds this fraction of the font size.
	wordGapFactor = 0.15
	// Used when a row carries no font size.
	defaultFontSize = 12.0
	// Glyphs whose baselines differ by less than this fraction of the font
	// size sit on the same row.
	rowTolerance = 0.3
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(ctx context.Context, r io.Reader, filename string) (*doctree.Layout, error) {
	// ledongthuc/pdf and pdftotext both want a file on disk.
	tmp, err := os.CreateTemp("", "docdigest-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	layout, err := extractPDFLayout(tmpPath)
	if err != nil && p.FallbackPdftotext {
		layout, err = extractPdftotext(ctx, tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf layout: %w", err)
	}
	layout.Title = strings.TrimSuffix(filename, ".pdf")
	return layout, nil
}

func extractPDFLayout(path string) (layout *doctree.Layout, err error) {
	// The reader panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			layout = nil
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	layout = &doctree.Layout{}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		// Every page keeps its slot so page numbers stay 1-based positions.
		var page doctree.Page
		pg := reader.Page(i)
		if !pg.V.IsNull() {
			page.Blocks = rowsToBlocks(contentRows(pg.Content().Text))
		}
		layout.Pages = append(layout.Pages, page)
	}
	if numPages > 0 && layout.BlockCount() == 0 {
		return nil, fmt.Errorf("no text layer in %d pages", numPages)
	}
	return layout, nil
}

// contentRows groups positioned glyphs into rows ordered top to bottom,
// each row ordered left to right.
func contentRows(texts []pdflib.Text) pdflib.Rows {
	type row struct {
		y       float64
		size    float64
		content pdflib.TextHorizontal
	}
	var rows []*row
	for _, t := range texts {
		// The reader emits a newline glyph after every TJ array.
		if t.S == "" || t.S == "\n" || t.S == "\r" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		var target *row
		for _, r := range rows {
			if math.Abs(r.y-t.Y) <= rowTolerance*max(size, r.size) {
				target = r
				break
			}
		}
		if target == nil {
			target = &row{y: t.Y, size: size}
			rows = append(rows, target)
		}
		target.content = append(target.content, t)
	}

	// PDF user space grows upward, so the top row has the largest Y.
	slices.SortStableFunc(rows, func(a, b *row) int { return cmp.Compare(b.y, a.y) })
	out := make(pdflib.Rows, 0, len(rows))
	for _, r := range rows {
		slices.SortStableFunc(r.content, func(a, b pdflib.Text) int { return cmp.Compare(a.X, b.X) })
		out = append(out, &pdflib.Row{Position: int64(math.Round(r.y)), Content: r.content})
	}
	return out
}

// rowsToBlocks groups rows (top to bottom) into blocks separated by
// vertical gaps, and splits each row into style runs.
func rowsToBlocks(rows pdflib.Rows) []doctree.Block {
	var blocks []doctree.Block
	var current doctree.Block
	var prevPos int64
	var prevSize float64

	for i, row := range rows {
		if row == nil {
			continue
		}
		line := rowToLine(row.Content)
		if len(line.Spans) == 0 {
			continue
		}
		if i > 0 && len(current.Lines) > 0 {
			gap := float64(prevPos - row.Position)
			if gap < 0 {
				gap = -gap
			}
			if gap > blockGapFactor*prevSize {
				blocks = append(blocks, current)
				current = doctree.Block{}
			}
		}
		current.Lines = append(current.Lines, line)
		prevPos = row.Position
		prevSize = rowFontSize(row.Content)
	}
	if len(current.Lines) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// rowToLine merges adjacent texts that share font and size into spans.
func rowToLine(texts pdflib.TextHorizontal) doctree.Line {
	var line doctree.Line
	var sb strings.Builder
	var font string
	var size float64
	var prevEnd float64
	started := false

	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			line.Spans = append(line.Spans, doctree.Span{Text: s, Font: font, Size: size})
		}
		sb.Reset()
	}

	for _, t := range texts {
		if t.S == "" {
			continue
		}
		if started && (t.Font != font || t.FontSize != size) {
			flush()
			started = false
		}
		if !started {
			font, size = t.Font, t.FontSize
			started = true
		} else if needsSpace(sb.String(), t, prevEnd) {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	flush()
	return line
}

func needsSpace(prev string, next pdflib.Text, prevEnd float64) bool {
	if prev == "" || strings.HasSuffix(prev, " ") || strings.HasPrefix(next.S, " ") {
		return false
	}
	size := next.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	return next.X-prevEnd > wordGapFactor*size
}

func rowFontSize(texts pdflib.TextHorizontal) float64 {
	var size float64
	for _, t := range texts {
		if t.FontSize > size {
			size = t.FontSize
		}
	}
	if size <= 0 {
		return defaultFontSize
	}
	return size
}

func extractPdftotext(ctx context.Context, path string) (*doctree.Layout, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return parsePlainText(bytes.NewReader(out))
}
