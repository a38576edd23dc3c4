package doctree

// Layout is the decomposed form of a document: pages in document order.
type Layout struct {
	Title string // Document title (from metadata or filename)
	Pages []Page // Pages in document order; index i is page i+1
}

// Page is an ordered list of text blocks as they appear on the page.
type Page struct {
	Blocks []Block
}

// Block is a visually contiguous region of text, made of lines.
type Block struct {
	Lines []Line
}

// Line is one row of text inside a block, made of style runs.
type Line struct {
	Spans []Span
}

// Span is a run of text sharing font and size.
type Span struct {
	Text string
	Font string
	Size float64
}

// TextBlock is a candidate section produced by block extraction.
type TextBlock struct {
	Document string // Base name of the source document
	Text     string // Trimmed block text
	Page     int    // 1-based page number
}

// BlockCount returns the total number of blocks across all pages.
func (l *Layout) BlockCount() int {
	n := 0
	for _, p := range l.Pages {
		n += len(p.Blocks)
	}
	return n
}
