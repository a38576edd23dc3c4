package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLParser_BlocksFromTextContainers(t *testing.T) {
	input := `<html><head><title>Guide</title></head><body>
<nav>Home | About</nav>
<h1>Welcome</h1>
<p>The coastal towns are best visited in late spring.</p>
<ul><li>Pack light</li></ul>
<script>var x = 1;</script>
</body></html>`

	p := &HTMLParser{}
	layout, err := p.Parse(context.Background(), strings.NewReader(input), "guide.html")
	require.NoError(t, err)

	assert.Equal(t, "Guide", layout.Title)
	require.Len(t, layout.Pages, 1)
	blocks := layout.Pages[0].Blocks
	require.Len(t, blocks, 3)
	assert.Equal(t, "Welcome", blocks[0].Lines[0].Spans[0].Text)
	assert.Equal(t, "The coastal towns are best visited in late spring.", blocks[1].Lines[0].Spans[0].Text)
	assert.Equal(t, "Pack light", blocks[2].Lines[0].Spans[0].Text)
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name    string
		want    any
		wantErr bool
	}{
		{"a.pdf", &PDFParser{}, false},
		{"B.PDF", &PDFParser{}, false},
		{"notes.txt", &TextParser{}, false},
		{"readme.md", &MarkdownParser{}, false},
		{"page.htm", &HTMLParser{}, false},
		{"letter.docx", &DOCXParser{}, false},
		{"sheet.xlsx", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ForFile(tt.name, Options{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestForFile_PassesPdftotextOption(t *testing.T) {
	p, err := ForFile("a.pdf", Options{PDFFallbackPdftotext: true})
	require.NoError(t, err)
	assert.True(t, p.(*PDFParser).FallbackPdftotext)
}
