package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dgallion1/docdigest/internal/embed"
	"github.com/schollz/progressbar/v3"
)

// progressReporter renders extraction and embedding progress bars.
type progressReporter struct {
	w            io.Writer
	mu           sync.Mutex
	extractBar   *progressbar.ProgressBar
	embeddingBar *progressbar.ProgressBar
	failed       int
	embedded     int
}

func newProgressReporter(w io.Writer) *progressReporter {
	return &progressReporter{w: w}
}

func (p *progressReporter) newBar(total int, desc, its string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(its),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.w)
		}),
	)
}

func (p *progressReporter) ExtractStarted(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extractBar = p.newBar(total, "Extracting documents", "docs/s")
}

func (p *progressReporter) DocumentExtracted(document string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.extractBar == nil {
		return
	}
	if err != nil {
		p.failed++
		p.extractBar.Describe(fmt.Sprintf("Extracting documents (%d failed)", p.failed))
	}
	p.extractBar.Add(1)
}

func (p *progressReporter) Embedded(bp embed.BatchProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.embeddingBar == nil {
		p.embeddingBar = p.newBar(bp.Total, "Generating embeddings", "blocks/s")
	}
	if delta := bp.Processed - p.embedded; delta > 0 {
		p.embeddingBar.Add(delta)
		p.embedded = bp.Processed
	}
}
