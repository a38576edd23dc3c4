package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docdigest/internal/doctree"
	"github.com/dgallion1/docdigest/internal/extract"
	"github.com/dgallion1/docdigest/internal/parser"
)

// parserFunc picks the parser for a filename.
type parserFunc func(filename string, opts parser.Options) (parser.Parser, error)

// Worker extracts text blocks from documents with bounded concurrency.
type Worker struct {
	log       *slog.Logger
	parserFor parserFunc
	opts      parser.Options
	timeout   time.Duration

	maxConcurrent int
}

func NewWorker(log *slog.Logger, opts parser.Options, maxConcurrent int, timeout time.Duration) *Worker {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Worker{
		log:           log,
		parserFor:     parser.ForFile,
		opts:          opts,
		timeout:       timeout,
		maxConcurrent: maxConcurrent,
	}
}

type docResult struct {
	blocks []doctree.TextBlock
	err    error
}

// ExtractAll extracts every source concurrently and returns one result
// slot per source, in input order.
func (w *Worker) ExtractAll(ctx context.Context, sources []Source, progress Progress) []docResult {
	results := make([]docResult, len(sources))
	sem := make(chan struct{}, w.maxConcurrent)
	var wg sync.WaitGroup

	for i, src := range sources {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			for j := i; j < len(sources); j++ {
				results[j] = docResult{err: &ExtractionError{Document: sources[j].Name(), Err: ctx.Err()}}
			}
			wg.Wait()
			return results
		}
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			defer func() { <-sem }()
			blocks, err := w.Extract(ctx, src)
			results[i] = docResult{blocks: blocks, err: err}
			if progress != nil {
				progress.DocumentExtracted(src.Name(), err)
			}
		}(i, src)
	}
	wg.Wait()
	return results
}

// Extract parses one document under the per-document timeout and returns
// its qualifying blocks. Every failure is an *ExtractionError.
func (w *Worker) Extract(ctx context.Context, src Source) ([]doctree.TextBlock, error) {
	name := src.Name()
	log := w.log.With("document", name)

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	layout, err := w.parse(ctx, src)
	if err != nil {
		log.Warn("extraction failed, skipping document", "error", err)
		return nil, &ExtractionError{Document: name, Err: err}
	}

	blocks := extract.Blocks(layout, name)
	log.Info("extracted document",
		"pages", len(layout.Pages),
		"raw_blocks", layout.BlockCount(),
		"text_blocks", len(blocks),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return blocks, nil
}

// parse runs the parser in its own goroutine so a parser that ignores ctx
// still cannot hold the document past its deadline.
func (w *Worker) parse(ctx context.Context, src Source) (*doctree.Layout, error) {
	p, err := w.parserFor(src.Name(), w.opts)
	if err != nil {
		return nil, err
	}

	type parsed struct {
		layout *doctree.Layout
		err    error
	}
	done := make(chan parsed, 1)
	go func() {
		rc, err := src.Open()
		if err != nil {
			done <- parsed{err: fmt.Errorf("open: %w", err)}
			return
		}
		defer rc.Close()
		layout, err := p.Parse(ctx, rc, src.Name())
		done <- parsed{layout: layout, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if r.layout == nil {
			return nil, fmt.Errorf("parser returned no layout")
		}
		return r.layout, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WithLogger returns a copy of w that logs to log.
func (w *Worker) WithLogger(log *slog.Logger) *Worker {
	c := *w
	c.log = log
	return &c
}
