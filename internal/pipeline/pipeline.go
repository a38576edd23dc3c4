// Package pipeline runs a digest end to end: discovery, concurrent
// extraction, ranking, assembly and artifact writing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docdigest/internal/config"
	"github.com/dgallion1/docdigest/internal/digest"
	"github.com/dgallion1/docdigest/internal/doctree"
	"github.com/dgallion1/docdigest/internal/embed"
	"github.com/dgallion1/docdigest/internal/parser"
	"github.com/dgallion1/docdigest/internal/query"
	"github.com/dgallion1/docdigest/internal/rank"
	"github.com/google/uuid"
)

// Progress receives run progress. Implementations must be safe for
// concurrent DocumentExtracted calls.
type Progress interface {
	ExtractStarted(total int)
	DocumentExtracted(document string, err error)
	Embedded(p embed.BatchProgress)
}

// Deps are the collaborators a Pipeline needs. Provider is required.
type Deps struct {
	Provider embed.Provider
	Log      *slog.Logger
	Progress Progress
	// Now defaults to time.Now.
	Now func() time.Time
}

// Request describes one digest. Zero top-k values fall back to config.
type Request struct {
	Persona        string
	JobToBeDone    string
	TopKSections   int
	TopKParagraphs int
}

// Result is a completed run.
type Result struct {
	RunID      string
	Digest     *digest.Digest
	OutputFile string
	Documents  int
	Blocks     int
	Failed     []*ExtractionError
}

// Pipeline is safe for concurrent Process calls once built.
type Pipeline struct {
	cfg      config.Config
	provider embed.Provider
	log      *slog.Logger
	progress Progress
	now      func() time.Time
	worker   *Worker
}

func New(cfg config.Config, deps Deps) *Pipeline {
	log := deps.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		cfg:      cfg,
		provider: deps.Provider,
		log:      log,
		progress: deps.Progress,
		now:      now,
		worker: NewWorker(log, parser.Options{PDFFallbackPdftotext: cfg.Extract.PdftotextFallback},
			cfg.Extract.Workers, cfg.Extract.Timeout),
	}
}

// DefaultRequest builds a request from the configured persona, job and
// top-k values.
func (p *Pipeline) DefaultRequest() Request {
	return Request{
		Persona:        p.cfg.Persona,
		JobToBeDone:    p.cfg.JobToBeDone,
		TopKSections:   p.cfg.TopKSections,
		TopKParagraphs: p.cfg.TopKParagraphsPerSection,
	}
}

// Run discovers the configured input folder, builds the digest and writes
// it to the configured output file. Nothing is written on error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	sources, err := Discover(p.cfg.InputFolder, p.cfg.InputPatterns)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoInputDocuments
	}

	res, err := p.Process(ctx, sources, p.DefaultRequest())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := digest.WriteFile(p.cfg.OutputFile, res.Digest); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	res.OutputFile = p.cfg.OutputFile
	p.log.Info("digest written", "run_id", res.RunID, "path", res.OutputFile)
	return res, nil
}

// Process builds a digest from sources without writing it anywhere.
func (p *Pipeline) Process(ctx context.Context, sources []Source, req Request) (*Result, error) {
	runID := uuid.NewString()
	log := p.log.With("run_id", runID)

	if len(sources) == 0 {
		return nil, ErrNoInputDocuments
	}
	if p.provider == nil {
		return nil, &EmbeddingError{Err: errors.New("no embedding provider configured")}
	}
	if req.TopKSections <= 0 {
		req.TopKSections = p.cfg.TopKSections
	}
	if req.TopKParagraphs <= 0 {
		req.TopKParagraphs = p.cfg.TopKParagraphsPerSection
	}

	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}

	unique, failed := p.dedup(sources, log)
	log.Info("starting run", "documents", len(sources), "unique", len(unique))

	if p.progress != nil {
		p.progress.ExtractStarted(len(unique))
	}
	results := p.worker.WithLogger(log).ExtractAll(ctx, unique, p.progress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge slots in discovery order so the pool matches a sequential run.
	var pool []doctree.TextBlock
	succeeded := 0
	for _, r := range results {
		if r.err != nil {
			var ee *ExtractionError
			if errors.As(r.err, &ee) {
				failed = append(failed, ee)
			}
			continue
		}
		succeeded++
		pool = append(pool, r.blocks...)
	}
	if succeeded == 0 {
		log.Warn("every document failed extraction", "failed", len(failed))
		return nil, ErrNoInputDocuments
	}

	q := query.New(req.Persona, req.JobToBeDone)
	// The whole pool goes to the provider in one call; providers with
	// request limits split it themselves.
	var opts []rank.Option
	if p.progress != nil {
		opts = append(opts, rank.WithProgress(p.progress.Embedded))
	}

	start := time.Now()
	ranked, err := rank.New(p.provider, opts...).Rank(ctx, q.Text, pool)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Error("ranking failed", "provider", p.provider.Name(), "error", err)
		return nil, &EmbeddingError{Err: err}
	}
	top := rank.Top(ranked, req.TopKSections)
	log.Info("ranked blocks",
		"provider", p.provider.Name(),
		"blocks", len(pool),
		"selected", len(top),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		RunID:     runID,
		Digest:    digest.Assemble(top, q, names, req.TopKParagraphs, p.now()),
		Documents: len(sources),
		Blocks:    len(pool),
		Failed:    failed,
	}, nil
}

// dedup drops sources whose content repeats an earlier source. Sources
// that cannot be read are reported as failed.
func (p *Pipeline) dedup(sources []Source, log *slog.Logger) ([]Source, []*ExtractionError) {
	seen := make(map[string]string, len(sources))
	unique := make([]Source, 0, len(sources))
	var failed []*ExtractionError

	for _, src := range sources {
		hash, err := hashSource(src)
		if err != nil {
			log.Warn("cannot read document, skipping", "document", src.Name(), "error", err)
			failed = append(failed, &ExtractionError{Document: src.Name(), Err: err})
			continue
		}
		if first, ok := seen[hash]; ok {
			log.Info("duplicate document, skipping", "document", src.Name(), "duplicate_of", first)
			continue
		}
		seen[hash] = src.Name()
		unique = append(unique, src)
	}
	return unique, failed
}
