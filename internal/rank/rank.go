// Package rank orders text blocks by semantic similarity to a query.
package rank

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/dgallion1/docdigest/internal/doctree"
	"github.com/dgallion1/docdigest/internal/embed"
)

// DefaultTopK is the number of sections kept when no positive k is given.
const DefaultTopK = 5

// RankedBlock is a block with its similarity score and 1-based rank.
type RankedBlock struct {
	Block doctree.TextBlock
	Score float64
	Rank  int
}

// Ranker scores pooled blocks against a query using an injected provider.
type Ranker struct {
	provider  embed.Provider
	batchSize int
	progress  func(embed.BatchProgress)
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithBatchSize sets how many block texts go into one provider call.
// Zero sends all blocks in a single call.
func WithBatchSize(n int) Option {
	return func(r *Ranker) { r.batchSize = n }
}

// WithProgress registers a callback invoked after each embedding batch.
func WithProgress(fn func(embed.BatchProgress)) Option {
	return func(r *Ranker) { r.progress = fn }
}

func New(provider embed.Provider, opts ...Option) *Ranker {
	r := &Ranker{provider: provider}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every block by cosine similarity to query and returns all of
// them ordered by descending score. Equal scores keep pooled order, so the
// result is reproducible for identical input. An empty pool returns an
// empty ranking without calling the provider.
func (r *Ranker) Rank(ctx context.Context, query string, blocks []doctree.TextBlock) ([]RankedBlock, error) {
	if len(blocks) == 0 {
		return []RankedBlock{}, nil
	}

	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}

	// Corpus-fitted providers get a space of their own for this call.
	provider, err := embed.Fit(ctx, r.provider, append([]string{query}, texts...))
	if err != nil {
		return nil, fmt.Errorf("fit provider: %w", err)
	}

	qv, err := provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qv) != 1 {
		return nil, fmt.Errorf("embed query: provider returned %d vectors", len(qv))
	}

	bv, err := embed.EmbedBatched(ctx, provider, texts, r.batchSize, r.progress)
	if err != nil {
		return nil, fmt.Errorf("embed blocks: %w", err)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(blocks))
	for i, v := range bv {
		if len(v) != len(qv[0]) {
			return nil, fmt.Errorf("block %d: vector dimension %d does not match query dimension %d", i, len(v), len(qv[0]))
		}
		scores[i] = scored{idx: i, score: Cosine(qv[0], v)}
	}

	slices.SortFunc(scores, func(a, b scored) int {
		if c := compareScoreDesc(a.score, b.score); c != 0 {
			return c
		}
		return cmp.Compare(a.idx, b.idx)
	})

	ranked := make([]RankedBlock, len(scores))
	for i, s := range scores {
		ranked[i] = RankedBlock{Block: blocks[s.idx], Score: s.score, Rank: i + 1}
	}
	return ranked, nil
}

// compareScoreDesc orders higher scores first and NaN last.
func compareScoreDesc(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmp.Compare(b, a)
}

// Top keeps the first k ranked blocks. k <= 0 means DefaultTopK.
func Top(ranked []RankedBlock, k int) []RankedBlock {
	if k <= 0 {
		k = DefaultTopK
	}
	if len(ranked) > k {
		return ranked[:k]
	}
	return ranked
}

// Cosine returns the cosine similarity of a and b: the dot product of their
// L2-normalized forms. Zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
