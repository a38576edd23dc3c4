package rank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/dgallion1/docdigest/internal/doctree"
	"github.com/dgallion1/docdigest/internal/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider maps text to a fixed vector; unknown text gets fallback.
type stubProvider struct {
	vectors  map[string][]float32
	fallback []float32
	calls    int
	err      error
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Dimensions() int { return len(s.fallback) }
func (s *stubProvider) Close() error    { return nil }

func (s *stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := s.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = s.fallback
		}
	}
	return out, nil
}

// fittingStub hands out fitted as the provider for each run.
type fittingStub struct {
	stubProvider
	fitted *stubProvider
	corpus []string
}

func (p *fittingStub) Fit(_ context.Context, corpus []string) (embed.Provider, error) {
	p.corpus = append([]string(nil), corpus...)
	return p.fitted, nil
}

func blocks(texts ...string) []doctree.TextBlock {
	out := make([]doctree.TextBlock, len(texts))
	for i, t := range texts {
		out[i] = doctree.TextBlock{Document: "doc.pdf", Text: t, Page: i + 1}
	}
	return out
}

func TestRank_OrdersByDescendingSimilarity(t *testing.T) {
	p := &stubProvider{
		vectors: map[string][]float32{
			"q":    {1, 0},
			"far":  {0, 1},
			"near": {0.9, 0.1},
			"mid":  {0.5, 0.5},
		},
		fallback: []float32{0, 0},
	}
	r := New(p)

	ranked, err := r.Rank(context.Background(), "q", blocks("far", "near", "mid"))
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "near", ranked[0].Block.Text)
	assert.Equal(t, "mid", ranked[1].Block.Text)
	assert.Equal(t, "far", ranked[2].Block.Text)
	for i, rb := range ranked {
		assert.Equal(t, i+1, rb.Rank)
	}
	assert.InDelta(t, 0.0, ranked[2].Score, 1e-9)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestRank_TiesKeepPooledOrder(t *testing.T) {
	p := &stubProvider{fallback: []float32{1, 1, 1}}
	r := New(p)
	pool := blocks("first", "second", "third", "fourth")

	for range 5 {
		ranked, err := r.Rank(context.Background(), "q", pool)
		require.NoError(t, err)
		got := make([]string, len(ranked))
		for i, rb := range ranked {
			got[i] = rb.Block.Text
		}
		assert.Equal(t, []string{"first", "second", "third", "fourth"}, got)
	}
}

func TestRank_EmptyPoolSkipsProvider(t *testing.T) {
	p := &stubProvider{fallback: []float32{1}}
	ranked, err := New(p).Rank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, ranked)
	assert.NotNil(t, ranked)
	assert.Zero(t, p.calls)
}

func TestRank_FitsWithQueryAndBlocks(t *testing.T) {
	fitted := &stubProvider{fallback: []float32{1, 0}}
	p := &fittingStub{stubProvider: stubProvider{fallback: []float32{1, 0}}, fitted: fitted}

	_, err := New(p).Rank(context.Background(), "query", blocks("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"query", "a", "b"}, p.corpus)
	// Query and blocks are embedded in the fitted space only.
	assert.Equal(t, 2, fitted.calls)
	assert.Zero(t, p.calls)
}

func TestRank_ConcurrentRunsKeepTheirOwnTFIDFSpace(t *testing.T) {
	provider, err := embed.NewProvider(embed.Config{Provider: embed.ProviderTFIDF, CacheSize: 128}, slog.New(slog.DiscardHandler), nil)
	require.NoError(t, err)
	r := New(provider)
	pools := []struct {
		query string
		pool  []doctree.TextBlock
		want  string
	}{
		{"beach nightlife", blocks("medieval cathedrals and stone", "beach bars and nightlife"), "beach bars and nightlife"},
		{"vegetarian buffet menu", blocks("vegetarian buffet dishes for a dinner menu", "gluten free baking", "office chairs"), "vegetarian buffet dishes for a dinner menu"},
	}

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tc := pools[i%len(pools)]
			ranked, err := r.Rank(context.Background(), tc.query, tc.pool)
			if err != nil {
				errs <- err
				return
			}
			if ranked[0].Block.Text != tc.want {
				errs <- fmt.Errorf("run %d ranked %q first", i, ranked[0].Block.Text)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestRank_DimensionMismatch(t *testing.T) {
	p := &stubProvider{
		vectors:  map[string][]float32{"q": {1, 0, 0}},
		fallback: []float32{1, 0},
	}
	_, err := New(p).Rank(context.Background(), "q", blocks("block"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestRank_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("provider down")
	p := &stubProvider{fallback: []float32{1}, err: boom}
	_, err := New(p).Rank(context.Background(), "q", blocks("x"))
	require.ErrorIs(t, err, boom)
}

func TestRank_BatchesAndReportsProgress(t *testing.T) {
	p := &stubProvider{fallback: []float32{1, 0}}
	var seen []embed.BatchProgress
	r := New(p, WithBatchSize(2), WithProgress(func(bp embed.BatchProgress) {
		seen = append(seen, bp)
	}))

	ranked, err := r.Rank(context.Background(), "q", blocks("a", "b", "c", "d", "e"))
	require.NoError(t, err)
	assert.Len(t, ranked, 5)
	// one query call plus three batches
	assert.Equal(t, 4, p.calls)
	require.Len(t, seen, 3)
	assert.Equal(t, 5, seen[2].Processed)
}

func TestRank_WithHashProviderIsDeterministic(t *testing.T) {
	pool := blocks(
		"Nightlife in Nice is lively along the promenade.",
		"Marseille has a long maritime history and old port.",
		"Budget hostels suit groups of college friends.",
	)
	rank := func() []RankedBlock {
		out, err := New(embed.NewHashProvider(64)).Rank(context.Background(), "Travel Planner: plan a trip", pool)
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, rank(), rank())
}

func TestTop(t *testing.T) {
	ranked := make([]RankedBlock, 8)
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	assert.Len(t, Top(ranked, 3), 3)
	assert.Len(t, Top(ranked, 0), DefaultTopK)
	assert.Len(t, Top(ranked, -2), DefaultTopK)
	assert.Len(t, Top(ranked, 20), 8)
	assert.Empty(t, Top(nil, 5))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 3}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 1}))
}

func TestCompareScoreDesc_NaNLast(t *testing.T) {
	assert.Equal(t, 1, compareScoreDesc(math.NaN(), 0.5))
	assert.Equal(t, -1, compareScoreDesc(0.5, math.NaN()))
	assert.Equal(t, -1, compareScoreDesc(0.9, 0.1))
	assert.Equal(t, 0, compareScoreDesc(0.3, 0.3))
}
