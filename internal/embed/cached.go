package embed

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/maypok86/otter"
)

// CachedProvider memoizes vectors by text, so repeated texts (running
// headers, duplicated boilerplate) are embedded once per process.
//
// Views returned by Fit share the cache with their parent. Their keys carry
// the fit generation, so vectors from different fitted spaces never mix.
type CachedProvider struct {
	inner  Provider
	cache  otter.Cache[string, []float32]
	gen    *atomic.Uint64
	prefix string
	view   bool
}

// NewCached wraps p with an in-memory cache holding up to size vectors.
func NewCached(p Provider, size int) (*CachedProvider, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedding cache size must be positive, got %d", size)
	}
	cache, err := otter.MustBuilder[string, []float32](size).Build()
	if err != nil {
		return nil, fmt.Errorf("build embedding cache: %w", err)
	}
	return &CachedProvider{inner: p, cache: cache, gen: new(atomic.Uint64)}, nil
}

func (c *CachedProvider) Name() string { return c.inner.Name() }

func (c *CachedProvider) Dimensions() int { return c.inner.Dimensions() }

// Fit fits the inner provider and returns a view keyed by a fresh
// generation. Entries of earlier generations age out under the size bound.
func (c *CachedProvider) Fit(ctx context.Context, corpus []string) (Provider, error) {
	if _, ok := c.inner.(Fitter); !ok {
		return c, nil
	}
	fitted, err := Fit(ctx, c.inner, corpus)
	if err != nil {
		return nil, err
	}
	return &CachedProvider{
		inner:  fitted,
		cache:  c.cache,
		gen:    c.gen,
		prefix: strconv.FormatUint(c.gen.Add(1), 10) + "\x00",
		view:   true,
	}, nil
}

// Embed returns cached vectors and sends each distinct uncached text to the
// inner provider once. Returned slices are shared and must not be mutated.
func (c *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	pending := make(map[string][]int)

	for i, t := range texts {
		if v, ok := c.cache.Get(c.prefix + t); ok {
			out[i] = v
			continue
		}
		if _, seen := pending[t]; !seen {
			missing = append(missing, t)
		}
		pending[t] = append(pending[t], i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if err := checkCount(len(vecs), len(missing)); err != nil {
		return nil, err
	}
	for j, t := range missing {
		c.cache.Set(c.prefix+t, vecs[j])
		for _, i := range pending[t] {
			out[i] = vecs[j]
		}
	}
	return out, nil
}

// Close releases the cache. Closing a fitted view is a no-op.
func (c *CachedProvider) Close() error {
	if c.view {
		return nil
	}
	c.cache.Close()
	return c.inner.Close()
}
