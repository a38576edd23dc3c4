package embed

import (
	"context"
	"time"
)

// InstrumentedProvider records every inner Embed call into Stats.
type InstrumentedProvider struct {
	inner Provider
	stats *Stats
}

func NewInstrumented(p Provider, stats *Stats) *InstrumentedProvider {
	return &InstrumentedProvider{inner: p, stats: stats}
}

func (p *InstrumentedProvider) Name() string { return p.inner.Name() }

func (p *InstrumentedProvider) Dimensions() int { return p.inner.Dimensions() }

func (p *InstrumentedProvider) Fit(ctx context.Context, corpus []string) (Provider, error) {
	if _, ok := p.inner.(Fitter); !ok {
		return p, nil
	}
	fitted, err := Fit(ctx, p.inner, corpus)
	if err != nil {
		return nil, err
	}
	return &InstrumentedProvider{inner: fitted, stats: p.stats}, nil
}

func (p *InstrumentedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := p.inner.Embed(ctx, texts)
	p.stats.Record(time.Since(start), len(texts), err)
	return vecs, err
}

func (p *InstrumentedProvider) Close() error { return p.inner.Close() }
