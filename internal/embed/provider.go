// Package embed maps text to fixed-length vectors.
package embed

import (
	"context"
	"fmt"
)

// Provider converts texts into vectors.
//
// Embed returns exactly one vector per input, in input order. For a fixed
// model and input the output is deterministic. A Provider is constructed
// once per process and is safe for concurrent use.
type Provider interface {
	// Name identifies the provider and model, e.g. "ollama:all-minilm".
	Name() string

	// Dimensions returns the vector length, or 0 if it is only known after
	// the first call.
	Dimensions() int

	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Fitter is implemented by providers whose vector space is fitted to the
// corpus of a run. Fit returns a provider bound to corpus and leaves the
// receiver unchanged, so concurrent runs never share a fitted space.
type Fitter interface {
	Fit(ctx context.Context, corpus []string) (Provider, error)
}

// Fit returns p fitted to corpus when p is a Fitter, and p itself otherwise.
func Fit(ctx context.Context, p Provider, corpus []string) (Provider, error) {
	f, ok := p.(Fitter)
	if !ok {
		return p, nil
	}
	return f.Fit(ctx, corpus)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// checkCount verifies a provider honored the one-vector-per-input contract.
func checkCount(got, want int) error {
	if got != want {
		return fmt.Errorf("provider returned %d vectors for %d texts", got, want)
	}
	return nil
}
