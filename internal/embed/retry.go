package embed

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// DefaultMaxRetries is the number of retries after a failed first attempt.
const DefaultMaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// RetryingProvider retries RetryableError failures of the inner provider.
type RetryingProvider struct {
	inner      Provider
	maxRetries int
	log        *slog.Logger
	backoff    func(attempt int) time.Duration
}

// NewRetrying retries a transient failure up to maxRetries times. Zero
// disables retries.
func NewRetrying(p Provider, maxRetries int, log *slog.Logger) *RetryingProvider {
	maxRetries = max(maxRetries, 0)
	return &RetryingProvider{inner: p, maxRetries: maxRetries, log: log, backoff: Backoff}
}

func (r *RetryingProvider) Name() string { return r.inner.Name() }

func (r *RetryingProvider) Dimensions() int { return r.inner.Dimensions() }

func (r *RetryingProvider) Fit(ctx context.Context, corpus []string) (Provider, error) {
	if _, ok := r.inner.(Fitter); !ok {
		return r, nil
	}
	fitted, err := Fit(ctx, r.inner, corpus)
	if err != nil {
		return nil, err
	}
	cp := *r
	cp.inner = fitted
	return &cp, nil
}

func (r *RetryingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := range r.maxRetries + 1 {
		vecs, err := r.inner.Embed(ctx, texts)
		if err == nil || !IsRetryable(err) {
			return vecs, err
		}
		lastErr = err
		if attempt == r.maxRetries {
			break
		}
		r.log.Warn("retryable embedding error", "provider", r.inner.Name(), "attempt", attempt, "error", err)
		select {
		case <-time.After(r.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (r *RetryingProvider) Close() error { return r.inner.Close() }
