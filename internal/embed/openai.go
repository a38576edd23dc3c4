package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// maxRequestTokens keeps a single embeddings request under the API's
// per-request token ceiling.
const maxRequestTokens = 250_000

// OpenAIProvider embeds through an OpenAI-compatible /embeddings endpoint.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	batchSize int

	mu  sync.Mutex
	dim int
}

// NewOpenAIProvider creates an OpenAI embedder. baseURL overrides the API
// endpoint for compatible servers.
func NewOpenAIProvider(apiKey, baseURL, model string, batchSize int) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is not set")
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		batchSize: batchSize,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai:" + p.model }

func (p *OpenAIProvider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dim
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, batch := range splitRequests(texts, p.batchSize, maxRequestTokens) {
		vecs, err := p.embedRequest(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	if len(out) > 0 {
		p.mu.Lock()
		p.dim = len(out[0])
		p.mu.Unlock()
	}
	return out, nil
}

func (p *OpenAIProvider) embedRequest(ctx context.Context, batch []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: batch,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if err := checkCount(len(resp.Data), len(batch)); err != nil {
		return nil, err
	}

	// The API reports each vector's input position; do not rely on order.
	vecs := make([][]float32, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(batch) || vecs[d.Index] != nil {
			return nil, fmt.Errorf("openai returned invalid embedding index %d", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		normalize(v)
		vecs[d.Index] = v
	}
	return vecs, nil
}

func (p *OpenAIProvider) Close() error { return nil }

// classifyOpenAIError marks rate limits and server errors as retryable.
func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return &RetryableError{StatusCode: status, Message: err.Error()}
	}
	return fmt.Errorf("openai embeddings: %w", err)
}

// splitRequests groups texts into requests of at most size texts and
// roughly maxTokens estimated tokens. A single oversized text still gets
// its own request.
func splitRequests(texts []string, size, maxTokens int) [][]string {
	var out [][]string
	start, tokens := 0, 0
	for i, t := range texts {
		n := EstimateTokens(t)
		if i > start && (i-start >= size || tokens+n > maxTokens) {
			out = append(out, texts[start:i])
			start, tokens = i, 0
		}
		tokens += n
	}
	if start < len(texts) {
		out = append(out, texts[start:])
	}
	return out
}
