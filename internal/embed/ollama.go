package embed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
)

// DefaultOllamaConcurrency bounds in-flight requests to the Ollama server.
const DefaultOllamaConcurrency = 4

// ollamaModels maps sentence-transformers model names to the tags Ollama
// publishes them under.
var ollamaModels = map[string]string{
	"all-minilm-l6-v2":  "all-minilm",
	"all-minilm-l12-v2": "all-minilm:33m",
}

// OllamaModel returns the Ollama tag for model. Unknown names pass through.
func OllamaModel(model string) string {
	key := strings.ToLower(strings.TrimPrefix(model, "sentence-transformers/"))
	if tag, ok := ollamaModels[key]; ok {
		return tag
	}
	return model
}

// OllamaProvider embeds through a local Ollama server using chromem-go's
// embedding function. chromem-go returns unit-length vectors.
type OllamaProvider struct {
	model       string
	embed       chromem.EmbeddingFunc
	concurrency int

	mu  sync.Mutex
	dim int
}

// NewOllamaProvider creates a provider for model, translated by OllamaModel.
// An empty baseURL uses chromem-go's default of http://localhost:11434/api.
func NewOllamaProvider(model, baseURL string) *OllamaProvider {
	model = OllamaModel(model)
	return &OllamaProvider{
		model:       model,
		embed:       chromem.NewEmbeddingFuncOllama(model, baseURL),
		concurrency: DefaultOllamaConcurrency,
	}
}

func (p *OllamaProvider) Name() string { return "ollama:" + p.model }

func (p *OllamaProvider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dim
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	errs := make([]error, len(texts))
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup

	for i, text := range texts {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i], errs[i] = p.embed(ctx, text)
		}(i, text)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("ollama embed text %d: %w", i, err)
		}
	}
	if len(out) > 0 {
		p.mu.Lock()
		p.dim = len(out[0])
		p.mu.Unlock()
	}
	return out, nil
}

func (p *OllamaProvider) Close() error { return nil }
