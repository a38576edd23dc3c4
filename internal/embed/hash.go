package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// HashProvider generates deterministic pseudo-embeddings from a sha256 of
// the text. Identical texts map to identical vectors; there is no semantic
// structure. Useful for offline smoke runs and tests.
type HashProvider struct {
	dimensions int
}

// NewHashProvider creates a hash provider producing vectors of dim values.
func NewHashProvider(dim int) *HashProvider {
	if dim <= 0 {
		dim = 384
	}
	return &HashProvider{dimensions: dim}
}

func (p *HashProvider) Name() string { return "hash" }

func (p *HashProvider) Dimensions() int { return p.dimensions }

func (p *HashProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		hash := sha256.Sum256([]byte(text))
		vec := make([]float32, p.dimensions)
		for j := range vec {
			// Re-hash every 8 values so long vectors do not repeat.
			if j > 0 && j%8 == 0 {
				hash = sha256.Sum256(hash[:])
			}
			offset := (j % 8) * 4
			val := binary.BigEndian.Uint32(hash[offset : offset+4])
			vec[j] = (float32(val)/float32(math.MaxUint32))*2.0 - 1.0
		}
		out[i] = vec
	}
	return out, nil
}

func (p *HashProvider) Close() error { return nil }
