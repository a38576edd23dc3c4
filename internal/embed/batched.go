package embed

import (
	"context"
	"fmt"
)

// BatchProgress reports embedding progress after each batch.
type BatchProgress struct {
	BatchIndex   int // Current batch number (1-indexed)
	TotalBatches int
	Processed    int // Texts embedded so far
	Total        int
}

// EmbedBatched embeds texts in sequential batches of batchSize and returns
// vectors in input order. progress may be nil.
func EmbedBatched(ctx context.Context, p Provider, texts []string, batchSize int, progress func(BatchProgress)) ([][]float32, error) {
	total := len(texts)
	if total == 0 {
		return [][]float32{}, nil
	}
	if batchSize <= 0 || batchSize > total {
		batchSize = total
	}

	numBatches := (total + batchSize - 1) / batchSize
	results := make([][]float32, 0, total)

	for batchIdx := 0; batchIdx < numBatches; batchIdx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := batchIdx * batchSize
		end := min(start+batchSize, total)

		vecs, err := p.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d failed: %w", batchIdx+1, numBatches, err)
		}
		if err := checkCount(len(vecs), end-start); err != nil {
			return nil, fmt.Errorf("batch %d/%d: %w", batchIdx+1, numBatches, err)
		}
		results = append(results, vecs...)

		if progress != nil {
			progress(BatchProgress{
				BatchIndex:   batchIdx + 1,
				TotalBatches: numBatches,
				Processed:    end,
				Total:        total,
			})
		}
	}
	return results, nil
}
