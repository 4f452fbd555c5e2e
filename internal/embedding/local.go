package embedding

import (
	"context"

	"github.com/petya0111/ai-agent-story-book/pkg/utils"
)

// DefaultLocalDimensions is the vector size of the local embedder when none is configured.
const DefaultLocalDimensions = 384

// LocalEmbedder is a deterministic bag-of-words embedder. Each word adds 1.0 to the
// bucket selected by its hash and the result is L2-normalised. It makes no network calls.
type LocalEmbedder struct {
	dimensions int
}

// NewLocalEmbedder returns a local embedder producing vectors of the given size.
func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultLocalDimensions
	}
	return &LocalEmbedder{dimensions: dimensions}
}

// Embed returns one vector per text.
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.Vector(text)
	}
	return out, nil
}

// Vector embeds a single text. Text without any words yields the zero vector.
func (e *LocalEmbedder) Vector(text string) []float64 {
	vec := make([]float64, e.dimensions)
	for _, w := range Words(text) {
		vec[Bucket(StringHash(w), e.dimensions)] += 1.0
	}
	utils.NormalizeL2(vec)
	return vec
}

// Dimensions returns the embedding dimension.
func (e *LocalEmbedder) Dimensions() int {
	return e.dimensions
}

// Provider returns ProviderLocal.
func (e *LocalEmbedder) Provider() Provider {
	return ProviderLocal
}

// Close is a no-op for LocalEmbedder.
func (e *LocalEmbedder) Close() error {
	return nil
}
