// Package embedding turns text into vectors. It provides a local hashing embedder, an
// OpenAI embeddings client, an ONNX model embedder (cgo builds only) and an LRU cache that
// wraps any of them.
package embedding

import (
	"context"
	"fmt"
)

// Provider tags where vectors come from. It is fixed when the embedder is constructed.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderOpenAI Provider = "openai"
	ProviderONNX   Provider = "onnx"
)

// Embedder produces vector embeddings for text.
// Embed returns one vector per input, in input order. An empty input yields an empty
// result without any external call.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
	Provider() Provider
	Close() error
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float64, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder %s returned %d vectors for 1 text", e.Provider(), len(vecs))
	}
	return vecs[0], nil
}
