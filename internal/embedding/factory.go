package embedding

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/petya0111/ai-agent-story-book/internal/config"
)

// New builds the embedder selected by cfg. Remote and model-backed embedders are wrapped
// in a CachedEmbedder when cfg.CacheSize is positive.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := cfg.ResolvedProvider()

	var e Embedder
	switch provider {
	case config.ProviderLocal:
		e = NewLocalEmbedder(cfg.Dimensions)
		logger.Info("Using local embedder", zap.Int("dimensions", e.Dimensions()))
		return e, nil
	case config.ProviderOpenAI:
		oe, err := NewOpenAIEmbedder(OpenAIConfig{
			APIKey:  cfg.APIKey(),
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		logger.Info("Using OpenAI embedder", zap.String("model", cfg.Model), zap.Int("dimensions", oe.Dimensions()))
		e = oe
	case config.ProviderONNX:
		oe, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("onnx embedder: %w", err)
		}
		logger.Info("Using ONNX embedder", zap.String("model_path", cfg.ModelPath), zap.Int("dimensions", cfg.Dimensions))
		e = oe
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}

	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}
