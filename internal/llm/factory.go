package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/petya0111/ai-agent-story-book/internal/config"
)

// New builds the client selected by cfg.
func New(cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch p := cfg.ResolvedProvider(); p {
	case config.ProviderLocal:
		logger.Info("Using local answer synthesizer")
		return NewLocalClient(), nil
	case config.ProviderOpenAI:
		c, err := NewOpenAIClient(OpenAIConfig{
			APIKey:             cfg.APIKey(),
			BaseURL:            cfg.BaseURL,
			Model:              cfg.Model,
			Timeout:            time.Duration(cfg.TimeoutSecs) * time.Second,
			Temperature:        cfg.Temperature,
			RewriteTemperature: cfg.RewriteTemperature,
			MaxTokens:          cfg.MaxTokens,
			RequestsPerMinute:  cfg.RequestsPerMinute,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("openai llm: %w", err)
		}
		logger.Info("Using OpenAI chat model", zap.String("model", cfg.Model))
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", p)
	}
}
