package embedding

import (
	"errors"
	"testing"

	"github.com/petya0111/ai-agent-story-book/internal/config"
	"github.com/petya0111/ai-agent-story-book/internal/models"
)

func TestNew(t *testing.T) {
	t.Setenv("STORYBOOK_EMBED_KEY", "")

	e, err := New(config.EmbeddingConfig{Provider: "auto", Dimensions: 64, APIKeyEnv: "STORYBOOK_EMBED_KEY"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Provider() != ProviderLocal || e.Dimensions() != 64 {
		t.Errorf("auto without key: got %s/%d", e.Provider(), e.Dimensions())
	}

	_, err = New(config.EmbeddingConfig{Provider: "openai", APIKeyEnv: "STORYBOOK_EMBED_KEY"}, nil)
	if !errors.Is(err, models.ErrPrecondition) {
		t.Errorf("openai without key: got %v", err)
	}

	t.Setenv("STORYBOOK_EMBED_KEY", "sk-test")
	e, err = New(config.EmbeddingConfig{Provider: "auto", APIKeyEnv: "STORYBOOK_EMBED_KEY", CacheSize: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}
	if e.Provider() != ProviderOpenAI {
		t.Errorf("auto with key: got %s", e.Provider())
	}

	if _, err := New(config.EmbeddingConfig{Provider: "word2vec"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
