// Package llm synthesises answers, hero rewrites and oracle chat replies from retrieved
// book context, either with the OpenAI chat completions API or with a local template.
package llm

import (
	"context"

	"github.com/petya0111/ai-agent-story-book/internal/models"
)

// Provider tags.
const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
)

// RewriteInput is a passage to rewrite around a changed hero.
type RewriteInput struct {
	Passage     string
	Hero        models.HeroSpec
	Constraints models.RewriteConstraints
	Variants    int
}

// ChatInput is one oracle chat turn.
type ChatInput struct {
	Message     string
	BookContext string
	HeroContext string
}

// Client is a language model backend.
type Client interface {
	// Answer answers question using only the given context passages.
	Answer(ctx context.Context, question string, contexts []string) (string, error)
	// Rewrite returns one or more rewritten versions of the passage.
	Rewrite(ctx context.Context, in RewriteInput) ([]string, error)
	Chat(ctx context.Context, in ChatInput) (string, error)
	Provider() string
}
