package llm

import (
	"context"

	"github.com/petya0111/ai-agent-story-book/internal/models"
)

// LocalClient answers offline with a fixed template built from the retrieved context.
type LocalClient struct{}

// NewLocalClient returns a LocalClient.
func NewLocalClient() *LocalClient {
	return &LocalClient{}
}

// Provider returns "local".
func (c *LocalClient) Provider() string {
	return ProviderLocal
}

// Answer quotes the start of the first context passage.
func (c *LocalClient) Answer(_ context.Context, _ string, contexts []string) (string, error) {
	return localAnswer(contexts), nil
}

// Rewrite needs a remote model and always fails with a precondition error.
func (c *LocalClient) Rewrite(context.Context, RewriteInput) ([]string, error) {
	return nil, models.PreconditionError("hero rewrite requires a remote language model; set OPENAI_API_KEY")
}

// Chat quotes the start of the book context.
func (c *LocalClient) Chat(_ context.Context, in ChatInput) (string, error) {
	var contexts []string
	if in.BookContext != "" {
		contexts = []string{in.BookContext}
	}
	return localAnswer(contexts), nil
}
