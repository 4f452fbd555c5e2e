package llm

import (
	"encoding/json"
	"strings"

	"github.com/petya0111/ai-agent-story-book/pkg/utils"
)

const (
	answerSystemPrompt = "You are a lore expert for the fantasy book. Only use provided context; if unsure, say you are unsure."

	rewriteSystemPrompt = "You are an expert creative writing assistant that rewrites passages while preserving plot continuity unless instructed otherwise. " +
		"When asked to change a hero, update names/pronouns/traits as necessary and keep the scene coherent. Return only the rewritten passage."

	chatSystemPrompt = "You are an oracle. Write concise, modern answers (<= 200 words). " +
		"Do NOT use poetic salutations such as 'Ah, seeker of truths' or 'dear seeker'. " +
		"Avoid repeating the same rhetorical structure. Prefer specific references to provided context."

	unsureAnswer = "I'm unsure based on the provided context."

	contextSeparator = "\n\n---\n\n"
	localSnippetLen  = 400
)

func answerUserPrompt(question string, contexts []string) string {
	return "Context:\n" + strings.Join(contexts, contextSeparator) + "\n\nQuestion: " + question + "\nAnswer:"
}

func rewriteUserPrompt(in RewriteInput) string {
	constraints, err := json.Marshal(in.Constraints)
	if err != nil {
		constraints = []byte("{}")
	}
	var b strings.Builder
	b.WriteString("Original passage:\n\n")
	b.WriteString(in.Passage)
	b.WriteString("\n\nHero change request: ")
	b.WriteString(in.Hero.Description())
	b.WriteString("\n\nConstraints: ")
	b.Write(constraints)
	b.WriteString("\n\nReturn only the rewritten passage.")
	return b.String()
}

func chatUserPrompt(in ChatInput) string {
	var b strings.Builder
	if strings.TrimSpace(in.BookContext) != "" {
		b.WriteString("Context from book:\n")
		b.WriteString(in.BookContext)
		b.WriteString("\n\n")
	}
	if strings.TrimSpace(in.HeroContext) != "" {
		b.WriteString("Hero context:\n")
		b.WriteString(in.HeroContext)
		b.WriteString("\n\n")
	}
	b.WriteString("User message:\n")
	b.WriteString(in.Message)
	return b.String()
}

// localAnswer renders the offline answer template from the first context passage.
func localAnswer(contexts []string) string {
	snippet := "(no context loaded)"
	if len(contexts) > 0 {
		snippet = utils.Flatten(utils.Take(contexts[0], localSnippetLen))
	}
	return "[Local Prototype Answer]\nContext snippet: " + snippet +
		"\n\nAsk more specific questions or ingest more chapters for richer detail."
}

func clampVariants(n int) int {
	switch {
	case n < 1:
		return 1
	case n > 3:
		return 3
	default:
		return n
	}
}
