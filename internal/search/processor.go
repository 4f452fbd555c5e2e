package search

import (
	"strings"

	"github.com/petya0111/ai-agent-story-book/internal/chunker"
	"github.com/petya0111/ai-agent-story-book/internal/models"
	"github.com/petya0111/ai-agent-story-book/internal/vector"
	"github.com/petya0111/ai-agent-story-book/pkg/utils"
)

// ProcessQuery trims a question or search query and rejects blank ones.
func ProcessQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", models.InputError("question must not be empty")
	}
	return q, nil
}

// ResolveLimit applies the default to k <= 0 and caps it at max when max > 0.
func ResolveLimit(k, def, max int) int {
	if k <= 0 {
		k = def
	}
	if max > 0 && k > max {
		k = max
	}
	return k
}

// CitationFor builds the citation of a retrieved record: its first previewChars characters
// on one line, followed by the page span when the record has one.
func CitationFor(rec vector.Record, previewChars int) models.Citation {
	preview := utils.Flatten(utils.Take(rec.Text, previewChars))
	start, okStart := rec.Metadata[chunker.MetaPageStart]
	end, okEnd := rec.Metadata[chunker.MetaPageEnd]
	if okStart && okEnd {
		preview += " (pp. " + start + "-" + end + ")"
	}
	return models.Citation{ID: rec.ID, Preview: preview}
}
