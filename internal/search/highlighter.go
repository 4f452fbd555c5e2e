package search

import "github.com/petya0111/ai-agent-story-book/pkg/utils"

// Highlight returns a one-line snippet of content: the first keyword fragment when there
// is one, otherwise the content flattened and truncated to maxLen characters.
func Highlight(content string, fragments []string, maxLen int) string {
	if len(fragments) > 0 && fragments[0] != "" {
		return utils.Flatten(fragments[0])
	}
	return utils.Truncate(utils.Flatten(content), maxLen)
}
