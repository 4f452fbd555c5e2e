package indexer

import (
	"path/filepath"
	"strings"
	"unicode"
)

// TitleFromPath derives a display title from a file name: the extension is dropped,
// underscores and hyphens become spaces and whitespace runs collapse to one space.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return collapseSpace(base)
}

// collapseSpace trims text and collapses whitespace runs.
func collapseSpace(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
