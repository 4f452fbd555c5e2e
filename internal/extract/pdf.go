package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/petya0111/ai-agent-story-book/internal/chunker"
)

var blankLines = regexp.MustCompile(`\n{2,}`)

// extractPDF returns the cleaned text of every non-blank page, numbered from 1.
func extractPDF(content []byte) ([]chunker.Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	pages := make([]chunker.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		cleaned := CleanPageText(text)
		if cleaned == "" {
			continue
		}
		pages = append(pages, chunker.Page{Number: i, Text: cleaned})
	}
	return pages, nil
}

// CleanPageText normalises extracted page text: carriage returns are dropped, a hyphen
// followed by a newline is removed when the hyphen does not follow a word character and a
// word character comes next, runs of blank lines collapse to one, and the result is trimmed.
func CleanPageText(raw string) string {
	t := strings.ReplaceAll(raw, "\r", "")
	t = dropHyphenBreaks(t)
	t = blankLines.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}

// dropHyphenBreaks removes "-\n" pairs matched by (?<!\w)-\n(?=\w). Go's regexp has no
// lookaround, so the scan is done by hand over the original text.
func dropHyphenBreaks(s string) string {
	if !strings.Contains(s, "-\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '-' && i+2 < len(s) && s[i+1] == '\n' &&
			(i == 0 || !isWordByte(s[i-1])) && isWordByte(s[i+2]) {
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
