// Package chunker splits extracted book text into bounded-size chunks that keep paragraph
// and page boundaries intact.
package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTargetChars is the plain-text chunk budget used when none is given.
	DefaultTargetChars = 3500
	// DefaultPageTargetChars is the paginated chunk budget used when none is given.
	DefaultPageTargetChars = 5000

	separator    = "\n\n"
	separatorLen = 2
)

// Provenance keys set by the chunkers.
const (
	MetaSource    = "source"
	MetaPageStart = "page_start"
	MetaPageEnd   = "page_end"

	SourceText = "text"
	SourcePDF  = "pdf"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Chunk is a span of source text with provenance metadata.
type Chunk struct {
	ID         string
	Text       string
	Provenance map[string]string
}

// Page is the extracted text of one page, numbered from 1.
type Page struct {
	Number int
	Text   string
}

// Paragraphs splits text on blank lines and returns the trimmed, non-empty paragraphs.
func Paragraphs(text string) []string {
	parts := paragraphBreak.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ChunkText packs paragraphs into chunks of at most targetChars characters. A paragraph is
// never split: one longer than the target becomes its own chunk.
func ChunkText(text string, targetChars int) []Chunk {
	if targetChars <= 0 {
		targetChars = DefaultTargetChars
	}
	var chunks []Chunk
	var buf buffer
	flush := func() {
		chunks = append(chunks, Chunk{
			ID:         fmt.Sprintf("chunk-%d", len(chunks)),
			Text:       buf.String(),
			Provenance: map[string]string{MetaSource: SourceText},
		})
		buf.Reset()
	}
	for _, p := range Paragraphs(text) {
		if buf.Len() > 0 && buf.Len()+utf8.RuneCountInString(p)+separatorLen > targetChars {
			flush()
		}
		buf.Append(p)
	}
	if buf.Len() > 0 {
		flush()
	}
	return chunks
}

// ChunkPages packs consecutive pages into chunks of at most targetChars characters and
// records the first and last contributing page. Blank pages are skipped.
func ChunkPages(pages []Page, targetChars int) []Chunk {
	if targetChars <= 0 {
		targetChars = DefaultPageTargetChars
	}
	var chunks []Chunk
	var buf buffer
	first, last := 0, 0
	flush := func() {
		chunks = append(chunks, Chunk{
			ID:   fmt.Sprintf("pdfchunk-%d", len(chunks)),
			Text: strings.TrimSpace(buf.String()),
			Provenance: map[string]string{
				MetaSource:    SourcePDF,
				MetaPageStart: strconv.Itoa(first),
				MetaPageEnd:   strconv.Itoa(last),
			},
		})
		buf.Reset()
	}
	for _, pg := range pages {
		if strings.TrimSpace(pg.Text) == "" {
			continue
		}
		if buf.Len() > 0 && buf.Len()+utf8.RuneCountInString(pg.Text)+separatorLen > targetChars {
			flush()
		}
		if buf.Len() == 0 {
			first = pg.Number
		}
		buf.Append(pg.Text)
		last = pg.Number
	}
	if buf.Len() > 0 {
		flush()
	}
	return chunks
}

// buffer joins parts with a blank line and tracks its length in runes.
type buffer struct {
	sb    strings.Builder
	runes int
}

func (b *buffer) Append(s string) {
	if b.runes > 0 {
		b.sb.WriteString(separator)
		b.runes += separatorLen
	}
	b.sb.WriteString(s)
	b.runes += utf8.RuneCountInString(s)
}

func (b *buffer) Len() int { return b.runes }

func (b *buffer) String() string { return b.sb.String() }

func (b *buffer) Reset() {
	b.sb.Reset()
	b.runes = 0
}
