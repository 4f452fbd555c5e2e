// Package extract reads book sources (PDF, plain text, Word, OpenDocument, RTF and Excel
// lore sheets) into paragraph text or numbered pages.
package extract

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/petya0111/ai-agent-story-book/internal/chunker"
	"github.com/petya0111/ai-agent-story-book/internal/models"
)

// Formats reported in Source.Format.
const (
	FormatPDF      = "pdf"
	FormatText     = "txt"
	FormatMarkdown = "md"
	FormatRST      = "rst"
	FormatDOCX     = "docx"
	FormatODT      = "odt"
	FormatRTF      = "rtf"
	FormatXLSX     = "xlsx"
)

// Source is the extracted content of one file. Pages is set only for paginated formats;
// Text always holds the full content with paragraphs separated by blank lines.
type Source struct {
	Format string
	Text   string
	Pages  []chunker.Page
}

// Paginated reports whether the source carries page numbers.
func (s *Source) Paginated() bool {
	return len(s.Pages) > 0
}

// Extractor extracts text from book files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with leading dot) can be extracted.
func Supported(ext string) bool {
	_, ok := formatFor(strings.ToLower(ext))
	return ok
}

// Extract reads the file at path. A missing or unreadable file is an ErrData error; an
// unsupported extension is an ErrInput error.
func (e *Extractor) Extract(path string) (*Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := formatFor(ext); !ok {
		return nil, models.InputError("unsupported book format %q", ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, models.DataError(err, "read %s", path)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts content based on the given extension (with leading dot).
func (e *Extractor) ExtractBytes(content []byte, ext string) (*Source, error) {
	format, ok := formatFor(strings.ToLower(ext))
	if !ok {
		return nil, models.InputError("unsupported book format %q", ext)
	}

	src := &Source{Format: format}
	var err error
	switch format {
	case FormatPDF:
		src.Pages, err = extractPDF(content)
		if err == nil {
			src.Text = joinPages(src.Pages)
		}
	case FormatDOCX:
		src.Text, err = extractDOCX(content)
	case FormatODT, FormatRTF:
		src.Text, err = extractCat(content)
	case FormatXLSX:
		src.Text, err = extractExcel(content)
	default:
		src.Text, err = extractPlain(content)
	}
	if err != nil {
		return nil, models.DataError(err, "extract %s", format)
	}
	return src, nil
}

func formatFor(ext string) (string, bool) {
	switch ext {
	case ".pdf":
		return FormatPDF, true
	case ".txt", "":
		return FormatText, true
	case ".md", ".markdown":
		return FormatMarkdown, true
	case ".rst":
		return FormatRST, true
	case ".docx":
		return FormatDOCX, true
	case ".odt":
		return FormatODT, true
	case ".rtf":
		return FormatRTF, true
	case ".xlsx":
		return FormatXLSX, true
	default:
		return "", false
	}
}

func joinPages(pages []chunker.Page) string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n\n")
}
