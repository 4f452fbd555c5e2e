// Package indexer ingests a book: extract, chunk, embed, then swap the result into the
// vector store, the database and the keyword index.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/petya0111/ai-agent-story-book/internal/chunker"
	"github.com/petya0111/ai-agent-story-book/internal/embedding"
	"github.com/petya0111/ai-agent-story-book/internal/extract"
	"github.com/petya0111/ai-agent-story-book/internal/fileid"
	"github.com/petya0111/ai-agent-story-book/internal/keyword"
	"github.com/petya0111/ai-agent-story-book/internal/models"
	"github.com/petya0111/ai-agent-story-book/internal/storage"
	"github.com/petya0111/ai-agent-story-book/internal/vector"
)

// Metadata keys set on vector records besides the chunk provenance.
const (
	MetaBookID = "book_id"
	MetaTitle  = "title"
)

// IngestResult reports one ingestion.
type IngestResult struct {
	BookID string
	Title  string
	Chunks int
	// Mode is the provider tag of the embedder that produced the vectors.
	Mode   string
	Format string
	Pages  int
}

// Indexer ingests books. Ingestions are serialised; queries against the store keep
// seeing the previous book until the new one is swapped in.
type Indexer struct {
	mu sync.Mutex

	store        *vector.Store
	embedder     embedding.Embedder
	storage      storage.Storage
	keywordIndex keyword.Index
	extractor    *extract.Extractor

	textTarget  int
	pageTarget  int
	allowedExts []string
	logger      *zap.Logger

	activeMu sync.RWMutex
	active   *models.Book
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithTargets sets the default chunk budgets for plain and paginated sources.
func WithTargets(textChars, pageChars int) IndexerOption {
	return func(idx *Indexer) {
		if textChars > 0 {
			idx.textTarget = textChars
		}
		if pageChars > 0 {
			idx.pageTarget = pageChars
		}
	}
}

// WithAllowedExtensions restricts IngestFile to the given extensions (with or without dot).
func WithAllowedExtensions(exts []string) IndexerOption {
	return func(idx *Indexer) { idx.allowedExts = exts }
}

// NewIndexer creates an indexer. st and kw may be nil, in which case books are kept
// only in the vector store.
func NewIndexer(
	store *vector.Store,
	embedder embedding.Embedder,
	st storage.Storage,
	kw keyword.Index,
	extractor *extract.Extractor,
	opts ...IndexerOption,
) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		store:        store,
		embedder:     embedder,
		storage:      st,
		keywordIndex: kw,
		extractor:    extractor,
		textTarget:   chunker.DefaultTargetChars,
		pageTarget:   chunker.DefaultPageTargetChars,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IngestFile ingests the book at path, replacing the current one. targetChars <= 0 uses
// the default budget for the source kind (paginated or plain).
func (idx *Indexer) IngestFile(ctx context.Context, path string, targetChars int) (*IngestResult, error) {
	idx.logger.Debug("indexer ingesting file", zap.String("path", path))
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(idx.allowedExts) > 0 && !extensionAllowed(ext, idx.allowedExts) {
		return nil, models.InputError("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, models.DataError(err, "file not found: %s", path)
	}
	if !info.Mode().IsRegular() {
		return nil, models.InputError("not a regular file: %s", absPath)
	}

	src, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, err
	}
	bookID, err := fileid.BookID(absPath)
	if err != nil {
		return nil, err
	}
	book := &models.Book{
		ID:         bookID,
		Title:      TitleFromPath(absPath),
		SourcePath: absPath,
		Format:     src.Format,
		Pages:      len(src.Pages),
	}

	var chunks []chunker.Chunk
	if src.Paginated() {
		if targetChars <= 0 {
			targetChars = idx.pageTarget
		}
		chunks = chunker.ChunkPages(src.Pages, targetChars)
		if n := len(src.Pages); n > 0 {
			book.Pages = src.Pages[n-1].Number
		}
	} else {
		if targetChars <= 0 {
			targetChars = idx.textTarget
		}
		chunks = chunker.ChunkText(src.Text, targetChars)
	}
	return idx.ingest(ctx, book, chunks)
}

// IngestText ingests raw text as a book titled title, replacing the current one.
func (idx *Indexer) IngestText(ctx context.Context, title, text string, targetChars int) (*IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.InputError("text is empty")
	}
	if targetChars <= 0 {
		targetChars = idx.textTarget
	}
	book := &models.Book{
		ID:     fileid.TextBookID(title, text),
		Title:  title,
		Format: extract.FormatText,
	}
	return idx.ingest(ctx, book, chunker.ChunkText(text, targetChars))
}

// ingest embeds chunks and builds every record before anything is swapped in, so a
// failure leaves the store, the database and the keyword index untouched.
func (idx *Indexer) ingest(ctx context.Context, book *models.Book, chunks []chunker.Chunk) (*IngestResult, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]vector.Record, len(chunks))
	stored := make([]*models.StoredChunk, len(chunks))
	passages := make([]keyword.Passage, len(chunks))
	for i, c := range chunks {
		meta := make(map[string]string, len(c.Provenance)+2)
		for k, v := range c.Provenance {
			meta[k] = v
		}
		meta[MetaBookID] = book.ID
		meta[MetaTitle] = book.Title
		records[i] = vector.Record{ID: c.ID, Text: c.Text, Vector: vectors[i], Metadata: meta}

		pageStart, pageEnd := pageSpan(c.Provenance)
		stored[i] = &models.StoredChunk{
			ID:        c.ID,
			Seq:       i,
			Text:      c.Text,
			PageStart: pageStart,
			PageEnd:   pageEnd,
		}
		passages[i] = keyword.Passage{
			ID:        c.ID,
			BookID:    book.ID,
			Text:      c.Text,
			PageStart: pageStart,
			PageEnd:   pageEnd,
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.storage != nil {
		if err := idx.storage.UpsertBook(ctx, book); err != nil {
			return nil, fmt.Errorf("failed to store book: %w", err)
		}
		if err := idx.storage.ReplaceChunks(ctx, book.ID, stored); err != nil {
			return nil, fmt.Errorf("failed to store chunks: %w", err)
		}
	}
	idx.store.Replace(records)
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Replace(ctx, passages); err != nil {
			// Keyword search lags behind until the next successful ingestion.
			idx.logger.Warn("keyword index update failed", zap.String("book_id", book.ID), zap.Error(err))
		}
	}

	idx.activeMu.Lock()
	idx.active = book
	idx.activeMu.Unlock()

	result := &IngestResult{
		BookID: book.ID,
		Title:  book.Title,
		Chunks: len(records),
		Mode:   string(idx.embedder.Provider()),
		Format: book.Format,
		Pages:  book.Pages,
	}
	idx.logger.Info("book ingested",
		zap.String("book_id", result.BookID),
		zap.String("title", result.Title),
		zap.Int("chunks", result.Chunks),
		zap.String("mode", result.Mode),
		zap.String("format", result.Format),
	)
	return result, nil
}

// ActiveBook returns the most recently ingested book, or nil.
func (idx *Indexer) ActiveBook() *models.Book {
	idx.activeMu.RLock()
	defer idx.activeMu.RUnlock()
	if idx.active == nil {
		return nil
	}
	b := *idx.active
	return &b
}

func pageSpan(provenance map[string]string) (int, int) {
	start, err1 := strconv.Atoi(provenance[chunker.MetaPageStart])
	end, err2 := strconv.Atoi(provenance[chunker.MetaPageEnd])
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return start, end
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
