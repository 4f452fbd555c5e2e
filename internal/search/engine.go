// Package search answers questions over the ingested book and runs hybrid (keyword +
// semantic) passage search.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/petya0111/ai-agent-story-book/internal/config"
	"github.com/petya0111/ai-agent-story-book/internal/embedding"
	"github.com/petya0111/ai-agent-story-book/internal/keyword"
	"github.com/petya0111/ai-agent-story-book/internal/models"
	"github.com/petya0111/ai-agent-story-book/internal/vector"
)

const (
	defaultTopK         = 5
	defaultPreviewChars = 200
	minCandidates       = 20
)

// AnswerSynthesizer turns a question and retrieved passages into an answer.
type AnswerSynthesizer interface {
	Answer(ctx context.Context, question string, contexts []string) (string, error)
	Provider() string
}

// Engine runs retrieval over the vector store and, when a keyword index is set, hybrid
// passage search.
type Engine struct {
	store        *vector.Store
	embedder     embedding.Embedder
	synthesizer  AnswerSynthesizer
	keywordIndex keyword.Index
	config       config.SearchConfig
	logger       *zap.Logger
}

// NewEngine creates a search engine. kw may be nil, in which case passage search is
// semantic only.
func NewEngine(
	store *vector.Store,
	embedder embedding.Embedder,
	synthesizer AnswerSynthesizer,
	kw keyword.Index,
	cfg config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = defaultTopK
	}
	if cfg.PreviewChars <= 0 {
		cfg.PreviewChars = defaultPreviewChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:        store,
		embedder:     embedder,
		synthesizer:  synthesizer,
		keywordIndex: kw,
		config:       cfg,
		logger:       logger,
	}
}

// Ask answers question from the k passages most similar to it. k <= 0 uses the default.
func (e *Engine) Ask(ctx context.Context, question string, k int) (*models.AskResponse, error) {
	if e.store.IsEmpty() {
		return nil, models.PreconditionError("vector store empty; ingest first")
	}
	q, err := ProcessQuery(question)
	if err != nil {
		return nil, err
	}
	k = ResolveLimit(k, e.config.DefaultTopK, e.config.MaxTopK)

	queryVec, err := embedding.EmbedOne(ctx, e.embedder, q)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	records := e.store.TopK(queryVec, k)

	contexts := make([]string, len(records))
	citations := make([]models.Citation, len(records))
	for i, rec := range records {
		contexts[i] = rec.Text
		citations[i] = CitationFor(rec, e.config.PreviewChars)
	}

	answer, err := e.synthesizer.Answer(ctx, q, contexts)
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}
	e.logger.Debug("question answered",
		zap.Int("k", k),
		zap.Int("citations", len(citations)),
		zap.String("provider", e.synthesizer.Provider()),
	)
	return &models.AskResponse{
		Answer:    answer,
		Citations: citations,
		Provider:  e.synthesizer.Provider(),
	}, nil
}

// Passages runs keyword and semantic search concurrently and returns up to limit passages
// ranked by the weighted sum of both normalised scores.
func (e *Engine) Passages(ctx context.Context, query string, limit int) (*models.PassageResponse, error) {
	startTime := time.Now()
	if e.store.IsEmpty() {
		return nil, models.PreconditionError("vector store empty; ingest first")
	}
	q, err := ProcessQuery(query)
	if err != nil {
		return nil, err
	}
	limit = ResolveLimit(limit, e.config.DefaultTopK, e.config.MaxTopK)
	candidates := limit * 4
	if candidates < minCandidates {
		candidates = minCandidates
	}

	keywordWeight, semanticWeight := e.config.KeywordWeight, e.config.SemanticWeight
	if e.keywordIndex == nil {
		keywordWeight, semanticWeight = 0, 1
	}

	var (
		keywordResults []*keyword.Result
		semanticHits   []vector.Hit
		errChan        = make(chan error, 2)
		wg             sync.WaitGroup
	)

	if keywordWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.keywordIndex.Search(ctx, q, candidates)
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if semanticWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryVec, err := embedding.EmbedOne(ctx, e.embedder, q)
			if err != nil {
				errChan <- fmt.Errorf("embedding failed: %w", err)
				return
			}
			semanticHits = e.store.Search(queryVec, candidates)
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	fragments := make(map[string][]string, len(keywordResults))
	for _, r := range keywordResults {
		fragments[r.ID] = r.Fragments
	}
	fused := Fuse(
		NormalizeKeywordScores(keywordResults),
		NormalizeSemanticScores(semanticHits),
		keywordWeight, semanticWeight,
	)

	resp := &models.PassageResponse{
		Query:    q,
		Passages: make([]*models.Passage, 0, limit),
	}
	for _, f := range fused {
		if f.Score <= 0 {
			continue
		}
		// The keyword index can briefly lag behind the store after a failed update.
		rec, ok := e.store.Get(f.ID)
		if !ok {
			continue
		}
		resp.Total++
		if len(resp.Passages) == limit {
			continue
		}
		resp.Passages = append(resp.Passages, &models.Passage{
			ID:            rec.ID,
			Text:          rec.Text,
			Snippet:       Highlight(rec.Text, fragments[rec.ID], e.config.PreviewChars),
			Score:         f.Score,
			KeywordScore:  f.KeywordScore,
			SemanticScore: f.SemanticScore,
			Metadata:      rec.Metadata,
			Rank:          len(resp.Passages) + 1,
		})
	}
	resp.QueryTime = time.Since(startTime).Milliseconds()
	return resp, nil
}

// VectorCount returns the number of records in the vector store.
func (e *Engine) VectorCount() int {
	return e.store.Size()
}

// KeywordDocCount returns the number of passages in the keyword index, or 0 without one.
func (e *Engine) KeywordDocCount() uint64 {
	if e.keywordIndex == nil {
		return 0
	}
	n, err := e.keywordIndex.DocCount()
	if err != nil {
		e.logger.Warn("keyword doc count failed", zap.Error(err))
		return 0
	}
	return n
}

// EmbeddingProvider returns the provider tag of the embedder.
func (e *Engine) EmbeddingProvider() string {
	return string(e.embedder.Provider())
}

// Record returns the stored record with the given chunk ID.
func (e *Engine) Record(id string) (vector.Record, bool) {
	return e.store.Get(id)
}
