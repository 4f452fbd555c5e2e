package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

const (
	fieldText   = "text"
	fieldBookID = "book_id"
	fieldPages  = "page_start"
)

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
	opts  SearchOptions
}

var _ Index = (*BleveIndex)(nil)

func passageMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so names like "Elarion" match as written.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldText, textFieldMapping)

	bookFieldMapping := bleve.NewTextFieldMapping()
	bookFieldMapping.Analyzer = keywordanalyzer.Name
	docMapping.AddFieldMappingsAt(fieldBookID, bookFieldMapping)
	docMapping.AddFieldMappingsAt(fieldPages, bleve.NewNumericFieldMapping())

	im.AddDocumentMapping("passage", docMapping)
	im.DefaultType = "passage"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path keeps the index in
// memory only. An existing index directory is reopened; remove it after changing the mapping.
func NewBleveIndex(path string, opts SearchOptions) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(passageMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index, opts: opts}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index, opts: opts}, nil
	}

	index, err := bleve.New(path, passageMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index, opts: opts}, nil
}

// Replace indexes passages and removes every document not among them, in one batch.
func (b *BleveIndex) Replace(ctx context.Context, passages []Passage) error {
	stale, err := b.allIDs()
	if err != nil {
		return err
	}

	batch := b.index.NewBatch()
	for _, p := range passages {
		if err := ctx.Err(); err != nil {
			return err
		}
		delete(stale, p.ID)
		doc := map[string]interface{}{
			fieldText:   p.Text,
			fieldBookID: p.BookID,
			fieldPages:  float64(p.PageStart),
		}
		if err := batch.Index(p.ID, doc); err != nil {
			return fmt.Errorf("index passage %s: %w", p.ID, err)
		}
	}
	for id := range stale {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

func (b *BleveIndex) allIDs() (map[string]struct{}, error) {
	count, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get doc count: %w", err)
	}
	ids := make(map[string]struct{}, count)
	if count == 0 {
		return ids, nil
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	for _, hit := range results.Hits {
		ids[hit.ID] = struct{}{}
	}
	return ids, nil
}

// Search runs a match (or fuzzy) query over passage text and returns up to limit results,
// highest score first. Passages containing the query as a phrase get the phrase boost.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	terms := tokenizeQuery(query)
	if len(terms) == 0 || limit <= 0 {
		return []*Result{}, nil
	}

	var q blevequery.Query
	if b.opts.Fuzziness > 0 {
		q = buildFuzzyQuery(terms, b.opts.Fuzziness)
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(fieldText)
		q = mq
	}

	// Request extra hits so the phrase boost can reorder beyond the first limit.
	reqSize := limit
	boosting := b.opts.PhraseBoost > 1.0 && len(terms) > 1
	if boosting && reqSize < 50 {
		reqSize = 50
	}

	req := bleve.NewSearchRequest(q)
	req.Size = reqSize
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(fieldText)
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	var phrases map[string]bool
	if boosting {
		phrases = b.findPhraseMatches(ctx, query, reqSize)
	}

	out := make([]*Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		score := hit.Score
		if phrases[hit.ID] {
			score *= b.opts.PhraseBoost
		}
		out = append(out, &Result{ID: hit.ID, Score: score, Fragments: hit.Fragments[fieldText]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery ORs one FuzzyQuery per term over the text field.
func buildFuzzyQuery(terms []string, fuzziness int) blevequery.Query {
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(fieldText)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

func (b *BleveIndex) findPhraseMatches(ctx context.Context, query string, reqSize int) map[string]bool {
	matches := make(map[string]bool)
	pq := bleve.NewMatchPhraseQuery(query)
	pq.SetField(fieldText)
	req := bleve.NewSearchRequest(pq)
	req.Size = reqSize
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return matches
	}
	for _, hit := range results.Hits {
		matches[hit.ID] = true
	}
	return matches
}

// DocCount returns the number of indexed passages.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
