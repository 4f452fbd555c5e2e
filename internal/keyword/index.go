// Package keyword provides the keyword (BM25) index over book passages.
package keyword

import "context"

// Passage is one chunk of the active book as seen by the keyword index.
type Passage struct {
	ID        string
	BookID    string
	Text      string
	PageStart int
	PageEnd   int
}

// SearchOptions tune keyword matching. The zero value is a plain match query.
type SearchOptions struct {
	// Fuzziness is the maximum edit distance per query term (1 or 2). 0 disables fuzzy matching.
	Fuzziness int
	// PhraseBoost multiplies the score of passages where the query terms appear as a phrase.
	// Values <= 1 disable the boost.
	PhraseBoost float64
}

// Result is a single keyword hit. Fragments hold highlighted excerpts of the passage text.
type Result struct {
	ID        string
	Score     float64
	Fragments []string
}

// Index defines keyword index operations.
type Index interface {
	// Replace makes passages the complete content of the index.
	Replace(ctx context.Context, passages []Passage) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	DocCount() (uint64, error)
	Close() error
}
