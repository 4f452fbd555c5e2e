// Package vector provides the in-memory vector store used for retrieval: brute-force cosine
// search over the records of the current ingestion.
package vector

import (
	"sort"
	"sync"
)

// Record is a stored chunk with its embedding.
type Record struct {
	ID       string
	Text     string
	Vector   []float64
	Metadata map[string]string
}

// Hit is a record with its similarity to the query.
type Hit struct {
	Record Record
	Score  float64
}

// Store is a concurrency-safe in-memory collection of records. Queries take the read lock;
// mutations take the write lock, so a query never observes a partially replaced store.
type Store struct {
	mu      sync.RWMutex
	records []Record
	byID    map[string]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// Clear removes all records.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.byID = make(map[string]int)
}

// AddAll appends records in order. A record whose ID is already present is appended too;
// Get returns the latest one.
func (s *Store) AddAll(records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(records)
}

// Replace atomically swaps the store contents for records.
func (s *Store) Replace(records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.byID = make(map[string]int, len(records))
	s.appendLocked(records)
}

func (s *Store) appendLocked(records []Record) {
	for _, r := range records {
		s.byID[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
}

// IsEmpty reports whether the store holds no records.
func (s *Store) IsEmpty() bool {
	return s.Size() == 0
}

// Size returns the number of records.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// TopK returns the min(k, Size()) records most similar to query, most similar first.
// Ties keep insertion order. k <= 0 or an empty store yields an empty result.
func (s *Store) TopK(query []float64, k int) []Record {
	hits := s.Search(query, k)
	out := make([]Record, len(hits))
	for i, h := range hits {
		out[i] = h.Record
	}
	return out
}

// Search is TopK with similarity scores.
func (s *Store) Search(query []float64, k int) []Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.records) == 0 {
		return []Hit{}
	}
	hits := make([]Hit, len(s.records))
	for i, r := range s.records {
		hits[i] = Hit{Record: r, Score: Cosine(r.Vector, query)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}
