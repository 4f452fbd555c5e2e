package keyword

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var lore = []Passage{
	{ID: "chunk-0", BookID: "b1", Text: "Elarion rode north to the Frostmarch with the silver lance."},
	{ID: "chunk-1", BookID: "b1", Text: "The dragon slept beneath the mountain for a thousand years."},
	{ID: "chunk-2", BookID: "b1", Text: "Mountain dragon lore says the beast wakes when the silver bell rings."},
}

func newMemIndex(t *testing.T, opts SearchOptions) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("", opts)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchFindsPassage(t *testing.T) {
	idx := newMemIndex(t, SearchOptions{})
	ctx := context.Background()
	if err := idx.Replace(ctx, lore); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	results, err := idx.Search(ctx, "Elarion", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "chunk-0" {
		t.Fatalf("expected chunk-0 only, got %+v", results)
	}
	if len(results[0].Fragments) == 0 || !strings.Contains(results[0].Fragments[0], "Elarion") {
		t.Errorf("expected highlighted fragment, got %v", results[0].Fragments)
	}
}

func TestBleveIndex_SearchEmptyQuery(t *testing.T) {
	idx := newMemIndex(t, SearchOptions{})
	if err := idx.Replace(context.Background(), lore); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(context.Background(), "   ", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBleveIndex_ReplaceDropsStalePassages(t *testing.T) {
	idx := newMemIndex(t, SearchOptions{})
	ctx := context.Background()
	if err := idx.Replace(ctx, lore); err != nil {
		t.Fatal(err)
	}
	if err := idx.Replace(ctx, []Passage{{ID: "chunk-0", BookID: "b2", Text: "A quiet harbour town."}}); err != nil {
		t.Fatal(err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("DocCount = %d, want 1", count)
	}
	results, _ := idx.Search(ctx, "dragon", 10)
	if len(results) != 0 {
		t.Errorf("stale passages still searchable: %+v", results)
	}
	results, _ = idx.Search(ctx, "harbour", 10)
	if len(results) != 1 {
		t.Errorf("expected replaced passage, got %+v", results)
	}
}

func TestBleveIndex_PhraseBoost(t *testing.T) {
	idx := newMemIndex(t, SearchOptions{PhraseBoost: 10})
	ctx := context.Background()
	if err := idx.Replace(ctx, lore); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, "mountain dragon", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) < 2 {
		t.Fatalf("expected both dragon passages, got %d", len(results))
	}
	if results[0].ID != "chunk-2" {
		t.Errorf("phrase match should rank first, got %s", results[0].ID)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newMemIndex(t, SearchOptions{Fuzziness: 1})
	ctx := context.Background()
	if err := idx.Replace(ctx, lore); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, "elarian", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].ID != "chunk-0" {
		t.Errorf("fuzzy search should find chunk-0, got %+v", results)
	}
}

func TestBleveIndex_Limit(t *testing.T) {
	idx := newMemIndex(t, SearchOptions{})
	ctx := context.Background()
	if err := idx.Replace(ctx, lore); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, "silver", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("limit 1: got %d results", len(results))
	}
}

func TestBleveIndex_OnDiskReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(path, SearchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("index directory not created: %v", err)
	}
	if err := idx.Replace(ctx, lore); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBleveIndex(path, SearchOptions{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	count, err := reopened.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != uint64(len(lore)) {
		t.Errorf("DocCount after reopen = %d, want %d", count, len(lore))
	}
}
