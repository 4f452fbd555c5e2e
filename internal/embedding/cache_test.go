package embedding

import (
	"context"
	"errors"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float64{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float64{4, 5})
	c.Set("c", []float64{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d", c.Len())
	}
}

// countingEmbedder records every text it is asked to embed.
type countingEmbedder struct {
	LocalEmbedder
	seen []string
	err  error
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.seen = append(e.seen, texts...)
	return e.LocalEmbedder.Embed(ctx, texts)
}

func TestCachedEmbedder_OnlyMissesReachInner(t *testing.T) {
	inner := &countingEmbedder{LocalEmbedder: *NewLocalEmbedder(8)}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"wolf", "raven", "wolf"})
	if err != nil {
		t.Fatal(err)
	}
	if len(inner.seen) != 2 {
		t.Fatalf("inner saw %v, want 2 distinct texts", inner.seen)
	}
	if first[0][0] != first[2][0] {
		t.Error("duplicate texts should share a vector")
	}

	second, err := c.Embed(ctx, []string{"raven", "oak", "wolf"})
	if err != nil {
		t.Fatal(err)
	}
	if len(inner.seen) != 3 || inner.seen[2] != "oak" {
		t.Fatalf("inner saw %v, want only oak added", inner.seen)
	}
	want := inner.Vector("oak")
	for i := range want {
		if second[1][i] != want[i] {
			t.Fatal("order not preserved")
		}
	}
	if c.Provider() != ProviderLocal || c.Dimensions() != 8 {
		t.Errorf("delegation: %s %d", c.Provider(), c.Dimensions())
	}
}

func TestCachedEmbedder_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	c := NewCachedEmbedder(&countingEmbedder{LocalEmbedder: *NewLocalEmbedder(8), err: boom}, 10)
	if _, err := c.Embed(context.Background(), []string{"x"}); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
}
