package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/petya0111/ai-agent-story-book/pkg/utils"
)

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder(0)
	if e.Dimensions() != DefaultLocalDimensions {
		t.Fatalf("Dimensions() = %d", e.Dimensions())
	}
	a := e.Vector("The dragon sleeps under the mountain.")
	b := e.Vector("The dragon sleeps under the mountain.")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
		}
	}
	if n := utils.L2Norm(a); math.Abs(n-1) > 1e-9 {
		t.Errorf("norm = %v, want 1", n)
	}
}

func TestLocalEmbedder_WordCounts(t *testing.T) {
	e := NewLocalEmbedder(384)
	v := e.Vector("abc")
	if v[96354%384] != 1 {
		t.Errorf("bucket for abc = %v, want 1", v[96354%384])
	}
	// Case and punctuation do not matter.
	w := e.Vector("ABC!!!")
	for i := range v {
		if v[i] != w[i] {
			t.Fatalf("component %d differs", i)
		}
	}
	// Two identical words land in one bucket: normalised value stays 1.
	x := e.Vector("abc abc")
	if x[96354%384] != 1 {
		t.Errorf("repeated word bucket = %v", x[96354%384])
	}
}

func TestLocalEmbedder_ZeroVector(t *testing.T) {
	e := NewLocalEmbedder(16)
	for _, in := range []string{"", "   ", "?!—"} {
		v := e.Vector(in)
		if len(v) != 16 {
			t.Fatalf("len = %d", len(v))
		}
		for i, c := range v {
			if c != 0 {
				t.Errorf("Vector(%q)[%d] = %v, want 0", in, i, c)
			}
		}
	}
}

func TestLocalEmbedder_Embed(t *testing.T) {
	e := NewLocalEmbedder(32)
	vecs, err := e.Embed(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	empty, err := e.Embed(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty input: %v, %v", empty, err)
	}
	if e.Provider() != ProviderLocal {
		t.Errorf("Provider() = %s", e.Provider())
	}
}

func TestLocalEmbedder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocalEmbedder(8).Embed(ctx, []string{"a"}); err == nil {
		t.Error("expected context error")
	}
}
