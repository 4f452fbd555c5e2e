package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/petya0111/ai-agent-story-book/internal/models"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) (*OpenAIEmbedder, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return e, srv
}

func TestOpenAIEmbedder_ReordersByIndex(t *testing.T) {
	e, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != DefaultOpenAIModel || len(req.Input) != 3 {
			t.Errorf("request = %+v", req)
		}
		_, _ = w.Write([]byte(`{"data":[
			{"index":2,"embedding":[0,0,1]},
			{"index":0,"embedding":[1,0,0]},
			{"index":1,"embedding":[0,1,0]}]}`))
	})

	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vecs {
		if v[i] != 1 {
			t.Errorf("vector %d = %v, want one-hot at %d", i, v, i)
		}
	}
}

func TestOpenAIEmbedder_EmptyInputMakesNoCall(t *testing.T) {
	var calls int32
	e, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	vecs, err := e.Embed(context.Background(), nil)
	if err != nil || len(vecs) != 0 {
		t.Fatalf("got %v, %v", vecs, err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("empty input should not call the API")
	}
}

func TestOpenAIEmbedder_UpstreamStatus(t *testing.T) {
	e, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	})
	_, err := e.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, models.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	var ue *models.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatal("expected *UpstreamError")
	}
	if ue.StatusCode != http.StatusTooManyRequests || ue.Message != "Rate limit reached" || ue.Provider != "openai" {
		t.Errorf("got %+v", ue)
	}
}

func TestOpenAIEmbedder_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"count mismatch", `{"data":[{"index":0,"embedding":[1]}]}`},
		{"duplicate index", `{"data":[{"index":0,"embedding":[1]},{"index":0,"embedding":[2]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := e.Embed(context.Background(), []string{"a", "b"})
			if !errors.Is(err, models.ErrUpstream) {
				t.Errorf("expected ErrUpstream, got %v", err)
			}
		})
	}
}

func TestOpenAIEmbedder_TransportError(t *testing.T) {
	e, srv := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()
	_, err := e.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, models.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestNewOpenAIEmbedder(t *testing.T) {
	if _, err := NewOpenAIEmbedder(OpenAIConfig{}); !errors.Is(err, models.ErrPrecondition) {
		t.Errorf("missing key: got %v", err)
	}
	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", Model: "text-embedding-3-large"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 3072 || e.Provider() != ProviderOpenAI {
		t.Errorf("got dim=%d provider=%s", e.Dimensions(), e.Provider())
	}
	if err := e.Close(); err != nil {
		t.Error(err)
	}
}
