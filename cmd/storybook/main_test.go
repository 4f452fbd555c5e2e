package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/petya0111/ai-agent-story-book/internal/config"
	"github.com/petya0111/ai-agent-story-book/internal/models"
)

func TestFlagsFirst(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after question are moved first",
			args:     []string{"who is Aric", "-top-k", "3"},
			expected: []string{"-top-k", "3", "who is Aric"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-top-k", "3", "who is Aric"},
			expected: []string{"-top-k", "3", "who is Aric"},
		},
		{
			name:     "positionals only returns unchanged",
			args:     []string{"who", "is", "Aric"},
			expected: []string{"who", "is", "Aric"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flagsFirst(tt.args); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("flagsFirst() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		args     []string
		expected string
	}{
		{[]string{"dragon"}, "dragon"},
		{[]string{"who", "forged", "the", "lance"}, "who forged the lance"},
		{[]string{"who forged the lance"}, "who forged the lance"},
		{[]string{}, ""},
		{[]string{"  ", " "}, ""},
	}
	for _, tt := range tests {
		if got := joinArgs(tt.args); got != tt.expected {
			t.Errorf("joinArgs(%v) = %q, want %q", tt.args, got, tt.expected)
		}
	}
}

func TestPassagesURL(t *testing.T) {
	got := passagesURL("http://localhost:8080/", "silver lance", 3)
	want := "http://localhost:8080/api/v1/passages?limit=3&q=silver+lance"
	if got != want {
		t.Errorf("passagesURL() = %q, want %q", got, want)
	}
	if got := passagesURL("http://h", "x", 0); strings.Contains(got, "limit") {
		t.Errorf("zero limit should be omitted: %q", got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")

	t.Run("explicit missing file fails", func(t *testing.T) {
		if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("default path falls back to defaults", func(t *testing.T) {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chdir(wd) })
		cfg, err := loadConfig(defaultConfigPath)
		if err != nil {
			t.Fatalf("loadConfig: %v", err)
		}
		if cfg.Ingest.TargetChars != 3500 || cfg.Server.Port != 9191 {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("file values with env overlay", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.yaml")
		if err := os.WriteFile(path, []byte("server:\n  port: 7000\ningest:\n  target_chars: 900\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := loadConfig(path)
		if err != nil {
			t.Fatalf("loadConfig: %v", err)
		}
		if cfg.Ingest.TargetChars != 900 || cfg.Server.Port != 9191 {
			t.Errorf("target=%d port=%d", cfg.Ingest.TargetChars, cfg.Server.Port)
		}
	})
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.PageTargetChars != 5000 {
		t.Errorf("page target = %d", cfg.Ingest.PageTargetChars)
	}
	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("expected error for existing file without force")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("force overwrite: %v", err)
	}
}

func TestCallAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/v1/ask" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"vector store empty; ingest first"}`))
			return
		}
		_, _ = w.Write([]byte(`{"books":2,"chunks":40,"vectors":40}`))
	}))
	defer srv.Close()

	var status models.StatusResponse
	if err := callAPI(http.MethodGet, srv.URL+"/api/v1/status", nil, &status); err != nil {
		t.Fatalf("callAPI: %v", err)
	}
	if status.Books != 2 || status.Vectors != 40 {
		t.Errorf("status = %+v", status)
	}

	var ask models.AskResponse
	err := callAPI(http.MethodPost, srv.URL+"/api/v1/ask", models.AskRequest{Question: "q"}, &ask)
	if err == nil || !strings.Contains(err.Error(), "400: vector store empty") {
		t.Errorf("err = %v", err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "data", "storybook.db")
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Embedding.Provider = config.ProviderLocal
	cfg.LLM.Provider = config.ProviderLocal
	cfg.Ingest.BookPath = filepath.Join(dir, "book.txt")
	return cfg
}

func TestInitializeComponents_ingestAndAsk(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.Ingest.BookPath, []byte("Aric was born in the northern keep.\n\nThe dragon Vask slept."), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if !ingestConfiguredBook(ctx, c.Indexer, cfg, zap.NewNop()) {
		t.Fatal("configured book was not ingested")
	}
	resp, err := c.Engine.Ask(ctx, "Where was Aric born?", 1)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Provider != "local" || len(resp.Citations) != 1 {
		t.Errorf("ask = %+v", resp)
	}

	status, err := localStatus(ctx, cfg, c)
	if err != nil {
		t.Fatalf("localStatus: %v", err)
	}
	if status.Books != 1 || status.Vectors == 0 || status.DiskUsage["database"] == 0 {
		t.Errorf("status = %+v", status)
	}
}

func TestIngestConfiguredBook_missing(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer c.Close()
	if ingestConfiguredBook(context.Background(), c.Indexer, cfg, zap.NewNop()) {
		t.Error("missing book reported as ingested")
	}
}
