package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
llm:
  provider: local
  requests_per_minute: 30
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %s", cfg.Server.Addr())
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.LLM.Provider != ProviderLocal || cfg.LLM.RequestsPerMinute != 30 {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 8080
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/storybook.db"
ingest:
  book_path: "./books/saga.pdf"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "storybook.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantBook := filepath.Join(dir, "books", "saga.pdf")
	if cfg.Ingest.BookPath != wantBook {
		t.Errorf("book_path = %s, want %s", cfg.Ingest.BookPath, wantBook)
	}
	if cfg.Storage.KeywordIndexPath != "" {
		t.Errorf("keyword_index_path should stay empty (memory index), got %s", cfg.Storage.KeywordIndexPath)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("default dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Ingest.TargetChars != 3500 || cfg.Ingest.PageTargetChars != 5000 {
		t.Errorf("default targets: got %d / %d", cfg.Ingest.TargetChars, cfg.Ingest.PageTargetChars)
	}
	if cfg.Search.DefaultTopK != 5 {
		t.Errorf("default top k: got %d", cfg.Search.DefaultTopK)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.Temperature != 0.2 || cfg.LLM.RewriteTemperature != 0.4 {
		t.Errorf("llm defaults: %+v", cfg.LLM)
	}
	if cfg.Search.KeywordWeight != 0.4 || cfg.Search.SemanticWeight != 0.6 {
		t.Errorf("default weights: %f / %f", cfg.Search.KeywordWeight, cfg.Search.SemanticWeight)
	}
	if len(cfg.Ingest.Extensions) == 0 || cfg.Ingest.Extensions[0] != ".pdf" {
		t.Errorf("ingest extensions: got %v", cfg.Ingest.Extensions)
	}
}

func TestApplyDefaults_keepsExplicitWeights(t *testing.T) {
	cfg := &Config{Search: SearchConfig{KeywordWeight: 1}}
	ApplyDefaults(cfg)
	if cfg.Search.KeywordWeight != 1 || cfg.Search.SemanticWeight != 0 {
		t.Errorf("weights overwritten: %+v", cfg.Search)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("INGEST_ON_STARTUP", "true")
	t.Setenv("BOOK_PDF_PATH", "/books/saga.pdf")
	t.Setenv("BOOK_PATH", "/books/other.txt")
	t.Setenv("OPENAI_MODEL", "gpt-test")
	t.Setenv("GENERATE_TEMPERATURE", "0.9")

	cfg := Default()
	ApplyEnv(cfg)
	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if !cfg.Ingest.OnStartup {
		t.Error("on_startup should be true")
	}
	if cfg.Ingest.BookPath != "/books/saga.pdf" {
		t.Errorf("BOOK_PDF_PATH should win, got %s", cfg.Ingest.BookPath)
	}
	if cfg.LLM.Model != "gpt-test" || cfg.LLM.RewriteTemperature != 0.9 {
		t.Errorf("llm = %+v", cfg.LLM)
	}
}

func TestApplyEnv_ignoresBadValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("INGEST_ON_STARTUP", "maybe")
	cfg := Default()
	ApplyEnv(cfg)
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default", cfg.Server.Port)
	}
	if cfg.Ingest.OnStartup {
		t.Error("on_startup should stay false")
	}
}

func TestResolvedProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
		want     string
	}{
		{"auto with key", ProviderAuto, "sk-test", ProviderOpenAI},
		{"auto without key", ProviderAuto, "", ProviderLocal},
		{"empty without key", "", "", ProviderLocal},
		{"explicit local with key", ProviderLocal, "sk-test", ProviderLocal},
		{"explicit onnx", "ONNX", "", ProviderONNX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORYBOOK_TEST_KEY", tt.key)
			e := EmbeddingConfig{Provider: tt.provider, APIKeyEnv: "STORYBOOK_TEST_KEY"}
			if got := e.ResolvedProvider(); got != tt.want {
				t.Errorf("embedding ResolvedProvider() = %s, want %s", got, tt.want)
			}
			l := LLMConfig{Provider: tt.provider, APIKeyEnv: "STORYBOOK_TEST_KEY"}
			if got := l.ResolvedProvider(); got != tt.want {
				t.Errorf("llm ResolvedProvider() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Storage.DatabasePath != "/tmp/db" {
		t.Errorf("loaded database path: got %s", loaded.Storage.DatabasePath)
	}
}
