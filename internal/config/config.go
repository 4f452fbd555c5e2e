// Package config provides configuration loading and structs for the storybook server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by the embedding and llm sections.
const (
	ProviderAuto   = "auto"
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
	ProviderONNX   = "onnx"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the database, keyword index and uploads.
// An empty KeywordIndexPath keeps the keyword index in memory.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
	UploadDir        string `yaml:"upload_dir"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	Dimensions  int    `yaml:"dimensions"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	CacheSize   int    `yaml:"cache_size"`
	ModelPath   string `yaml:"model_path"`
	MaxTokens   int    `yaml:"max_tokens"`
}

// APIKey returns the key read from the APIKeyEnv environment variable.
func (e EmbeddingConfig) APIKey() string {
	return lookupKey(e.APIKeyEnv)
}

// ResolvedProvider returns the concrete provider, resolving "auto" by key presence.
func (e EmbeddingConfig) ResolvedProvider() string {
	return resolveProvider(e.Provider, e.APIKey())
}

// LLMConfig selects and configures the language model client.
type LLMConfig struct {
	Provider           string  `yaml:"provider"`
	Model              string  `yaml:"model"`
	BaseURL            string  `yaml:"base_url"`
	APIKeyEnv          string  `yaml:"api_key_env"`
	Temperature        float64 `yaml:"temperature"`
	RewriteTemperature float64 `yaml:"rewrite_temperature"`
	MaxTokens          int     `yaml:"max_tokens"`
	TimeoutSecs        int     `yaml:"timeout_secs"`
	RequestsPerMinute  int     `yaml:"requests_per_minute"`
}

// APIKey returns the key read from the APIKeyEnv environment variable.
func (l LLMConfig) APIKey() string {
	return lookupKey(l.APIKeyEnv)
}

// ResolvedProvider returns the concrete provider, resolving "auto" by key presence.
func (l LLMConfig) ResolvedProvider() string {
	return resolveProvider(l.Provider, l.APIKey())
}

// IngestConfig holds the book source and chunking budgets.
type IngestConfig struct {
	BookPath        string   `yaml:"book_path"`
	TargetChars     int      `yaml:"target_chars"`
	PageTargetChars int      `yaml:"page_target_chars"`
	OnStartup       bool     `yaml:"on_startup"`
	Watch           bool     `yaml:"watch"`
	Extensions      []string `yaml:"extensions"`
}

// SearchConfig holds retrieval and passage search settings.
type SearchConfig struct {
	DefaultTopK    int     `yaml:"default_top_k"`
	MaxTopK        int     `yaml:"max_top_k"`
	PreviewChars   int     `yaml:"preview_chars"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	// Fuzziness is the edit distance allowed per keyword term; 0 disables fuzzy matching.
	Fuzziness int `yaml:"fuzziness"`
	// PhraseBoost multiplies keyword scores of passages containing the query as a phrase.
	PhraseBoost float64 `yaml:"phrase_boost"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Ingest.BookPath = expandPath(cfg.Ingest.BookPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables on cfg. Unset or unparsable values are ignored.
func ApplyEnv(cfg *Config) {
	if v, ok := envInt("SERVER_PORT"); ok {
		cfg.Server.Port = v
	}
	if v, ok := os.LookupEnv("INGEST_ON_STARTUP"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Ingest.OnStartup = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOOK_PDF_PATH")); v != "" {
		cfg.Ingest.BookPath = v
	} else if v := strings.TrimSpace(os.Getenv("BOOK_PATH")); v != "" {
		cfg.Ingest.BookPath = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		cfg.LLM.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("GENERATE_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.RewriteTemperature = f
		}
	}
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupKey(envName string) string {
	if envName == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envName))
}

func resolveProvider(provider, key string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" || p == ProviderAuto {
		if key != "" {
			return ProviderOpenAI
		}
		return ProviderLocal
	}
	return p
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
