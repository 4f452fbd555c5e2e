// Package main is the storybook CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/petya0111/ai-agent-story-book/internal/cli"
	"github.com/petya0111/ai-agent-story-book/internal/config"
	"github.com/petya0111/ai-agent-story-book/internal/embedding"
	"github.com/petya0111/ai-agent-story-book/internal/extract"
	"github.com/petya0111/ai-agent-story-book/internal/indexer"
	"github.com/petya0111/ai-agent-story-book/internal/keyword"
	"github.com/petya0111/ai-agent-story-book/internal/llm"
	"github.com/petya0111/ai-agent-story-book/internal/models"
	"github.com/petya0111/ai-agent-story-book/internal/search"
	"github.com/petya0111/ai-agent-story-book/internal/server"
	"github.com/petya0111/ai-agent-story-book/internal/storage"
	"github.com/petya0111/ai-agent-story-book/internal/vector"
	"github.com/petya0111/ai-agent-story-book/internal/watcher"
	"github.com/petya0111/ai-agent-story-book/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads the config at path and overlays the environment. A missing file at the
// default path falls back to built-in defaults; any other missing file is an error.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.ApplyEnv(cfg)
	return cfg, nil
}

func main() {
	// A missing .env is fine; real environment variables take precedence.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "passages":
		runPassages()
	case "status":
		runStatus()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("storybook version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if cfg.Ingest.OnStartup {
		ingestConfiguredBook(context.Background(), components.Indexer, cfg, logger)
	}

	var srv *server.Server
	var watchSvc *watcher.Watcher
	var opts []server.ServerOption
	if cfg.Ingest.Watch {
		watchSvc = watcher.NewWatcher(
			watcher.DirsOf(cfg.Ingest.BookPath),
			cfg.Ingest.Extensions,
			func(path string) { srv.HandleSourceChange(path) },
			watcher.WithLogger(logger),
		)
		opts = append(opts, server.WithWatcher(watchSvc))
	}
	srv = server.NewServer(
		components.Engine,
		components.Indexer,
		components.Storage,
		components.LLM,
		cfg,
		logger,
		opts...,
	)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if watchSvc != nil {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// ingestConfiguredBook ingests cfg.Ingest.BookPath when it exists. Failures are logged.
func ingestConfiguredBook(ctx context.Context, idx *indexer.Indexer, cfg *config.Config, logger *zap.Logger) bool {
	path := cfg.Ingest.BookPath
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		logger.Info("configured book not found; skipping ingestion", zap.String("path", path))
		return false
	}
	res, err := idx.IngestFile(ctx, path, 0)
	if err != nil {
		logger.Warn("book ingestion failed", zap.String("path", path), zap.Error(err))
		return false
	}
	logger.Info("book ingested",
		zap.String("book_id", res.BookID),
		zap.Int("chunks", res.Chunks),
		zap.String("mode", res.Mode),
	)
	return true
}

// flagsFirst moves flags that follow positional arguments to the front so that
// flag.Parse sees them: "storybook ask who is Aric --top-k 3".
func flagsFirst(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// joinArgs joins positional args so multi-word questions work with or without quotes.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func outputFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = ingest in-process)")
	targetChars := fs.Int("target-chars", 0, "chunk size budget in characters (0 = default)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(flagsFirst(os.Args[2:]))
	format := outputFormat(*output)

	path := fs.Arg(0)
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			fatalf("Invalid path: %v", err)
		}
		path = abs
	}

	var resp *models.IngestResponse
	if *serverURL != "" {
		resp = &models.IngestResponse{}
		req := models.IngestRequest{BookPath: path, TargetChars: *targetChars}
		if err := callAPI(http.MethodPost, *serverURL+"/api/v1/ingest", req, resp); err != nil {
			fatalf("Ingest failed: %v", err)
		}
	} else {
		withComponents(*configPath, func(ctx context.Context, cfg *config.Config, c *Components) {
			if path == "" {
				path = cfg.Ingest.BookPath
			}
			res, err := c.Indexer.IngestFile(ctx, path, *targetChars)
			if err != nil {
				fatalf("Ingest failed: %v", err)
			}
			resp = &models.IngestResponse{BookID: res.BookID, Chunks: res.Chunks, Mode: res.Mode, Format: res.Format}
		})
	}
	if err := cli.WriteIngest(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = answer in-process)")
	topK := fs.Int("top-k", 0, "number of passages to retrieve (0 = default)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(flagsFirst(os.Args[2:]))
	format := outputFormat(*output)

	question := joinArgs(fs.Args())
	if question == "" {
		fmt.Println("Usage: storybook ask [flags] <question>")
		os.Exit(1)
	}

	var resp *models.AskResponse
	if *serverURL != "" {
		resp = &models.AskResponse{}
		req := models.AskRequest{Question: question, TopK: *topK}
		if err := callAPI(http.MethodPost, *serverURL+"/api/v1/ask", req, resp); err != nil {
			fatalf("Ask failed: %v", err)
		}
	} else {
		withComponents(*configPath, func(ctx context.Context, cfg *config.Config, c *Components) {
			// Vectors live in memory, so a fresh process ingests the configured book first.
			ingestConfiguredBook(ctx, c.Indexer, cfg, c.Logger)
			var err error
			resp, err = c.Engine.Ask(ctx, question, *topK)
			if err != nil {
				fatalf("Ask failed: %v", err)
			}
		})
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runPassages() {
	fs := flag.NewFlagSet("passages", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = search in-process)")
	limit := fs.Int("limit", 0, "number of passages (0 = default)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(flagsFirst(os.Args[2:]))
	format := outputFormat(*output)

	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Println("Usage: storybook passages [flags] <query>")
		os.Exit(1)
	}

	var resp *models.PassageResponse
	if *serverURL != "" {
		resp = &models.PassageResponse{}
		if err := callAPI(http.MethodGet, passagesURL(*serverURL, query, *limit), nil, resp); err != nil {
			fatalf("Passage search failed: %v", err)
		}
	} else {
		withComponents(*configPath, func(ctx context.Context, cfg *config.Config, c *Components) {
			ingestConfiguredBook(ctx, c.Indexer, cfg, c.Logger)
			var err error
			resp, err = c.Engine.Passages(ctx, query, *limit)
			if err != nil {
				fatalf("Passage search failed: %v", err)
			}
		})
	}
	if err := cli.WritePassages(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func passagesURL(serverURL, query string, limit int) string {
	v := url.Values{}
	v.Set("q", query)
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return strings.TrimRight(serverURL, "/") + "/api/v1/passages?" + v.Encode()
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read storage directly)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)

	var resp *models.StatusResponse
	if *serverURL != "" {
		resp = &models.StatusResponse{}
		if err := callAPI(http.MethodGet, *serverURL+"/api/v1/status", nil, resp); err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		withComponents(*configPath, func(ctx context.Context, cfg *config.Config, c *Components) {
			var err error
			resp, err = localStatus(ctx, cfg, c)
			if err != nil {
				fatalf("Status failed: %v", err)
			}
		})
	}
	if err := cli.WriteStatus(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func localStatus(ctx context.Context, cfg *config.Config, c *Components) (*models.StatusResponse, error) {
	books, err := c.Storage.CountBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	chunks, err := c.Storage.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	resp := &models.StatusResponse{
		Books:             books,
		Chunks:            chunks,
		Vectors:           c.Engine.VectorCount(),
		KeywordDocs:       c.Engine.KeywordDocCount(),
		EmbeddingProvider: c.Engine.EmbeddingProvider(),
		LLMProvider:       c.LLM.Provider(),
	}
	usage, err := storage.DiskUsage(map[string]string{
		"database":      cfg.Storage.DatabasePath,
		"keyword_index": cfg.Storage.KeywordIndexPath,
		"uploads":       cfg.Storage.UploadDir,
	})
	if err == nil {
		resp.DiskUsageBytes = usage.TotalBytes
		resp.DiskUsage = usage.ByLabel
	}
	return resp, nil
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(os.Args[2:])

	path := defaultConfigPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if err := writeDefaultConfig(path, *force); err != nil {
		fatalf("Init failed: %v", err)
	}
	fmt.Printf("Wrote default config to %s\n", path)
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	return config.Save(path, config.Default())
}

// callAPI sends body as JSON (when non-nil) and decodes a 2xx JSON response into out.
func callAPI(method, endpoint string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, endpoint, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// withComponents loads config, builds the components and runs fn with them.
func withComponents(configPath string, fn func(ctx context.Context, cfg *config.Config, c *Components)) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()
	fn(context.Background(), cfg, components)
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	KeywordIndex keyword.Index
	LLM          llm.Client
	Engine       *search.Engine
	Indexer      *indexer.Indexer
	Logger       *zap.Logger
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if cfg.Storage.DatabasePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: st, Logger: logger}

	c.Embedder, err = embedding.New(cfg.Embedding, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.LLM, err = llm.New(cfg.LLM, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}
	kw, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath, keyword.SearchOptions{
		Fuzziness:   cfg.Search.Fuzziness,
		PhraseBoost: cfg.Search.PhraseBoost,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = kw

	store := vector.NewStore()
	c.Engine = search.NewEngine(store, c.Embedder, c.LLM, kw, cfg.Search, logger)
	c.Indexer = indexer.NewIndexer(store, c.Embedder, st, kw, extract.NewExtractor(),
		indexer.WithLogger(logger),
		indexer.WithTargets(cfg.Ingest.TargetChars, cfg.Ingest.PageTargetChars),
		indexer.WithAllowedExtensions(cfg.Ingest.Extensions),
	)
	logger.Info("components initialized",
		zap.String("embedding_provider", string(c.Embedder.Provider())),
		zap.String("llm_provider", c.LLM.Provider()),
		zap.String("database", cfg.Storage.DatabasePath),
	)
	return c, nil
}

func printUsage() {
	fmt.Println(`storybook - Question answering and story tools over a book

Usage:
  storybook server [flags]              Start the HTTP server
  storybook ingest [flags] [path]       Ingest a book (default: configured book path)
  storybook ask [flags] <question>      Ask a question about the book
  storybook passages [flags] <query>    Hybrid keyword and semantic passage search
  storybook status [flags]              Show book, chunk and index status
  storybook init [--force] [path]       Write a default config file
  storybook version                     Show version
  storybook help                        Show this help

Server Flags:
  --config string    Config file path (default: config.yaml; built-in defaults when missing)
  --debug            Enable debug logging

Client Flags (ingest, ask, passages, status):
  --config string    Config file path (in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run in-process.
  --output string    Output format: text or json (default: text)
  --target-chars int Chunk size budget for ingest (default from config)
  --top-k int        Passages retrieved for ask (default from config)
  --limit int        Passages returned by passages (default from config)

Environment:
  OPENAI_API_KEY, OPENAI_MODEL, SERVER_PORT, INGEST_ON_STARTUP, BOOK_PDF_PATH, BOOK_PATH,
  GENERATE_TEMPERATURE. A .env file in the working directory is loaded first.

Examples:
  storybook init
  storybook server
  storybook ingest ./data/book.pdf
  storybook ask who forged the silver lance
  storybook ask --output json "Where was Aric born?"
  storybook passages --limit 3 dragon
  storybook status --server ""`)
}
