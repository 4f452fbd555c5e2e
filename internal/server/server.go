// Package server provides the HTTP API of the storybook service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/petya0111/ai-agent-story-book/internal/config"
	"github.com/petya0111/ai-agent-story-book/internal/indexer"
	"github.com/petya0111/ai-agent-story-book/internal/llm"
	"github.com/petya0111/ai-agent-story-book/internal/search"
	"github.com/petya0111/ai-agent-story-book/internal/storage"
)

// requestTimeout bounds a request, including ingestion of a whole book.
const requestTimeout = 5 * time.Minute

// WatchService is the subset of the file watcher the server reports on and extends.
type WatchService interface {
	Directories() []string
	AddDirectory(dir string) error
}

// Server is the HTTP server for the storybook API.
type Server struct {
	engine  *search.Engine
	indexer *indexer.Indexer
	storage storage.Storage
	llm     llm.Client
	config  *config.Config
	watch   WatchService
	logger  *zap.Logger
	router  chi.Router
	server  *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithWatcher enables watch reporting and re-ingestion of the active book's source.
func WithWatcher(w WatchService) ServerOption {
	return func(s *Server) { s.watch = w }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	st storage.Storage,
	client llm.Client,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		indexer: idx,
		storage: st,
		llm:     client,
		config:  cfg,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)
		r.Post("/upload-pdf", s.handleUploadPDF)
		r.Post("/ask", s.handleAsk)
		r.Get("/passages", s.handlePassages)
		r.Get("/status", s.handleStatus)

		r.Get("/books", s.handleListBooks)
		r.Get("/books/{id}", s.handleGetBook)
		r.Get("/books/{id}/pages", s.handleBookPages)
		r.Get("/books/{id}/chunks/{chunkID}", s.handleGetChunk)

		r.Post("/stories", s.handleSaveStory)
		r.Get("/stories", s.handleListStories)
		r.Get("/stories/{id}", s.handleGetStory)
		r.Post("/stories/{id}/revert", s.handleRevertStory)

		r.Post("/generate/hero-rewrite", s.handleHeroRewrite)
		r.Post("/generate/chat", s.handleChat)
	})
	return r
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
