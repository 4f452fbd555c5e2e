package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petya0111/ai-agent-story-book/internal/llm"
	"github.com/petya0111/ai-agent-story-book/internal/models"
	"github.com/petya0111/ai-agent-story-book/internal/storage"
)

const (
	maxUploadBytes = 100 << 20
	// bookChatChunks is how many leading chunks give context to a book-level chat.
	bookChatChunks = 3
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.fail(w, "ingest", err)
		return
	}
	path := req.BookPath
	if path == "" {
		path = s.config.Ingest.BookPath
	}
	if path == "" {
		s.fail(w, "ingest", models.InputError("bookPath is required"))
		return
	}
	target := req.TargetChars
	if target <= 0 {
		target = s.config.Ingest.TargetChars
	}
	s.logger.Debug("ingest request", zap.String("path", path), zap.Int("target_chars", target))

	res, err := s.indexer.IngestFile(r.Context(), path, target)
	if err != nil {
		s.fail(w, "ingest", err)
		return
	}
	s.watchSource(path)
	s.respondJSON(w, http.StatusOK, &models.IngestResponse{
		BookID: res.BookID,
		Chunks: res.Chunks,
		Mode:   res.Mode,
		Format: res.Format,
	})
}

func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, "upload", models.InputError("missing file field"))
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".pdf" {
		s.fail(w, "upload", models.InputError("only .pdf accepted"))
		return
	}
	dest, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.fail(w, "upload", err)
		return
	}
	s.logger.Debug("pdf uploaded", zap.String("path", dest), zap.Int64("size", header.Size))

	res, err := s.indexer.IngestFile(r.Context(), dest, s.config.Ingest.PageTargetChars)
	if err != nil {
		s.fail(w, "upload", err)
		return
	}
	s.watchSource(dest)
	s.respondJSON(w, http.StatusOK, &models.UploadResponse{
		StoredPath: dest,
		BookID:     res.BookID,
		Chunks:     res.Chunks,
		Mode:       res.Mode,
	})
}

// saveUpload stores an uploaded file under the upload directory and returns its absolute
// path. The client file name is reduced to its base name.
func (s *Server) saveUpload(src io.Reader, filename string) (string, error) {
	dir, err := filepath.Abs(s.config.Storage.UploadDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || strings.TrimSuffix(strings.ToLower(name), ".pdf") == "" {
		name = "upload-" + uuid.NewString() + ".pdf"
	}
	dest := filepath.Join(dir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", models.InputError("upload exceeds %d bytes", tooLarge.Limit)
		}
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return dest, nil
}

// watchSource adds the directory of a newly ingested source to the watcher.
func (s *Server) watchSource(path string) {
	if s.watch == nil || !s.config.Ingest.Watch {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	if err := s.watch.AddDirectory(filepath.Dir(abs)); err != nil {
		s.logger.Warn("failed to watch book directory", zap.String("path", abs), zap.Error(err))
	}
}

// HandleSourceChange re-ingests the active book when path is its source file. It is the
// watcher's change callback.
func (s *Server) HandleSourceChange(path string) {
	active := s.indexer.ActiveBook()
	if active == nil || active.SourcePath == "" || filepath.Clean(path) != filepath.Clean(active.SourcePath) {
		return
	}
	s.logger.Info("book source changed; re-ingesting", zap.String("path", path), zap.String("book_id", active.ID))
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if _, err := s.indexer.IngestFile(ctx, path, 0); err != nil {
		s.logger.Warn("re-ingestion failed", zap.String("path", path), zap.Error(err))
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, "ask", err)
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question), zap.Int("top_k", req.TopK))
	resp, err := s.engine.Ask(r.Context(), req.Question, req.TopK)
	if err != nil {
		s.fail(w, "ask", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePassages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.fail(w, "passages", err)
		return
	}
	resp, err := s.engine.Passages(r.Context(), q, limit)
	if err != nil {
		s.fail(w, "passages", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.InputError("%s must be an integer", name)
	}
	return n, nil
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.storage.ListBooks(r.Context())
	if err != nil {
		s.fail(w, "list books", err)
		return
	}
	s.respondJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.storage.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get book", err)
		return
	}
	s.respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleBookPages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		s.fail(w, "book pages", models.InputError("start and end are required"))
		return
	}
	start, err := intParam(r, "start", 0)
	if err != nil {
		s.fail(w, "book pages", err)
		return
	}
	end, err := intParam(r, "end", 0)
	if err != nil {
		s.fail(w, "book pages", err)
		return
	}
	chunks, err := s.storage.ChunksByPageRange(r.Context(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		s.fail(w, "book pages", err)
		return
	}
	s.respondJSON(w, http.StatusOK, chunks)
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	chunk, err := s.storage.GetChunk(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "chunkID"))
	if err != nil {
		s.fail(w, "get chunk", err)
		return
	}
	s.respondJSON(w, http.StatusOK, chunk)
}

func (s *Server) handleSaveStory(w http.ResponseWriter, r *http.Request) {
	var req models.SaveStoryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, "save story", err)
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, "save story", err)
		return
	}
	v := &models.StoryVersion{
		BookID:          req.BookID,
		Title:           req.Title,
		Content:         req.Content,
		AuthorID:        req.AuthorID,
		ParentVersionID: req.ParentVersionID,
		Metadata:        req.Metadata,
	}
	if len(req.ChunkIDs) > 0 {
		v.ChunkID = req.ChunkIDs[0]
	}
	if err := s.storage.CreateStoryVersion(r.Context(), v); err != nil {
		s.fail(w, "save story", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, v)
}

func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	bookID := r.URL.Query().Get("bookId")
	if bookID == "" {
		s.fail(w, "list stories", models.InputError("bookId is required"))
		return
	}
	versions, err := s.storage.ListStoryVersions(r.Context(), bookID)
	if err != nil {
		s.fail(w, "list stories", err)
		return
	}
	s.respondJSON(w, http.StatusOK, versions)
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	v, err := s.storage.GetStoryVersion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get story", err)
		return
	}
	s.respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleRevertStory(w http.ResponseWriter, r *http.Request) {
	v, err := s.storage.RevertStoryVersion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "revert story", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, v)
}

func (s *Server) handleHeroRewrite(w http.ResponseWriter, r *http.Request) {
	var req models.RewriteRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, "hero rewrite", err)
		return
	}
	if len(req.ChunkIDs) == 0 {
		s.fail(w, "hero rewrite", models.InputError("chunkIds required"))
		return
	}
	texts, err := s.chunkTexts(r.Context(), req.BookID, req.ChunkIDs)
	if err != nil {
		s.fail(w, "hero rewrite", err)
		return
	}
	results, err := s.llm.Rewrite(r.Context(), llm.RewriteInput{
		Passage:     strings.Join(texts, "\n\n"),
		Hero:        req.HeroSpec,
		Constraints: req.Constraints,
		Variants:    req.NVariants,
	})
	if err != nil {
		if errors.Is(err, models.ErrPrecondition) {
			s.failWithStatus(w, "hero rewrite", http.StatusConflict, err)
			return
		}
		s.fail(w, "hero rewrite", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.RewriteResponse{Results: results})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, "chat", err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.fail(w, "chat", models.InputError("message is required"))
		return
	}

	var bookContext string
	switch {
	case len(req.ChunkIDs) > 0:
		texts, err := s.chunkTexts(r.Context(), req.BookID, req.ChunkIDs)
		if err != nil {
			s.fail(w, "chat", err)
			return
		}
		bookContext = strings.Join(texts, "\n\n")
	case req.BookID != "":
		chunks, err := s.storage.ListChunks(r.Context(), req.BookID, bookChatChunks)
		if err != nil {
			s.fail(w, "chat", err)
			return
		}
		bookContext = joinChunkTexts(chunks)
	}

	answer, err := s.llm.Chat(r.Context(), llm.ChatInput{
		Message:     req.Message,
		BookContext: bookContext,
		HeroContext: req.HeroContext,
	})
	if err != nil {
		s.fail(w, "chat", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.ChatResponse{Answer: answer, Provider: s.llm.Provider()})
}

// chunkTexts resolves chunk IDs of bookID (the active book when empty) to their texts, in
// request order. Chunks missing from the database are looked up in the vector store.
func (s *Server) chunkTexts(ctx context.Context, bookID string, ids []string) ([]string, error) {
	if bookID == "" {
		if active := s.indexer.ActiveBook(); active != nil {
			bookID = active.ID
		}
	}
	var texts []string
	if bookID != "" {
		chunks, err := s.storage.GetChunks(ctx, bookID, ids)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			texts = append(texts, c.Text)
		}
	}
	if len(texts) == 0 {
		for _, id := range ids {
			if rec, ok := s.engine.Record(id); ok {
				texts = append(texts, rec.Text)
			}
		}
	}
	if len(texts) == 0 {
		return nil, models.NotFoundError("chunks", strings.Join(ids, ","))
	}
	return texts, nil
}

func joinChunkTexts(chunks []*models.StoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	books, err := s.storage.CountBooks(ctx)
	if err != nil {
		s.fail(w, "status", fmt.Errorf("count books: %w", err))
		return
	}
	chunks, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.fail(w, "status", fmt.Errorf("count chunks: %w", err))
		return
	}
	resp := &models.StatusResponse{
		Books:             books,
		Chunks:            chunks,
		Vectors:           s.engine.VectorCount(),
		KeywordDocs:       s.engine.KeywordDocCount(),
		EmbeddingProvider: s.engine.EmbeddingProvider(),
		LLMProvider:       s.llm.Provider(),
		ActiveBook:        s.indexer.ActiveBook(),
	}
	usage, err := storage.DiskUsage(map[string]string{
		"database":      s.config.Storage.DatabasePath,
		"keyword_index": s.config.Storage.KeywordIndexPath,
		"uploads":       s.config.Storage.UploadDir,
	})
	if err != nil {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	} else {
		resp.DiskUsageBytes = usage.TotalBytes
		resp.DiskUsage = usage.ByLabel
	}
	if s.watch != nil {
		resp.WatchedDirs = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

