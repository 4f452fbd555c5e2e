package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/petya0111/ai-agent-story-book/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private
// in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT,
		source_path TEXT NOT NULL,
		format TEXT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chunks (
		book_id TEXT NOT NULL,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		text TEXT NOT NULL,
		page_start INTEGER NOT NULL DEFAULT 0,
		page_end INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (book_id, id),
		FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_book_seq ON chunks(book_id, seq);
	CREATE INDEX IF NOT EXISTS idx_chunks_book_pages ON chunks(book_id, page_start, page_end);

	CREATE TABLE IF NOT EXISTS story_versions (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		chunk_id TEXT,
		title TEXT,
		content TEXT NOT NULL,
		author_id TEXT,
		parent_version_id TEXT,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_story_versions_book ON story_versions(book_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertBook inserts a book or updates it in place when the ID exists. CreatedAt is set on
// first insert and kept afterwards.
func (s *SQLiteStorage) UpsertBook(ctx context.Context, book *models.Book) error {
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO books (id, title, author, source_path, format, pages, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   author = excluded.author,
		   source_path = excluded.source_path,
		   format = excluded.format,
		   pages = excluded.pages`,
		book.ID, book.Title, book.Author, book.SourcePath, book.Format, book.Pages, book.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", book.ID, err)
	}
	return nil
}

const bookColumns = `id, title, COALESCE(author, ''), source_path, format, pages, created_at`

func scanBook(row interface{ Scan(...any) error }) (*models.Book, error) {
	var b models.Book
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.SourcePath, &b.Format, &b.Pages, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBook returns a book by ID.
func (s *SQLiteStorage) GetBook(ctx context.Context, id string) (*models.Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, models.NotFoundError("book", id)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBooks returns all books, newest first.
func (s *SQLiteStorage) ListBooks(ctx context.Context) ([]*models.Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []*models.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// ReplaceChunks swaps all chunks of a book in one transaction.
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, bookID string, chunks []*models.StoredChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", bookID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (book_id, id, seq, text, page_start, page_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range chunks {
		c.BookID = bookID
		c.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, bookID, c.ID, c.Seq, c.Text, c.PageStart, c.PageEnd, c.CreatedAt); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

const chunkColumns = `book_id, id, seq, text, page_start, page_end, created_at`

func scanChunks(rows *sql.Rows) ([]*models.StoredChunk, error) {
	defer rows.Close()
	chunks := []*models.StoredChunk{}
	for rows.Next() {
		var c models.StoredChunk
		if err := rows.Scan(&c.BookID, &c.ID, &c.Seq, &c.Text, &c.PageStart, &c.PageEnd, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// GetChunk returns one chunk of a book.
func (s *SQLiteStorage) GetChunk(ctx context.Context, bookID, id string) (*models.StoredChunk, error) {
	var c models.StoredChunk
	err := s.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE book_id = ? AND id = ?`, bookID, id,
	).Scan(&c.BookID, &c.ID, &c.Seq, &c.Text, &c.PageStart, &c.PageEnd, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.NotFoundError("chunk", bookID+"/"+id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChunks returns the chunks with the given IDs in the order of ids. Unknown IDs are
// skipped.
func (s *SQLiteStorage) GetChunks(ctx context.Context, bookID string, ids []string) ([]*models.StoredChunk, error) {
	if len(ids) == 0 {
		return []*models.StoredChunk{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, bookID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE book_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	found, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.StoredChunk, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	ordered := make([]*models.StoredChunk, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
			delete(byID, id)
		}
	}
	return ordered, nil
}

// ListChunks returns the chunks of a book in sequence order. limit <= 0 returns all.
func (s *SQLiteStorage) ListChunks(ctx context.Context, bookID string, limit int) ([]*models.StoredChunk, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE book_id = ? ORDER BY seq LIMIT ?`, bookID, limit)
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

// ChunksByPageRange returns the chunks whose page span overlaps [start, end], in sequence
// order. Chunks without page numbers never match.
func (s *SQLiteStorage) ChunksByPageRange(ctx context.Context, bookID string, start, end int) ([]*models.StoredChunk, error) {
	if start > end {
		return nil, models.InputError("page range start %d is after end %d", start, end)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks
		 WHERE book_id = ? AND page_start > 0 AND page_start <= ? AND page_end >= ?
		 ORDER BY seq`, bookID, end, start)
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

// CreateStoryVersion stores a new version. ID and CreatedAt are assigned when empty.
func (s *SQLiteStorage) CreateStoryVersion(ctx context.Context, v *models.StoryVersion) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	var metadataJSON sql.NullString
	if len(v.Metadata) > 0 {
		b, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO story_versions (id, book_id, chunk_id, title, content, author_id, parent_version_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.BookID, v.ChunkID, v.Title, v.Content, v.AuthorID, v.ParentVersionID, metadataJSON, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert story version: %w", err)
	}
	return nil
}

const storyColumns = `id, book_id, COALESCE(chunk_id, ''), COALESCE(title, ''), content,
	COALESCE(author_id, ''), COALESCE(parent_version_id, ''), metadata, created_at`

func scanStory(row interface{ Scan(...any) error }) (*models.StoryVersion, error) {
	var v models.StoryVersion
	var metadataJSON sql.NullString
	if err := row.Scan(&v.ID, &v.BookID, &v.ChunkID, &v.Title, &v.Content, &v.AuthorID, &v.ParentVersionID, &metadataJSON, &v.CreatedAt); err != nil {
		return nil, err
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &v.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &v, nil
}

// GetStoryVersion returns a story version by ID.
func (s *SQLiteStorage) GetStoryVersion(ctx context.Context, id string) (*models.StoryVersion, error) {
	v, err := scanStory(s.db.QueryRowContext(ctx, `SELECT `+storyColumns+` FROM story_versions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, models.NotFoundError("story version", id)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListStoryVersions returns the versions saved for a book, oldest first.
func (s *SQLiteStorage) ListStoryVersions(ctx context.Context, bookID string) ([]*models.StoryVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+storyColumns+` FROM story_versions WHERE book_id = ? ORDER BY created_at, id`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []*models.StoryVersion{}
	for rows.Next() {
		v, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// RevertStoryVersion stores a copy of version id as a new version whose parent is id.
func (s *SQLiteStorage) RevertStoryVersion(ctx context.Context, id string) (*models.StoryVersion, error) {
	existing, err := s.GetStoryVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *existing
	cp.ID = ""
	cp.CreatedAt = time.Time{}
	cp.ParentVersionID = existing.ID
	if err := s.CreateStoryVersion(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// CountBooks returns the total number of books.
func (s *SQLiteStorage) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
