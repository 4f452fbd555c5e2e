// Package models defines core data structures for books, chunks, stories, and API payloads.
package models

import "time"

// Book is an ingested source document.
type Book struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Author     string    `json:"author,omitempty" db:"author"`
	SourcePath string    `json:"source_path" db:"source_path"`
	Format     string    `json:"format" db:"format"`
	Pages      int       `json:"pages" db:"pages"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// StoredChunk is a chunk persisted for a book. ID is only unique within the book.
type StoredChunk struct {
	BookID    string    `json:"book_id" db:"book_id"`
	ID        string    `json:"id" db:"id"`
	Seq       int       `json:"seq" db:"seq"`
	Text      string    `json:"text" db:"text"`
	PageStart int       `json:"page_start,omitempty" db:"page_start"`
	PageEnd   int       `json:"page_end,omitempty" db:"page_end"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StoryVersion is a saved (possibly rewritten) passage. Versions form a chain through
// ParentVersionID.
type StoryVersion struct {
	ID              string            `json:"id" db:"id"`
	BookID          string            `json:"book_id" db:"book_id"`
	ChunkID         string            `json:"chunk_id,omitempty" db:"chunk_id"`
	Title           string            `json:"title,omitempty" db:"title"`
	Content         string            `json:"content" db:"content"`
	AuthorID        string            `json:"author_id,omitempty" db:"author_id"`
	ParentVersionID string            `json:"parent_version_id,omitempty" db:"parent_version_id"`
	Metadata        map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}
