// Package storage persists books, their chunks and saved story versions.
package storage

import (
	"context"

	"github.com/petya0111/ai-agent-story-book/internal/models"
)

// Storage defines book, chunk and story version persistence operations.
// Lookups of missing rows return an error matching models.ErrNotFound.
type Storage interface {
	// Book operations
	UpsertBook(ctx context.Context, book *models.Book) error
	GetBook(ctx context.Context, id string) (*models.Book, error)
	ListBooks(ctx context.Context) ([]*models.Book, error)

	// Chunk operations
	ReplaceChunks(ctx context.Context, bookID string, chunks []*models.StoredChunk) error
	GetChunk(ctx context.Context, bookID, id string) (*models.StoredChunk, error)
	GetChunks(ctx context.Context, bookID string, ids []string) ([]*models.StoredChunk, error)
	ListChunks(ctx context.Context, bookID string, limit int) ([]*models.StoredChunk, error)
	ChunksByPageRange(ctx context.Context, bookID string, start, end int) ([]*models.StoredChunk, error)

	// Story versions
	CreateStoryVersion(ctx context.Context, v *models.StoryVersion) error
	GetStoryVersion(ctx context.Context, id string) (*models.StoryVersion, error)
	ListStoryVersions(ctx context.Context, bookID string) ([]*models.StoryVersion, error)
	RevertStoryVersion(ctx context.Context, id string) (*models.StoryVersion, error)

	// Stats
	CountBooks(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
