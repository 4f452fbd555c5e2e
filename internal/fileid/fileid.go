// Package fileid derives stable book IDs from source paths and raw text.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

const (
	bookPrefix = "book-"
	textPrefix = "text-"
	idHexLen   = 16
)

// BookID returns a stable ID for the book stored at path. Relative paths are resolved
// against the working directory first, so the same file always yields the same ID.
func BookID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return bookPrefix + shortHash(filepath.Clean(abs)), nil
}

// TextBookID returns a stable ID for text ingested without a source file.
func TextBookID(title, text string) string {
	return textPrefix + shortHash(title+"\x00"+text)
}

func shortHash(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])[:idHexLen]
}
