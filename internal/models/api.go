package models

import "strings"

// IngestRequest is the body of POST /api/v1/ingest.
type IngestRequest struct {
	BookPath    string `json:"bookPath,omitempty"`
	TargetChars int    `json:"targetChars,omitempty"`
}

// IngestResponse reports an ingestion.
type IngestResponse struct {
	BookID string `json:"bookId"`
	Chunks int    `json:"chunks"`
	Mode   string `json:"mode"`
	Format string `json:"format"`
}

// UploadResponse reports an uploaded and ingested PDF.
type UploadResponse struct {
	StoredPath string `json:"storedPath"`
	BookID     string `json:"bookId"`
	Chunks     int    `json:"chunks"`
	Mode       string `json:"mode"`
}

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"topK,omitempty"`
}

// Citation points at a passage used to answer a question.
type Citation struct {
	ID      string `json:"id"`
	Preview string `json:"preview"`
}

// AskResponse is the answer to a question with its supporting citations.
type AskResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Provider  string     `json:"provider"`
}

// Passage is one hybrid passage search hit.
type Passage struct {
	ID            string            `json:"id"`
	Text          string            `json:"text"`
	Snippet       string            `json:"snippet,omitempty"`
	Score         float64           `json:"score"`
	KeywordScore  float64           `json:"keyword_score"`
	SemanticScore float64           `json:"semantic_score"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Rank          int               `json:"rank"`
}

// PassageResponse is the response of GET /api/v1/passages.
type PassageResponse struct {
	Query     string     `json:"query"`
	Passages  []*Passage `json:"passages"`
	Total     int        `json:"total"`
	QueryTime int64      `json:"query_time_ms"`
}

// HeroSpec describes the requested changes to a story's hero.
type HeroSpec struct {
	Name        string   `json:"name,omitempty"`
	Age         string   `json:"age,omitempty"`
	Pronouns    string   `json:"pronouns,omitempty"`
	Personality []string `json:"personality,omitempty"`
	Role        string   `json:"role,omitempty"`
}

// Description renders the set fields as "key: value; ...".
func (h HeroSpec) Description() string {
	var parts []string
	if h.Name != "" {
		parts = append(parts, "name: "+h.Name)
	}
	if h.Age != "" {
		parts = append(parts, "age: "+h.Age)
	}
	if h.Pronouns != "" {
		parts = append(parts, "pronouns: "+h.Pronouns)
	}
	if h.Role != "" {
		parts = append(parts, "role: "+h.Role)
	}
	if len(h.Personality) > 0 {
		parts = append(parts, "personality: "+strings.Join(h.Personality, ", "))
	}
	return strings.Join(parts, "; ")
}

// RewriteConstraints tune a hero rewrite.
type RewriteConstraints struct {
	Tone         string `json:"tone,omitempty"`
	MaxTokens    int    `json:"maxTokens,omitempty"`
	ReadingLevel string `json:"readingLevel,omitempty"`
}

// RewriteRequest is the body of POST /api/v1/generate/hero-rewrite.
type RewriteRequest struct {
	BookID      string             `json:"bookId,omitempty"`
	ChunkIDs    []string           `json:"chunkIds"`
	HeroSpec    HeroSpec           `json:"heroSpec"`
	Constraints RewriteConstraints `json:"constraints"`
	NVariants   int                `json:"nVariants,omitempty"`
}

// RewriteResponse holds the rewritten variants.
type RewriteResponse struct {
	Results []string `json:"results"`
}

// ChatRequest is the body of POST /api/v1/generate/chat.
type ChatRequest struct {
	BookID      string   `json:"bookId,omitempty"`
	ChunkIDs    []string `json:"chunkIds,omitempty"`
	Message     string   `json:"message"`
	HeroContext string   `json:"heroContext,omitempty"`
}

// ChatResponse is the oracle's reply.
type ChatResponse struct {
	Answer   string `json:"answer"`
	Provider string `json:"provider"`
}

// SaveStoryRequest is the body of POST /api/v1/stories.
type SaveStoryRequest struct {
	Title           string            `json:"title,omitempty"`
	BookID          string            `json:"bookId"`
	ChunkIDs        []string          `json:"chunkIds,omitempty"`
	Content         string            `json:"content"`
	AuthorID        string            `json:"authorId,omitempty"`
	ParentVersionID string            `json:"parentVersionId,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Validate checks the required fields.
func (r *SaveStoryRequest) Validate() error {
	if strings.TrimSpace(r.BookID) == "" || strings.TrimSpace(r.Content) == "" {
		return InputError("bookId and content required")
	}
	return nil
}

// StatusResponse is the response of GET /api/v1/status.
type StatusResponse struct {
	Books             int64            `json:"books"`
	Chunks            int64            `json:"chunks"`
	Vectors           int              `json:"vectors"`
	KeywordDocs       uint64           `json:"keyword_docs"`
	EmbeddingProvider string           `json:"embedding_provider"`
	LLMProvider       string           `json:"llm_provider"`
	ActiveBook        *Book            `json:"active_book,omitempty"`
	DiskUsageBytes    int64            `json:"disk_usage_bytes"`
	DiskUsage         map[string]int64 `json:"disk_usage,omitempty"`
	WatchedDirs       []string         `json:"watched_dirs,omitempty"`
}
