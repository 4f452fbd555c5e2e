package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/petya0111/ai-agent-story-book/internal/models"
)

// Defaults for the OpenAI embeddings endpoint.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-small"
	DefaultOpenAITimeout = 60 * time.Second
)

var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// Dimensions requests shortened vectors from text-embedding-3-* models. Zero keeps
	// the model's native size.
	Dimensions int
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// OpenAIEmbedder calls the OpenAI embeddings API. It does not retry; callers bound calls
// with a context deadline.
type OpenAIEmbedder struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	requestDim int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewOpenAIEmbedder creates an OpenAI embedder. An API key is required.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, models.PreconditionError("openai embeddings: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOpenAITimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		if dimensions, ok = openAIModelDimensions[cfg.Model]; !ok {
			dimensions = 1536
		}
	}

	return &OpenAIEmbedder{
		client:     client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: dimensions,
		requestDim: cfg.Dimensions,
	}, nil
}

// Embed sends all texts in one request and returns the vectors in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	jsonBody, err := json.Marshal(embeddingRequest{Model: e.model, Input: texts, Dimensions: e.requestDim})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &models.UpstreamError{Provider: string(ProviderOpenAI), Message: "send embeddings request", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.UpstreamError{Provider: string(ProviderOpenAI), StatusCode: resp.StatusCode, Message: "read embeddings response", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.UpstreamFromResponse(string(ProviderOpenAI), resp.StatusCode, body)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &models.UpstreamError{Provider: string(ProviderOpenAI), StatusCode: resp.StatusCode, Message: "malformed embeddings response", Cause: err}
	}
	if len(parsed.Data) != len(texts) {
		return nil, &models.UpstreamError{
			Provider:   string(ProviderOpenAI),
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(parsed.Data)),
		}
	}

	sort.SliceStable(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
	out := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		if d.Index != i {
			return nil, &models.UpstreamError{
				Provider:   string(ProviderOpenAI),
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("embedding index %d does not match input position %d", d.Index, i),
			}
		}
		out[i] = d.Embedding
	}
	return out, nil
}

// Dimensions returns the expected vector size for the configured model.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Provider returns ProviderOpenAI.
func (e *OpenAIEmbedder) Provider() Provider {
	return ProviderOpenAI
}

// Close releases idle connections.
func (e *OpenAIEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
