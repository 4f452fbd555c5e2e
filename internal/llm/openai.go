package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/petya0111/ai-agent-story-book/internal/models"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second

	defaultAnswerTemperature  = 0.2
	defaultRewriteTemperature = 0.4
	defaultRewriteMaxTokens   = 512
	chatMaxTokens             = 300
	chatTemperature           = 0.4
)

// OpenAIConfig configures the OpenAI chat client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// Temperature is used for answers; RewriteTemperature for hero rewrites.
	Temperature        float64
	RewriteTemperature float64
	// MaxTokens is the rewrite budget when the request sets none.
	MaxTokens int
	// RequestsPerMinute paces outgoing requests. Zero disables pacing.
	RequestsPerMinute int
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	client             *http.Client
	baseURL            string
	apiKey             string
	model              string
	temperature        float64
	rewriteTemperature float64
	maxTokens          int
	limiter            *rate.Limiter
	logger             *zap.Logger
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature"`
	N           int                 `json:"n,omitempty"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewOpenAIClient creates an OpenAI chat client. An API key is required.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, models.PreconditionError("openai llm: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultAnswerTemperature
	}
	if cfg.RewriteTemperature == 0 {
		cfg.RewriteTemperature = defaultRewriteTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultRewriteMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	c := &OpenAIClient{
		client:             client,
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:             cfg.APIKey,
		model:              cfg.Model,
		temperature:        cfg.Temperature,
		rewriteTemperature: cfg.RewriteTemperature,
		maxTokens:          cfg.MaxTokens,
		logger:             cfg.Logger,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c, nil
}

// Provider returns "openai".
func (c *OpenAIClient) Provider() string {
	return ProviderOpenAI
}

// Answer asks the model to answer from the given context only.
func (c *OpenAIClient) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	choices, err := c.complete(ctx, chatCompletionRequest{
		Messages: []chatCompletionMsg{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: answerUserPrompt(question, contexts)},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(choices) == 0 {
		return unsureAnswer, nil
	}
	return choices[0], nil
}

// Rewrite returns between one and three rewritten passages.
func (c *OpenAIClient) Rewrite(ctx context.Context, in RewriteInput) ([]string, error) {
	maxTokens := in.Constraints.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	choices, err := c.complete(ctx, chatCompletionRequest{
		Messages: []chatCompletionMsg{
			{Role: "system", Content: rewriteSystemPrompt},
			{Role: "user", Content: rewriteUserPrompt(in)},
		},
		MaxTokens:   maxTokens,
		Temperature: c.rewriteTemperature,
		N:           clampVariants(in.Variants),
	})
	if err != nil {
		return nil, err
	}
	results := make([]string, 0, len(choices))
	for _, ch := range choices {
		if strings.TrimSpace(ch) != "" {
			results = append(results, ch)
		}
	}
	return results, nil
}

// Chat answers an oracle chat message.
func (c *OpenAIClient) Chat(ctx context.Context, in ChatInput) (string, error) {
	choices, err := c.complete(ctx, chatCompletionRequest{
		Messages: []chatCompletionMsg{
			{Role: "system", Content: chatSystemPrompt},
			{Role: "user", Content: chatUserPrompt(in)},
		},
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	if err != nil {
		return "", err
	}
	if len(choices) == 0 {
		return "", nil
	}
	return choices[0], nil
}

// complete sends one chat completion request and returns the trimmed choice contents.
func (c *OpenAIClient) complete(ctx context.Context, reqBody chatCompletionRequest) ([]string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limiter: %w", err)
		}
	}
	reqBody.Model = c.model

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderOpenAI, Message: "send chat request", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Message: "read chat response", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ue := models.UpstreamFromResponse(ProviderOpenAI, resp.StatusCode, body)
		c.logger.Warn("Chat completion failed", zap.Int("status", resp.StatusCode), zap.String("message", ue.Message))
		return nil, ue
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &models.UpstreamError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Message: "malformed chat response", Cause: err}
	}
	c.logger.Debug("Chat completion",
		zap.String("model", c.model),
		zap.Int("choices", len(parsed.Choices)),
		zap.Duration("elapsed", time.Since(start)))

	out := make([]string, 0, len(parsed.Choices))
	for _, ch := range parsed.Choices {
		out = append(out, strings.TrimSpace(ch.Message.Content))
	}
	return out, nil
}
