// Package llm talks to OpenAI-compatible chat completion endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/assistant"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/config"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

const (
	// DefaultBaseURL is the public OpenAI endpoint
	DefaultBaseURL = "https://api.openai.com"

	defaultTimeout = 60 * time.Second

	// maxErrorBody caps how much of an error response is kept
	maxErrorBody = 2048
)

// OpenAIClient implements assistant.Completer over /v1/chat/completions
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

var _ assistant.Completer = (*OpenAIClient)(nil)

// NewOpenAIClient returns nil when no API key is configured, so callers can
// tell an unconfigured assistant apart.
func NewOpenAIClient(cfg *config.LLMConfig, logger *slog.Logger) *OpenAIClient {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OpenAIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends the chat and returns the first choice
func (c *OpenAIClient) Complete(ctx context.Context, req assistant.CompletionRequest) (string, error) {
	payload := chatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.LLMRequestFailed(err)
	}

	endpoint := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", apperrors.LLMRequestFailed(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", apperrors.LLMRequestFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", apperrors.LLMRequestFailed(
			fmt.Errorf("llm status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperrors.LLMInvalidResponse("failed to decode completion: " + err.Error())
	}
	if len(out.Choices) == 0 {
		return "", apperrors.LLMInvalidResponse("completion has no choices")
	}

	c.logger.Debug("chat completion received",
		slog.String("model", req.Model),
		slog.Int("prompt_tokens", out.Usage.PromptTokens),
		slog.Int("completion_tokens", out.Usage.CompletionTokens))

	return out.Choices[0].Message.Content, nil
}
