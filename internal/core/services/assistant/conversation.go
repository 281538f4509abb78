// Package assistant answers natural-language questions about outage data
// through an OpenAI-compatible chat model.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Supported chat models.
const (
	ModelGPT4oMini = "gpt-4o-mini"
	ModelGPT4o     = "gpt-4o"
)

// DefaultModels is the model allow-list used when none is configured.
var DefaultModels = []string{ModelGPT4oMini, ModelGPT4o}

// Conversation is one chat session. The system prompt is rebuilt on every
// question and never stored in History.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Model     string    `json:"model"`
	History   []Message `json:"history"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation starts an empty session on model.
func NewConversation(model string) *Conversation {
	now := domain.Now()
	return &Conversation{
		ID:        uuid.New(),
		Model:     model,
		History:   []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Ask sends the system prompt, the history and question at temperature 0 and
// appends both turns. On failure the question stays in History and the
// error carries LLM_REQUEST_FAILED.
func (c *Conversation) Ask(ctx context.Context, completer Completer, systemPrompt, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperrors.InvalidInput("question is required")
	}
	if completer == nil {
		return "", apperrors.LLMNotConfigured()
	}

	c.append(RoleUser, question)

	messages := make([]Message, 0, len(c.History)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	messages = append(messages, c.History...)

	answer, err := completer.Complete(ctx, CompletionRequest{
		Model:       c.Model,
		Temperature: 0,
		Messages:    messages,
	})
	if err != nil {
		if _, ok := apperrors.GetAppError(err); ok {
			return "", err
		}
		return "", apperrors.LLMRequestFailed(err)
	}

	c.append(RoleAssistant, answer)
	return answer, nil
}

// Reset clears the history.
func (c *Conversation) Reset() {
	c.History = []Message{}
	c.UpdatedAt = domain.Now()
}

func (c *Conversation) append(role Role, content string) {
	now := domain.Now()
	c.History = append(c.History, Message{Role: role, Content: content, CreatedAt: now})
	c.UpdatedAt = now
}

// ValidateModel checks model against allowed.
func ValidateModel(model string, allowed []string) error {
	for _, m := range allowed {
		if m == model {
			return nil
		}
	}
	return apperrors.InvalidInput(fmt.Sprintf("model %q is not allowed, use one of %v", model, allowed))
}
