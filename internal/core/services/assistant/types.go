package assistant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role of a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CompletionRequest is what a Completer sends to the model.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

// Completer produces the next assistant message for a chat.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Store persists conversations between requests.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
	Delete(ctx context.Context, id uuid.UUID) error
}
