package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Config controls the assistant service.
type Config struct {
	DefaultModel  string
	AllowedModels []string
	MaxRows       int
}

// Question is one ask request.
type Question struct {
	SessionID uuid.UUID
	Model     string
	Text      string
}

// Answer is the reply plus the session it belongs to.
type Answer struct {
	SessionID uuid.UUID     `json:"session_id"`
	Model     string        `json:"model"`
	Answer    string        `json:"answer"`
	Context   *DataContext  `json:"context"`
	History   []Message     `json:"history"`
	Duration  time.Duration `json:"duration_ns"`
}

// Service runs conversations against a completer and a store.
type Service struct {
	completer Completer
	store     Store
	config    Config
	logger    *slog.Logger
}

// NewService creates an assistant. A nil completer makes every question fail
// with LLM_NOT_CONFIGURED; a nil store keeps sessions in memory.
func NewService(completer Completer, store Store, config Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if len(config.AllowedModels) == 0 {
		config.AllowedModels = DefaultModels
	}
	if config.DefaultModel == "" {
		config.DefaultModel = config.AllowedModels[0]
	}
	if config.MaxRows <= 0 {
		config.MaxRows = DefaultMaxRows
	}
	return &Service{completer: completer, store: store, config: config, logger: logger}
}

// Configured reports whether a completer is available.
func (s *Service) Configured() bool {
	return s.completer != nil
}

// Ask answers q about outages. A nil SessionID starts a new conversation.
// The conversation is saved even when the model call fails.
func (s *Service) Ask(ctx context.Context, outages []domain.Outage, q Question) (*Answer, error) {
	if !s.Configured() {
		return nil, apperrors.LLMNotConfigured()
	}

	model := q.Model
	if model == "" {
		model = s.config.DefaultModel
	}
	if err := ValidateModel(model, s.config.AllowedModels); err != nil {
		return nil, err
	}

	conv, err := s.load(ctx, q.SessionID, model)
	if err != nil {
		return nil, err
	}
	conv.Model = model

	dc := BuildContext(outages, s.config.MaxRows)
	start := time.Now()
	reply, askErr := conv.Ask(ctx, s.completer, SystemPrompt(dc), q.Text)
	elapsed := time.Since(start)

	if apperrors.HasCode(askErr, apperrors.ErrCodeInvalidInput) {
		return nil, askErr
	}
	if err := s.store.Save(ctx, conv); err != nil {
		s.logger.Error("failed to save conversation",
			slog.String("session_id", conv.ID.String()),
			slog.Any("error", err))
	}

	if askErr != nil {
		s.logger.Warn("assistant request failed",
			slog.String("session_id", conv.ID.String()),
			slog.String("model", model),
			slog.Any("error", askErr))
		if appErr, ok := apperrors.GetAppError(askErr); ok {
			return nil, appErr.WithDetails("session_id", conv.ID.String())
		}
		return nil, askErr
	}

	s.logger.Info("assistant answered",
		slog.String("session_id", conv.ID.String()),
		slog.String("model", model),
		slog.Int("context_rows", dc.Rows),
		slog.Int("estimated_tokens", dc.EstimatedTokens),
		slog.Duration("duration", elapsed))

	return &Answer{
		SessionID: conv.ID,
		Model:     model,
		Answer:    reply,
		Context:   dc,
		History:   conv.History,
		Duration:  elapsed,
	}, nil
}

// History returns the stored conversation.
func (s *Service) History(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	return s.store.Get(ctx, id)
}

// Reset clears the history of a conversation.
func (s *Service) Reset(ctx context.Context, id uuid.UUID) error {
	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	conv.Reset()
	return s.store.Save(ctx, conv)
}

func (s *Service) load(ctx context.Context, id uuid.UUID, model string) (*Conversation, error) {
	if id == uuid.Nil {
		return NewConversation(model), nil
	}
	conv, err := s.store.Get(ctx, id)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeRecordNotFound) {
			return nil, apperrors.NotFound("conversation " + id.String() + " not found")
		}
		return nil, err
	}
	return conv, nil
}
