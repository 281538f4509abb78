package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/assistant"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// DefaultConversationTTL bounds how long an idle chat session is kept
const DefaultConversationTTL = 12 * time.Hour

// ConversationStore keeps assistant sessions in redis. Every save refreshes
// the TTL.
type ConversationStore struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewConversationStore creates a redis-backed assistant.Store
func NewConversationStore(redis *RedisCache, ttl time.Duration) *ConversationStore {
	if ttl <= 0 {
		ttl = DefaultConversationTTL
	}
	return &ConversationStore{redis: redis, ttl: ttl}
}

var _ assistant.Store = (*ConversationStore)(nil)

func conversationKey(id uuid.UUID) string {
	return "conversation:" + id.String()
}

func (s *ConversationStore) Get(ctx context.Context, id uuid.UUID) (*assistant.Conversation, error) {
	data, err := s.redis.GetBytes(ctx, conversationKey(id))
	if errors.Is(err, ErrCacheMiss) {
		return nil, apperrors.RecordNotFound("conversation")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}

	var conv assistant.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return &conv, nil
}

func (s *ConversationStore) Save(ctx context.Context, conv *assistant.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	return s.redis.Set(ctx, conversationKey(conv.ID), data, s.ttl)
}

func (s *ConversationStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.redis.Delete(ctx, conversationKey(id))
}
