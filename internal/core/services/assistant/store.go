package assistant

import (
	"context"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[uuid.UUID]Conversation
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[uuid.UUID]Conversation)}
}

// Get returns a copy of the conversation.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil, apperrors.RecordNotFound("conversation")
	}
	conv.History = append([]Message(nil), conv.History...)
	return &conv, nil
}

// Save stores a copy of conv.
func (s *MemoryStore) Save(ctx context.Context, conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *conv
	stored.History = append([]Message(nil), conv.History...)
	s.convs[conv.ID] = stored
	return nil
}

// Delete removes a conversation. Missing ids are ignored.
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
	return nil
}
