package assistantRepository

import (
	"sync"
	"time"

	"ButikChat/internal/api/assistant"
	"ButikChat/internal/entity"

	"golang.org/x/net/context"
)

// memoryStore keeps contexts in process memory. Used when Redis is not
// configured and in tests, where the clock is injectable.
type memoryStore struct {
	mu       sync.RWMutex
	contexts map[string]storedContext
	ttl      time.Duration
	now      func() time.Time
}

type storedContext struct {
	conversation entity.ConversationContext
	storedAt     time.Time
}

func NewMemoryContextStore(ttl time.Duration) ContextStore {
	return &memoryStore{
		contexts: make(map[string]storedContext),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *memoryStore) Save(_ context.Context, conversation entity.ConversationContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts[conversation.SessionID] = storedContext{
		conversation: conversation,
		storedAt:     m.now(),
	}
	return nil
}

func (m *memoryStore) Load(_ context.Context, sessionID string) (entity.ConversationContext, error) {
	m.mu.RLock()
	stored, ok := m.contexts[sessionID]
	m.mu.RUnlock()

	if !ok {
		return entity.ConversationContext{}, assistant.ErrContextNotFound
	}
	if m.now().Sub(stored.storedAt) > m.ttl {
		m.mu.Lock()
		delete(m.contexts, sessionID)
		m.mu.Unlock()
		return entity.ConversationContext{}, assistant.ErrContextNotFound
	}
	return stored.conversation, nil
}

func (m *memoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contexts, sessionID)
	return nil
}
