package assistantRepository

import (
	"ButikChat/internal/entity"

	"golang.org/x/net/context"
)

// ContextStore persists one ConversationContext per session. Loading an
// unknown or expired session returns assistant.ErrContextNotFound; a
// payload that no longer decodes returns assistant.ErrContextCorrupted.
type ContextStore interface {
	Save(ctx context.Context, conversation entity.ConversationContext) error
	Load(ctx context.Context, sessionID string) (entity.ConversationContext, error)
	Delete(ctx context.Context, sessionID string) error
}
