package assistantRepository

import (
	"errors"
	"time"

	"ButikChat/internal/api/assistant"
	"ButikChat/internal/entity"
	contextPkg "ButikChat/pkg/context"
	redisPkg "ButikChat/pkg/redis"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const contextKeyPrefix = "assistant:context:"

type contextRepository struct {
	redis redisPkg.IRedis
	log   *logrus.Logger
	ttl   time.Duration
}

func NewContextStore(redis redisPkg.IRedis, log *logrus.Logger, ttl time.Duration) ContextStore {
	return &contextRepository{
		redis: redis,
		log:   log,
		ttl:   ttl,
	}
}

func (r *contextRepository) Save(ctx context.Context, conversation entity.ConversationContext) error {
	requestID := contextPkg.GetRequestID(ctx)

	payload, err := json.Marshal(conversation)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": conversation.SessionID,
			"error":      err.Error(),
		}).Error("Failed to marshal conversation context")
		return err
	}

	if err := r.redis.Set(ctx, contextKeyPrefix+conversation.SessionID, string(payload), r.ttl); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": conversation.SessionID,
			"error":      err.Error(),
		}).Error("Failed to store conversation context")
		return err
	}

	return nil
}

func (r *contextRepository) Load(ctx context.Context, sessionID string) (entity.ConversationContext, error) {
	requestID := contextPkg.GetRequestID(ctx)

	payload, err := r.redis.Get(ctx, contextKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, redisPkg.Nil) {
			return entity.ConversationContext{}, assistant.ErrContextNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Failed to load conversation context")
		return entity.ConversationContext{}, err
	}

	var conversation entity.ConversationContext
	if err := json.Unmarshal([]byte(payload), &conversation); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Conversation context payload is corrupted")
		return entity.ConversationContext{}, assistant.ErrContextCorrupted
	}

	return conversation, nil
}

func (r *contextRepository) Delete(ctx context.Context, sessionID string) error {
	return r.redis.Delete(ctx, contextKeyPrefix+sessionID)
}
