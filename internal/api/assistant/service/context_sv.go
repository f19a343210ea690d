package assistantService

import (
	"errors"

	"ButikChat/internal/api/assistant"
	"ButikChat/internal/entity"
	contextPkg "ButikChat/pkg/context"
	"ButikChat/pkg/nlp"
	"context"

	"github.com/sirupsen/logrus"
)

// loadContext returns the session's conversation state, or a fresh one when
// nothing is stored, the stored payload is corrupted, or the context has
// idled past its TTL. Corruption is logged and absorbed; the customer just
// loses dialogue memory.
func (s *assistantService) loadContext(ctx context.Context, sessionID string) entity.ConversationContext {
	requestID := contextPkg.GetRequestID(ctx)

	conv, err := s.contextStore.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, assistant.ErrContextCorrupted) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
			}).Warn("Discarding corrupted conversation context")
		}
		return s.freshContext(sessionID)
	}
	if conv.ExpiredAt(s.now(), s.config.ContextTTL) {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
		}).Debug("Conversation context expired, starting fresh")
		return s.freshContext(sessionID)
	}
	return conv
}

func (s *assistantService) freshContext(sessionID string) entity.ConversationContext {
	now := s.now()
	return entity.ConversationContext{
		SessionID:    sessionID,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// resolveFollowUp rewrites a follow-up query against the most recently
// discussed product. It returns false when there is nothing to resolve
// against, in which case the query proceeds as a fresh search.
func (s *assistantService) resolveFollowUp(q nlp.ProcessedQuery, conv entity.ConversationContext) (nlp.ProcessedQuery, entity.ProductReference, bool) {
	if !q.QueryType.IsFollowUp() {
		return q, entity.ProductReference{}, false
	}
	ref, ok := conv.MostRecentProduct()
	if !ok {
		return q, entity.ProductReference{}, false
	}
	resolved := q
	resolved.ResolvedProductID = ref.ProductID
	return resolved, ref, true
}

// topicChanged reports whether the query moved to a different product line
// than the one the conversation was about: it carries features, and none of
// their categories overlap the remembered product's. Context is bypassed
// for such queries but deliberately kept, in case the customer circles back.
func (s *assistantService) topicChanged(q nlp.ProcessedQuery, conv entity.ConversationContext) bool {
	if len(q.Features) == 0 {
		return false
	}
	ref, ok := conv.MostRecentProduct()
	if !ok || len(ref.Features) == 0 {
		return false
	}
	remembered := make(map[nlp.FeatureCategory]bool, len(ref.Features))
	for _, f := range ref.Features {
		remembered[f.Category] = true
	}
	for _, f := range q.Features {
		if remembered[f.Category] {
			return false
		}
	}
	return true
}

// accept records a confidently matched product in the conversation. Matches
// under the acceptance threshold never touch context, so a weak guess
// cannot hijack later follow-ups.
func (s *assistantService) accept(conv *entity.ConversationContext, product nlp.Product, confidence float64) {
	if confidence < s.config.AcceptanceThreshold {
		return
	}
	conv.Remember(entity.ProductReference{
		ProductID: product.ID,
		Name:      product.Name,
		Revision:  product.Revision,
		Features:  product.Features,
	})
}

// touch finalizes the context for this turn and persists it.
func (s *assistantService) touch(ctx context.Context, conv *entity.ConversationContext, queryType nlp.QueryType) {
	conv.LastQueryType = queryType
	conv.LastActiveAt = s.now()
	if err := s.contextStore.Save(ctx, *conv); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"session_id": conv.SessionID,
			"error":      err.Error(),
		}).Error("Failed to persist conversation context")
	}
}
