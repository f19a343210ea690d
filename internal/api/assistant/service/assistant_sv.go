package assistantService

import (
	"ButikChat/internal/api/assistant"
	"ButikChat/internal/entity"
	"ButikChat/pkg/cache"
	contextPkg "ButikChat/pkg/context"
	"ButikChat/pkg/nlp"
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// HandleQuery runs the full pipeline for one customer message: process the
// text, resolve follow-ups against context, consult the cache, match, and
// only then update context and cache. A cancelled request returns its error
// before any state is mutated.
func (s *assistantService) HandleQuery(ctx context.Context, req assistant.AskRequest) (*assistant.AskResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)
	if req.SessionID == "" {
		return nil, assistant.ErrSessionRequired
	}

	q := s.extractor.ProcessQuery(req.Message)

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": req.SessionID,
		"query_type": string(q.QueryType),
		"features":   len(q.Features),
	}).Debug("Processing customer query")

	if q.NormalizedText == "" {
		return &assistant.AskResponse{
			SessionID: req.SessionID,
			QueryType: q.QueryType,
			NoMatch:   true,
		}, nil
	}

	lock := s.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	conv := s.loadContext(ctx, req.SessionID)

	if resolved, ref, ok := s.resolveFollowUp(q, conv); ok {
		return s.answerFollowUp(ctx, resolved, ref, &conv)
	}

	if s.topicChanged(q, conv) {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": req.SessionID,
		}).Debug("Topic change detected, bypassing conversation context")
	}

	snap := s.index.Snapshot()
	if snap.BuiltAt().IsZero() {
		// The catalog was never loaded; distinguish that from an empty one.
		return nil, assistant.ErrIndexUnavailable
	}
	key := cache.BuildKey(q.NormalizedText, "", q.QueryType)

	if outcome, hit := s.cache.Get(key, s.index.Revision); hit {
		resp := s.buildResponse(conv.SessionID, q, outcome, snap)
		resp.Cached = true
		s.acceptTop(&conv, outcome, snap)
		s.touch(ctx, &conv, q.QueryType)
		return resp, nil
	}

	outcome, err := s.matcher.Match(ctx, q, snap)
	if err != nil {
		// Cancellation: leave context and cache exactly as they were.
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, assistant.ErrQueryTimeout
		}
		return nil, err
	}

	if len(outcome.Matches) > 0 {
		s.cache.Put(key, conv.SessionID, outcome, matchRefs(outcome, snap))
	}
	s.acceptTop(&conv, outcome, snap)
	s.touch(ctx, &conv, q.QueryType)

	return s.buildResponse(conv.SessionID, q, outcome, snap), nil
}

// answerFollowUp serves price/stock/detail questions about the product the
// conversation is already about, straight from the live snapshot so a price
// update landing mid-conversation is always reflected.
func (s *assistantService) answerFollowUp(ctx context.Context, q nlp.ProcessedQuery, ref entity.ProductReference, conv *entity.ConversationContext) (*assistant.AskResponse, error) {
	snap := s.index.Snapshot()

	product, ok := snap.Get(ref.ProductID)
	if !ok {
		// The product was removed since it was discussed.
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"session_id": conv.SessionID,
			"product_id": ref.ProductID,
		}).Debug("Follow-up target no longer in catalog")
		s.touch(ctx, conv, q.QueryType)
		return &assistant.AskResponse{
			SessionID: conv.SessionID,
			QueryType: q.QueryType,
			NoMatch:   true,
		}, nil
	}

	summary := productSummary(product)
	s.accept(conv, product, 1.0)
	s.touch(ctx, conv, q.QueryType)

	return &assistant.AskResponse{
		SessionID:          conv.SessionID,
		QueryType:          q.QueryType,
		ResolvedViaContext: true,
		Product:            &summary,
	}, nil
}

// ResetSession forgets the conversation and drops its cache entries.
func (s *assistantService) ResetSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return assistant.ErrSessionRequired
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.contextStore.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.cache.InvalidateSession(sessionID)

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sessionID,
	}).Info("Session reset")
	return nil
}

func (s *assistantService) SessionState(ctx context.Context, sessionID string) (*assistant.SessionStateResponse, error) {
	if sessionID == "" {
		return nil, assistant.ErrSessionRequired
	}

	conv, err := s.contextStore.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv.ExpiredAt(s.now(), s.config.ContextTTL) {
		return nil, assistant.ErrContextNotFound
	}

	return &assistant.SessionStateResponse{
		SessionID:     conv.SessionID,
		LastProducts:  conv.LastProducts,
		LastQueryType: conv.LastQueryType,
	}, nil
}

// acceptTop pushes the best match into context when it clears the
// acceptance threshold. Ambiguous and empty outcomes leave context alone.
func (s *assistantService) acceptTop(conv *entity.ConversationContext, outcome nlp.MatchOutcome, snap *nlp.Snapshot) {
	if outcome.Ambiguous || len(outcome.Matches) == 0 {
		return
	}
	top := outcome.Matches[0]
	product, ok := snap.Get(top.ProductID)
	if !ok {
		return
	}
	s.accept(conv, product, top.Confidence)
}

func (s *assistantService) buildResponse(sessionID string, q nlp.ProcessedQuery, outcome nlp.MatchOutcome, snap *nlp.Snapshot) *assistant.AskResponse {
	resp := &assistant.AskResponse{
		SessionID: sessionID,
		QueryType: q.QueryType,
		Ambiguous: outcome.Ambiguous,
		NoMatch:   outcome.NoMatch,
	}
	for _, m := range outcome.Matches {
		product, ok := snap.Get(m.ProductID)
		if !ok {
			continue
		}
		resp.Matches = append(resp.Matches, assistant.MatchItem{
			Product:         productSummary(product),
			Confidence:      m.Confidence,
			Method:          string(m.Method),
			MatchedFeatures: m.MatchedFeatures,
		})
	}
	if len(resp.Matches) == 0 && !resp.NoMatch {
		resp.NoMatch = true
	}
	return resp
}

func matchRefs(outcome nlp.MatchOutcome, snap *nlp.Snapshot) map[string]int64 {
	refs := make(map[string]int64, len(outcome.Matches))
	for _, m := range outcome.Matches {
		if product, ok := snap.Get(m.ProductID); ok {
			refs[m.ProductID] = product.Revision
		}
	}
	return refs
}

func productSummary(p nlp.Product) assistant.ProductSummary {
	return assistant.ProductSummary{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		Currency: p.Currency,
		InStock:  p.InStock(),
		Stock:    p.Stock,
	}
}
