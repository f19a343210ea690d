package assistantService

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"ButikChat/internal/api/assistant"
	assistantRepository "ButikChat/internal/api/assistant/repository"
	"ButikChat/pkg/cache"
	"ButikChat/pkg/nlp"

	"github.com/sirupsen/logrus"
)

func newTestService(t *testing.T) (*assistantService, *nlp.CatalogIndex) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	extractor := nlp.NewExtractor()
	index := nlp.NewCatalogIndex(extractor, nil)
	err := index.Build(context.Background(), []nlp.Product{
		{ID: "P1", Name: "Siyah Dantelli Gecelik", Category: "gecelik", Price: 450, Currency: "TRY", Stock: 12},
		{ID: "P2", Name: "Afrika Etnik Gecelik", Category: "gecelik", Price: 565, Currency: "TRY", Stock: 8},
		{ID: "P3", Name: "Hamile Lohusa Pijama Takımı", Category: "pijama", Price: 720, Currency: "TRY", Stock: 3},
	})
	if err != nil {
		t.Fatalf("index build: %v", err)
	}

	svc := NewAssistantService(
		log,
		assistantRepository.NewMemoryContextStore(time.Hour),
		extractor,
		index,
		nlp.NewMatcher(nlp.DefaultMatcherConfig(), log),
		cache.New(100, 10*time.Minute),
		DefaultAssistantConfig(),
	).(*assistantService)

	return svc, index
}

func ask(t *testing.T, svc *assistantService, sessionID, message string) *assistant.AskResponse {
	t.Helper()
	resp, err := svc.HandleQuery(context.Background(), assistant.AskRequest{
		SessionID: sessionID,
		Message:   message,
	})
	if err != nil {
		t.Fatalf("HandleQuery(%q): %v", message, err)
	}
	return resp
}

func TestHandleQueryFollowUpResolution(t *testing.T) {
	svc, _ := newTestService(t)

	first := ask(t, svc, "sess-1", "afrika gecelik var mı?")
	if len(first.Matches) != 1 || first.Matches[0].Product.ID != "P2" {
		t.Fatalf("first query = %+v, want single P2 match", first)
	}

	second := ask(t, svc, "sess-1", "fiyatı ne kadar?")
	if !second.ResolvedViaContext {
		t.Fatalf("follow-up not resolved via context: %+v", second)
	}
	if second.QueryType != nlp.QueryPriceFollowUp {
		t.Errorf("query type = %s, want price follow-up", second.QueryType)
	}
	if second.Product == nil || second.Product.ID != "P2" || second.Product.Price != 565 {
		t.Errorf("follow-up product = %+v, want P2 at 565", second.Product)
	}
}

func TestHandleQueryFeaturesOverrideFollowUp(t *testing.T) {
	svc, _ := newTestService(t)

	// Establish P3 as conversation subject.
	ask(t, svc, "sess-1", "hamile pijama takımı")

	// Mentions a price but names a different product: fresh search, not a
	// follow-up against P3.
	resp := ask(t, svc, "sess-1", "afrika gecelik ne kadar")
	if resp.ResolvedViaContext {
		t.Fatalf("feature-bearing query resolved via context: %+v", resp)
	}
	if resp.QueryType != nlp.QueryFreeText {
		t.Errorf("query type = %s, want free_text", resp.QueryType)
	}
	if len(resp.Matches) == 0 || resp.Matches[0].Product.ID != "P2" {
		t.Errorf("matches = %+v, want P2 on top", resp.Matches)
	}
}

func TestHandleQueryFollowUpWithoutContext(t *testing.T) {
	svc, _ := newTestService(t)

	resp := ask(t, svc, "sess-new", "fiyatı ne kadar?")
	if resp.ResolvedViaContext {
		t.Fatal("resolved a follow-up with no conversation history")
	}
	if !resp.NoMatch {
		t.Errorf("expected no match, got %+v", resp)
	}
}

func TestHandleQueryEmptyAfterNormalization(t *testing.T) {
	svc, _ := newTestService(t)

	resp := ask(t, svc, "sess-1", "acaba lütfen?!")
	if !resp.NoMatch {
		t.Errorf("stop-phrase-only message should be no_match, got %+v", resp)
	}
}

func TestHandleQueryCaching(t *testing.T) {
	svc, index := newTestService(t)

	first := ask(t, svc, "sess-1", "siyah dantelli gecelik")
	if first.Cached {
		t.Fatal("first query reported as cached")
	}
	second := ask(t, svc, "sess-1", "siyah dantelli gecelik")
	if !second.Cached {
		t.Fatal("identical repeat query missed the cache")
	}
	if len(second.Matches) != len(first.Matches) || second.Matches[0].Product.ID != first.Matches[0].Product.ID {
		t.Errorf("cached response differs: %+v vs %+v", second.Matches, first.Matches)
	}

	// A catalog update bumps P1's revision; the cached entry must die.
	err := index.Upsert(context.Background(), nlp.Product{
		ID: "P1", Name: "Siyah Dantelli Gecelik", Category: "gecelik", Price: 499, Currency: "TRY", Stock: 2,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	third := ask(t, svc, "sess-1", "siyah dantelli gecelik")
	if third.Cached {
		t.Fatal("stale cache entry served after product update")
	}
	if third.Matches[0].Product.Price != 499 {
		t.Errorf("price = %v, want updated 499", third.Matches[0].Product.Price)
	}
}

func TestHandleQueryContextExpiry(t *testing.T) {
	svc, _ := newTestService(t)

	ask(t, svc, "sess-1", "afrika gecelik")

	svc.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	resp := ask(t, svc, "sess-1", "fiyatı ne kadar?")
	if resp.ResolvedViaContext {
		t.Fatalf("expired context still resolved a follow-up: %+v", resp)
	}
}

func TestResetSession(t *testing.T) {
	svc, _ := newTestService(t)

	ask(t, svc, "sess-1", "afrika gecelik")
	if err := svc.ResetSession(context.Background(), "sess-1"); err != nil {
		t.Fatalf("ResetSession: %v", err)
	}

	resp := ask(t, svc, "sess-1", "fiyatı ne kadar?")
	if resp.ResolvedViaContext {
		t.Fatalf("follow-up resolved after reset: %+v", resp)
	}
	if _, err := svc.SessionState(context.Background(), "sess-1"); err == nil {
		t.Error("SessionState after reset should fail")
	}
}

func TestHandleQueryCancelledContextLeavesStateAlone(t *testing.T) {
	svc, _ := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.HandleQuery(ctx, assistant.AskRequest{SessionID: "sess-1", Message: "siyah dantelli gecelik"})
	if err == nil {
		t.Fatal("cancelled request should error")
	}
	if _, stateErr := svc.SessionState(context.Background(), "sess-1"); stateErr == nil {
		t.Error("cancelled request must not create conversation context")
	}
}

func TestHandleQueryIndexNeverBuilt(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	extractor := nlp.NewExtractor()
	svc := NewAssistantService(
		log,
		assistantRepository.NewMemoryContextStore(time.Hour),
		extractor,
		nlp.NewCatalogIndex(extractor, nil),
		nlp.NewMatcher(nlp.DefaultMatcherConfig(), log),
		cache.New(100, 10*time.Minute),
		DefaultAssistantConfig(),
	)

	_, err := svc.HandleQuery(context.Background(), assistant.AskRequest{
		SessionID: "sess-1",
		Message:   "siyah gecelik",
	})
	if !errors.Is(err, assistant.ErrIndexUnavailable) {
		t.Fatalf("err = %v, want ErrIndexUnavailable before the catalog is loaded", err)
	}
}

func TestHandleQueryDeadlineExceededMapsToTimeout(t *testing.T) {
	svc, _ := newTestService(t)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := svc.HandleQuery(ctx, assistant.AskRequest{SessionID: "sess-1", Message: "siyah dantelli gecelik"})
	if !errors.Is(err, assistant.ErrQueryTimeout) {
		t.Fatalf("err = %v, want ErrQueryTimeout", err)
	}
	if _, stateErr := svc.SessionState(context.Background(), "sess-1"); stateErr == nil {
		t.Error("timed-out request must not create conversation context")
	}
}

func TestSessionStateTracksLastProducts(t *testing.T) {
	svc, _ := newTestService(t)

	ask(t, svc, "sess-1", "afrika gecelik")
	ask(t, svc, "sess-1", "hamile pijama takımı")

	state, err := svc.SessionState(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("SessionState: %v", err)
	}
	if len(state.LastProducts) != 2 {
		t.Fatalf("last products = %+v, want 2 entries", state.LastProducts)
	}
	if state.LastProducts[0].ProductID != "P3" {
		t.Errorf("most recent = %s, want P3", state.LastProducts[0].ProductID)
	}
	if state.LastProducts[1].ProductID != "P2" {
		t.Errorf("older entry = %s, want P2", state.LastProducts[1].ProductID)
	}
}
