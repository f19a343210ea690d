package assistantRepository

import (
	"context"
	"errors"
	"testing"
	"time"

	"ButikChat/internal/api/assistant"
	"ButikChat/internal/entity"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryContextStore(30 * time.Minute)
	ctx := context.Background()

	conv := entity.ConversationContext{
		SessionID:     "sess-1",
		LastQueryType: "free_text",
		LastProducts: []entity.ProductReference{
			{ProductID: "P1", Name: "Siyah Dantelli Gecelik", Revision: 1},
		},
	}
	if err := store.Save(ctx, conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SessionID != "sess-1" || len(got.LastProducts) != 1 {
		t.Fatalf("unexpected context: %+v", got)
	}
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	store := NewMemoryContextStore(30 * time.Minute)

	_, err := store.Load(context.Background(), "nope")
	if !errors.Is(err, assistant.ErrContextNotFound) {
		t.Fatalf("expected ErrContextNotFound, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryContextStore(30 * time.Minute)
	ms := store.(*memoryStore)

	base := time.Now()
	ms.now = func() time.Time { return base }

	conv := entity.ConversationContext{SessionID: "sess-2"}
	if err := store.Save(context.Background(), conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ms.now = func() time.Time { return base.Add(29 * time.Minute) }
	if _, err := store.Load(context.Background(), "sess-2"); err != nil {
		t.Fatalf("Load before TTL: %v", err)
	}

	ms.now = func() time.Time { return base.Add(31 * time.Minute) }
	if _, err := store.Load(context.Background(), "sess-2"); !errors.Is(err, assistant.ErrContextNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}

	// Expired entries are removed on read.
	ms.mu.RLock()
	_, still := ms.contexts["sess-2"]
	ms.mu.RUnlock()
	if still {
		t.Fatal("expired context not evicted")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryContextStore(30 * time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, entity.ConversationContext{SessionID: "sess-3"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "sess-3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "sess-3"); !errors.Is(err, assistant.ErrContextNotFound) {
		t.Fatalf("expected ErrContextNotFound after delete, got %v", err)
	}
}
