package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"ButikChat/pkg/nlp"
)

const (
	DefaultCapacity = 500
	DefaultTTL      = 10 * time.Minute
)

// entry is one cached outcome plus the product revisions it was computed
// from. Revisions are re-checked on every read so a price or stock change
// can never be served from here.
type entry struct {
	key       string
	sessionID string
	outcome   nlp.MatchOutcome
	refs      map[string]int64
	storedAt  time.Time
}

// Service is an LRU+TTL cache keyed by conversational context. All methods
// are safe for concurrent use.
type Service struct {
	mu        sync.Mutex
	ll        *list.List
	items     map[string]*list.Element
	byProduct map[string]map[string]struct{}
	bySession map[string]map[string]struct{}
	capacity  int
	ttl       time.Duration
	now       func() time.Time
}

func New(capacity int, ttl time.Duration) *Service {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		ll:        list.New(),
		items:     make(map[string]*list.Element),
		byProduct: make(map[string]map[string]struct{}),
		bySession: make(map[string]map[string]struct{}),
		capacity:  capacity,
		ttl:       ttl,
		now:       time.Now,
	}
}

// BuildKey derives the cache key for a query in its conversational setting.
// The resolved product id keeps "bu gecelik ne kadar" apart across sessions
// pointing at different products.
func BuildKey(normalizedQuery, resolvedProductID string, queryType nlp.QueryType) string {
	if resolvedProductID == "" {
		resolvedProductID = "-"
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		normalizedQuery, resolvedProductID, string(queryType),
	}, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached outcome for key if it is fresh and every product
// revision it references still matches the live index. A mismatch drops the
// entry and reports a miss.
func (s *Service) Get(key string, live func(productID string) (int64, bool)) (nlp.MatchOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return nlp.MatchOutcome{}, false
	}
	e := el.Value.(*entry)

	if s.now().Sub(e.storedAt) > s.ttl {
		s.removeLocked(el)
		return nlp.MatchOutcome{}, false
	}
	for id, rev := range e.refs {
		liveRev, exists := live(id)
		if !exists || liveRev != rev {
			s.removeLocked(el)
			return nlp.MatchOutcome{}, false
		}
	}

	s.ll.MoveToFront(el)
	return e.outcome, true
}

// Put stores an outcome with the product revisions it depends on, evicting
// the least recently used entry past capacity.
func (s *Service) Put(key, sessionID string, outcome nlp.MatchOutcome, refs map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		s.removeLocked(el)
	}

	e := &entry{
		key:       key,
		sessionID: sessionID,
		outcome:   outcome,
		refs:      refs,
		storedAt:  s.now(),
	}
	el := s.ll.PushFront(e)
	s.items[key] = el
	for id := range refs {
		s.indexRef(s.byProduct, id, key)
	}
	if sessionID != "" {
		s.indexRef(s.bySession, sessionID, key)
	}

	for s.ll.Len() > s.capacity {
		s.removeLocked(s.ll.Back())
	}
}

// InvalidateProduct drops every entry whose outcome references the product.
func (s *Service) InvalidateProduct(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.byProduct[productID] {
		if el, ok := s.items[key]; ok {
			s.removeLocked(el)
		}
	}
}

// InvalidateSession drops every entry stored for the session. Used by
// session reset.
func (s *Service) InvalidateSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.bySession[sessionID] {
		if el, ok := s.items[key]; ok {
			s.removeLocked(el)
		}
	}
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

func (s *Service) indexRef(index map[string]map[string]struct{}, owner, key string) {
	keys, ok := index[owner]
	if !ok {
		keys = make(map[string]struct{})
		index[owner] = keys
	}
	keys[key] = struct{}{}
}

func (s *Service) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	s.ll.Remove(el)
	delete(s.items, e.key)
	for id := range e.refs {
		s.dropRef(s.byProduct, id, e.key)
	}
	if e.sessionID != "" {
		s.dropRef(s.bySession, e.sessionID, e.key)
	}
}

func (s *Service) dropRef(index map[string]map[string]struct{}, owner, key string) {
	keys, ok := index[owner]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(index, owner)
	}
}
