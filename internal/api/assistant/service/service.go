package assistantService

import (
	"sync"
	"time"

	"ButikChat/internal/api/assistant"
	assistantRepository "ButikChat/internal/api/assistant/repository"
	"ButikChat/pkg/cache"
	"ButikChat/pkg/nlp"
	"context"

	"github.com/sirupsen/logrus"
)

type IAssistantService interface {
	HandleQuery(ctx context.Context, req assistant.AskRequest) (*assistant.AskResponse, error)
	ResetSession(ctx context.Context, sessionID string) error
	SessionState(ctx context.Context, sessionID string) (*assistant.SessionStateResponse, error)
}

type AssistantConfig struct {
	AcceptanceThreshold float64
	ContextTTL          time.Duration
}

func DefaultAssistantConfig() AssistantConfig {
	return AssistantConfig{
		AcceptanceThreshold: 0.55,
		ContextTTL:          30 * time.Minute,
	}
}

type assistantService struct {
	log          *logrus.Logger
	contextStore assistantRepository.ContextStore
	extractor    *nlp.Extractor
	index        *nlp.CatalogIndex
	matcher      *nlp.Matcher
	cache        *cache.Service
	config       AssistantConfig
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

func NewAssistantService(
	log *logrus.Logger,
	contextStore assistantRepository.ContextStore,
	extractor *nlp.Extractor,
	index *nlp.CatalogIndex,
	matcher *nlp.Matcher,
	cacheService *cache.Service,
	config AssistantConfig,
) IAssistantService {
	return &assistantService{
		log:          log,
		contextStore: contextStore,
		extractor:    extractor,
		index:        index,
		matcher:      matcher,
		cache:        cacheService,
		config:       config,
		now:          time.Now,
		sessions:     make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing all work for one session, so
// concurrent messages from the same customer cannot interleave context
// updates. Different sessions proceed in parallel.
func (s *assistantService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessions[sessionID] = lock
	}
	return lock
}
