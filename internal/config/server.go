package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"ButikChat/database/postgres"
	assistantHandler "ButikChat/internal/api/assistant/handler"
	assistantRepository "ButikChat/internal/api/assistant/repository"
	assistantService "ButikChat/internal/api/assistant/service"
	catalogHandler "ButikChat/internal/api/catalog/handler"
	catalogRepository "ButikChat/internal/api/catalog/repository"
	catalogService "ButikChat/internal/api/catalog/service"
	"ButikChat/internal/middleware"
	"ButikChat/pkg/cache"
	"ButikChat/pkg/gemini"
	"ButikChat/pkg/nlp"
	"ButikChat/pkg/redis"
	"ButikChat/pkg/utils"
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine       *fiber.App
	db           *sqlx.DB
	log          *logrus.Logger
	middleware   middleware.Middleware
	validator    *validator.Validate
	utils        utils.IUtils
	handlers     []handler
	redisServer  redis.IRedis
	geminiClient gemini.IGemini

	catalogService catalogService.ICatalogService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

// WithGeminiClient is optional: without an API key the semantic strategy is
// simply disabled and search runs on exact+fuzzy alone.
func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		if os.Getenv("GEMINI_API_KEY") == "" {
			if s.log != nil {
				s.log.Warn("GEMINI_API_KEY not set, semantic matching disabled")
			}
			return nil
		}
		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	extractor := nlp.NewExtractor()

	var embedder nlp.Embedder
	if s.geminiClient != nil {
		embedder = s.geminiClient
	}
	index := nlp.NewCatalogIndex(extractor, embedder)
	matcher := nlp.NewMatcher(matcherConfigFromEnv(), s.log)
	cacheService := cache.New(
		envInt("CACHE_CAPACITY", cache.DefaultCapacity),
		envMinutes("CACHE_TTL_MINUTES", cache.DefaultTTL),
	)

	assistantConfig := assistantService.DefaultAssistantConfig()
	assistantConfig.AcceptanceThreshold = envFloat("CONTEXT_ACCEPTANCE_THRESHOLD", assistantConfig.AcceptanceThreshold)
	assistantConfig.ContextTTL = envMinutes("CONTEXT_TTL_MINUTES", assistantConfig.ContextTTL)

	var contextStore assistantRepository.ContextStore
	if s.redisServer != nil {
		contextStore = assistantRepository.NewContextStore(s.redisServer, s.log, assistantConfig.ContextTTL)
	} else {
		s.log.Warn("Redis not configured, conversation contexts held in memory")
		contextStore = assistantRepository.NewMemoryContextStore(assistantConfig.ContextTTL)
	}

	// Catalog Domain
	catalogRepo := catalogRepository.New(s.db, s.log)
	catalogServices := catalogService.NewCatalogService(s.log, catalogRepo, index, cacheService)
	catalogHandlers := catalogHandler.New(s.log, s.validator, s.middleware, catalogServices)
	s.catalogService = catalogServices

	// Assistant Domain
	assistantServices := assistantService.NewAssistantService(
		s.log, contextStore, extractor, index, matcher, cacheService, assistantConfig,
	)
	assistantHandlers := assistantHandler.New(s.log, s.validator, s.middleware, assistantServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, catalogHandlers, assistantHandlers)
}

// LoadCatalog fills the search index from the database before the server
// starts taking queries.
func (s *Server) LoadCatalog() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.catalogService.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog into index: %w", err)
	}
	s.log.Infof("Catalog loaded, %d products indexed", result.Products)
	return nil
}

func (s *Server) Run() error {
	router := s.engine.Group("/api/v1")
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}

func matcherConfigFromEnv() nlp.MatcherConfig {
	cfg := nlp.DefaultMatcherConfig()
	cfg.ExactWeight = envFloat("MATCHER_EXACT_WEIGHT", cfg.ExactWeight)
	cfg.SemanticWeight = envFloat("MATCHER_SEMANTIC_WEIGHT", cfg.SemanticWeight)
	cfg.FuzzyWeight = envFloat("MATCHER_FUZZY_WEIGHT", cfg.FuzzyWeight)
	cfg.SemanticFloor = envFloat("MATCHER_SEMANTIC_FLOOR", cfg.SemanticFloor)
	cfg.FuzzyFloor = envFloat("MATCHER_FUZZY_FLOOR", cfg.FuzzyFloor)
	cfg.TopK = envInt("MATCHER_TOP_K", cfg.TopK)
	cfg.AmbiguityFloor = envFloat("MATCHER_AMBIGUITY_FLOOR", cfg.AmbiguityFloor)
	if ms := envInt("MATCHER_STRATEGY_TIMEOUT_MS", 0); ms > 0 {
		cfg.StrategyTimeout = time.Duration(ms) * time.Millisecond
	}
	cfg.StalenessBound = envMinutes("MATCHER_STALENESS_MINUTES", cfg.StalenessBound)
	return cfg
}

func envFloat(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envMinutes(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return time.Duration(v) * time.Minute
		}
	}
	return fallback
}
