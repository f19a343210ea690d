package catalogHandler

import (
	catalogService "ButikChat/internal/api/catalog/service"
	"ButikChat/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type CatalogHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	catalogService catalogService.ICatalogService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	cs catalogService.ICatalogService,
) *CatalogHandler {
	return &CatalogHandler{
		log:            log,
		validator:      validate,
		middleware:     middleware,
		catalogService: cs,
	}
}

func (h *CatalogHandler) Start(srv fiber.Router) {
	products := srv.Group("/catalog")

	products.Get("/products", h.ListProducts)
	products.Get("/products/:id", h.GetProduct)

	// Mutations are admin-only.
	admin := products.Group("", h.middleware.NewTokenMiddleware)
	admin.Put("/products", h.UpsertProduct)
	admin.Delete("/products/:id", h.DeleteProduct)
	admin.Post("/reindex", h.Reindex)
}
