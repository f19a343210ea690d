package catalogService

import (
	"ButikChat/internal/api/catalog"
	catalogRepository "ButikChat/internal/api/catalog/repository"
	"ButikChat/pkg/cache"
	"ButikChat/pkg/nlp"
	"context"

	"github.com/sirupsen/logrus"
)

type ICatalogService interface {
	UpsertProduct(ctx context.Context, req catalog.UpsertProductRequest) (*catalog.ProductResponse, error)
	GetProduct(ctx context.Context, id string) (*catalog.ProductResponse, error)
	ListProducts(ctx context.Context) (*catalog.ListProductsResponse, error)
	DeleteProduct(ctx context.Context, id string) error
	Reindex(ctx context.Context) (*catalog.ReindexResponse, error)
}

type catalogService struct {
	log         *logrus.Logger
	catalogRepo catalogRepository.Repository
	index       *nlp.CatalogIndex
	cache       *cache.Service
}

func NewCatalogService(
	log *logrus.Logger,
	catalogRepo catalogRepository.Repository,
	index *nlp.CatalogIndex,
	cacheService *cache.Service,
) ICatalogService {
	return &catalogService{
		log:         log,
		catalogRepo: catalogRepo,
		index:       index,
		cache:       cacheService,
	}
}
