package catalogService

import (
	"time"

	"ButikChat/internal/api/catalog"
	"ButikChat/internal/entity"
	contextPkg "ButikChat/pkg/context"
	"ButikChat/pkg/nlp"
	"context"

	"github.com/sirupsen/logrus"
)

// UpsertProduct writes the product to Postgres and then, synchronously,
// publishes it to the search index and evicts every cached result that
// referenced it. Search never sees a product the database does not have.
func (s *catalogService) UpsertProduct(ctx context.Context, req catalog.UpsertProductRequest) (*catalog.ProductResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if req.Price <= 0 {
		return nil, catalog.ErrInvalidPrice
	}
	if req.Stock < 0 {
		return nil, catalog.ErrInvalidStock
	}

	client, err := s.catalogRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	product := entity.Product{
		ID:         req.ID,
		Name:       req.Name,
		Category:   req.Category,
		Price:      req.Price,
		Currency:   req.Currency,
		Stock:      req.Stock,
		Attributes: req.Attributes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := client.Products.UpsertProduct(ctx, product); err != nil {
		return nil, err
	}

	if err := s.index.Upsert(ctx, toIndexProduct(product)); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"product_id": product.ID,
			"error":      err.Error(),
		}).Error("Product stored but index update failed")
		return nil, err
	}
	s.cache.InvalidateProduct(product.ID)

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"product_id": product.ID,
	}).Info("Product upserted and index refreshed")

	resp := toProductResponse(product)
	return &resp, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*catalog.ProductResponse, error) {
	client, err := s.catalogRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	product, err := client.Products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := toProductResponse(product)
	return &resp, nil
}

func (s *catalogService) ListProducts(ctx context.Context) (*catalog.ListProductsResponse, error) {
	client, err := s.catalogRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	products, err := client.Products.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}

	resp := &catalog.ListProductsResponse{
		Products: make([]catalog.ProductResponse, 0, len(products)),
		Total:    len(products),
	}
	for _, p := range products {
		resp.Products = append(resp.Products, toProductResponse(p))
	}
	return resp, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id string) error {
	client, err := s.catalogRepo.NewClient(false)
	if err != nil {
		return err
	}

	if err := client.Products.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.index.Remove(id)
	s.cache.InvalidateProduct(id)

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"product_id": id,
	}).Info("Product deleted and removed from index")
	return nil
}

// Reindex rebuilds the whole search snapshot from the database. Run at
// startup and available to admins after bulk imports.
func (s *catalogService) Reindex(ctx context.Context) (*catalog.ReindexResponse, error) {
	client, err := s.catalogRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	products, err := client.Products.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}

	indexable := make([]nlp.Product, 0, len(products))
	for _, p := range products {
		indexable = append(indexable, toIndexProduct(p))
	}
	if err := s.index.Build(ctx, indexable); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"products":   len(indexable),
	}).Info("Catalog index rebuilt")

	return &catalog.ReindexResponse{Products: len(indexable)}, nil
}

func toIndexProduct(p entity.Product) nlp.Product {
	return nlp.Product{
		ID:         p.ID,
		Name:       p.Name,
		Category:   p.Category,
		Price:      p.Price,
		Currency:   p.Currency,
		Stock:      p.Stock,
		Attributes: p.Attributes,
	}
}

func toProductResponse(p entity.Product) catalog.ProductResponse {
	return catalog.ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		Category:   p.Category,
		Price:      p.Price,
		Currency:   p.Currency,
		Stock:      p.Stock,
		Attributes: p.Attributes,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
