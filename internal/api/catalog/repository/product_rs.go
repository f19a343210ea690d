package catalogRepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"ButikChat/internal/api/catalog"
	"ButikChat/internal/entity"
	contextPkg "ButikChat/pkg/context"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// productDB carries the raw row; attributes live in a JSONB column.
type productDB struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	Category   string         `db:"category"`
	Price      float64        `db:"price"`
	Currency   string         `db:"currency"`
	Stock      int            `db:"stock"`
	Attributes sql.NullString `db:"attributes"`
	CreatedAt  sql.NullTime   `db:"created_at"`
	UpdatedAt  sql.NullTime   `db:"updated_at"`
}

func (r *productRepository) UpsertProduct(ctx context.Context, product entity.Product) error {
	requestID := contextPkg.GetRequestID(ctx)

	attributesJSON, err := json.Marshal(product.Attributes)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"product_id": product.ID,
			"error":      err.Error(),
		}).Error("Failed to marshal product attributes")
		return err
	}

	argsKV := map[string]interface{}{
		"id":         product.ID,
		"name":       product.Name,
		"category":   product.Category,
		"price":      product.Price,
		"currency":   product.Currency,
		"stock":      product.Stock,
		"attributes": string(attributesJSON),
		"created_at": product.CreatedAt,
		"updated_at": product.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryUpsertProduct, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for UpsertProduct")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"product_id": product.ID,
			"error":      err.Error(),
		}).Error("Database error when upserting product")
		return err
	}

	return nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id string) (entity.Product, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var row productDB

	query, args, err := sqlx.Named(queryGetProductByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetProductByID named query preparation err")
		return entity.Product{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Product{}, catalog.ErrProductNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"product_id": id,
			"error":      err.Error(),
		}).Error("GetProductByID execution err")
		return entity.Product{}, err
	}

	return r.makeProduct(ctx, row), nil
}

func (r *productRepository) GetAllProducts(ctx context.Context) ([]entity.Product, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var rows []productDB

	query := r.q.Rebind(queryGetAllProducts)
	if err := r.q.SelectContext(ctx, &rows, query); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAllProducts execution err")
		return nil, err
	}

	products := make([]entity.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, r.makeProduct(ctx, row))
	}
	return products, nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id string) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryDeleteProduct, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteProduct named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"product_id": id,
			"error":      err.Error(),
		}).Error("Database error when deleting product")
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return catalog.ErrProductNotFound
	}

	return nil
}

func (r *productRepository) makeProduct(ctx context.Context, row productDB) entity.Product {
	product := entity.Product{
		ID:       row.ID,
		Name:     row.Name,
		Category: row.Category,
		Price:    row.Price,
		Currency: row.Currency,
		Stock:    row.Stock,
	}
	if row.CreatedAt.Valid {
		product.CreatedAt = row.CreatedAt.Time
	}
	if row.UpdatedAt.Valid {
		product.UpdatedAt = row.UpdatedAt.Time
	}
	if row.Attributes.Valid && row.Attributes.String != "" {
		if err := json.Unmarshal([]byte(row.Attributes.String), &product.Attributes); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"product_id": row.ID,
				"error":      err.Error(),
			}).Warn("Product attributes column is not valid JSON, ignoring")
		}
	}
	return product
}
