package catalog

import "time"

type UpsertProductRequest struct {
	ID         string            `json:"id" validate:"required,min=1,max=64"`
	Name       string            `json:"name" validate:"required,min=1,max=255"`
	Category   string            `json:"category" validate:"required,min=1,max=64"`
	Price      float64           `json:"price" validate:"required,gt=0"`
	Currency   string            `json:"currency" validate:"required,len=3"`
	Stock      int               `json:"stock" validate:"gte=0"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type ProductResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Price      float64           `json:"price"`
	Currency   string            `json:"currency"`
	Stock      int               `json:"stock"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type ListProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
}

type ReindexResponse struct {
	Products int `json:"products"`
}
