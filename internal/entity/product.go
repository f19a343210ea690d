package entity

import "time"

// Product is the catalog row as stored in Postgres. Attributes is a free
// JSONB document (renk, beden, kumaş and whatever else the shop tracks).
type Product struct {
	ID         string            `db:"id" json:"id"`
	Name       string            `db:"name" json:"name"`
	Category   string            `db:"category" json:"category"`
	Price      float64           `db:"price" json:"price"`
	Currency   string            `db:"currency" json:"currency"`
	Stock      int               `db:"stock" json:"stock"`
	Attributes map[string]string `db:"-" json:"attributes,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}
