package catalog

import "ButikChat/pkg/response"

var (
	ErrProductNotFound = response.NewError(404, "product not found")
	ErrInvalidPrice    = response.NewError(400, "price must be positive")
	ErrInvalidStock    = response.NewError(400, "stock cannot be negative")
)
