package assistant

import "ButikChat/pkg/response"

var (
	ErrEmptyMessage     = response.NewError(400, "message is empty after normalization")
	ErrSessionRequired  = response.NewError(400, "session id is required")
	ErrContextNotFound  = response.NewError(404, "conversation context not found")
	ErrContextCorrupted = response.NewError(500, "conversation context could not be decoded")
	ErrQueryTimeout     = response.NewError(408, "query processing timed out")
	ErrIndexUnavailable = response.NewError(503, "catalog index is not ready")
)
