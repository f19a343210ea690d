package assistant

import (
	"ButikChat/internal/entity"
	"ButikChat/pkg/nlp"
)

type AskRequest struct {
	SessionID string `json:"session_id" validate:"required,min=1,max=128"`
	Message   string `json:"message" validate:"required,min=1,max=1000"`
}

type AskResponse struct {
	SessionID          string          `json:"session_id"`
	QueryType          nlp.QueryType   `json:"query_type"`
	Matches            []MatchItem     `json:"matches,omitempty"`
	Ambiguous          bool            `json:"ambiguous,omitempty"`
	NoMatch            bool            `json:"no_match,omitempty"`
	ResolvedViaContext bool            `json:"resolved_via_context,omitempty"`
	Product            *ProductSummary `json:"product,omitempty"`
	Cached             bool            `json:"cached,omitempty"`
}

type MatchItem struct {
	Product         ProductSummary `json:"product"`
	Confidence      float64        `json:"confidence"`
	Method          string         `json:"method"`
	MatchedFeatures []string       `json:"matched_features,omitempty"`
}

type ProductSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	InStock  bool    `json:"in_stock"`
	Stock    int     `json:"stock"`
}

type ResetSessionRequest struct {
	SessionID string `json:"session_id" validate:"required,min=1,max=128"`
}

type SessionStateResponse struct {
	SessionID     string                    `json:"session_id"`
	LastProducts  []entity.ProductReference `json:"last_products"`
	LastQueryType nlp.QueryType             `json:"last_query_type"`
}
