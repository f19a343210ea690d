package entity

import (
	"time"

	"ButikChat/pkg/nlp"
)

// ProductReference is what a conversation remembers about a product it has
// shown: enough to answer follow-ups and to detect staleness, never the
// full catalog row.
type ProductReference struct {
	ProductID string               `json:"product_id"`
	Name      string               `json:"name"`
	Revision  int64                `json:"revision"`
	Features  []nlp.ProductFeature `json:"features,omitempty"`
}

// ConversationContext is the per-session dialogue state. LastProducts is
// most-recent-first and capped; re-mentioning a product promotes it to the
// front instead of duplicating it.
type ConversationContext struct {
	SessionID       string             `json:"session_id"`
	LastProducts    []ProductReference `json:"last_products"`
	LastQueryType   nlp.QueryType      `json:"last_query_type"`
	UserPreferences map[string]string  `json:"user_preferences,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	LastActiveAt    time.Time          `json:"last_active_at"`
}

const LastProductsCap = 5

// Remember inserts or promotes a product reference, trimming past the cap.
func (c *ConversationContext) Remember(ref ProductReference) {
	rest := make([]ProductReference, 0, len(c.LastProducts)+1)
	rest = append(rest, ref)
	for _, existing := range c.LastProducts {
		if existing.ProductID != ref.ProductID {
			rest = append(rest, existing)
		}
	}
	if len(rest) > LastProductsCap {
		rest = rest[:LastProductsCap]
	}
	c.LastProducts = rest
}

// MostRecentProduct returns the reference follow-up queries resolve to.
func (c *ConversationContext) MostRecentProduct() (ProductReference, bool) {
	if len(c.LastProducts) == 0 {
		return ProductReference{}, false
	}
	return c.LastProducts[0], true
}

func (c *ConversationContext) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.LastActiveAt) > ttl
}
