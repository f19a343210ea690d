package nlp

import "time"

type FeatureCategory string

const (
	CategoryColor       FeatureCategory = "color"
	CategoryStyle       FeatureCategory = "style"
	CategoryMaterial    FeatureCategory = "material"
	CategoryTargetGroup FeatureCategory = "target_group"
	CategoryGarmentType FeatureCategory = "garment_type"
	CategoryOther       FeatureCategory = "other"
)

// ProductFeature is a canonical tag extracted from free text. The same
// extraction tables are used for catalog entries and for queries, so the
// vocabularies stay comparable.
type ProductFeature struct {
	Name     string          `json:"name"`
	Category FeatureCategory `json:"category"`
	Weight   float64         `json:"weight"`
	Synonyms []string        `json:"synonyms,omitempty"`
}

// Key identifies a feature inside the inverted index. A surface form like
// "dantelli" can legitimately live in more than one category, so the
// category is part of the identity.
func (f ProductFeature) Key() string {
	return string(f.Category) + ":" + f.Name
}

type QueryType string

const (
	QueryFreeText       QueryType = "free_text"
	QueryPriceFollowUp  QueryType = "price_followup"
	QueryStockFollowUp  QueryType = "stock_followup"
	QueryDetailFollowUp QueryType = "detail_followup"
)

func (t QueryType) IsFollowUp() bool {
	return t == QueryPriceFollowUp || t == QueryStockFollowUp || t == QueryDetailFollowUp
}

// ProcessedQuery is derived once per inbound message and never mutated.
// Resolution against conversation context returns a copy with
// ResolvedProductID set.
type ProcessedQuery struct {
	RawText           string           `json:"raw_text"`
	NormalizedText    string           `json:"normalized_text"`
	Features          []ProductFeature `json:"extracted_features"`
	QueryType         QueryType        `json:"query_type"`
	ResolvedProductID string           `json:"resolved_product_id,omitempty"`
}

type MatchMethod string

const (
	MethodExact    MatchMethod = "exact"
	MethodSemantic MatchMethod = "semantic"
	MethodFuzzy    MatchMethod = "fuzzy"
	MethodFused    MatchMethod = "fused"
)

type MatchResult struct {
	ProductID       string      `json:"product_id"`
	Confidence      float64     `json:"confidence"`
	Method          MatchMethod `json:"method"`
	MatchedFeatures []string    `json:"matched_features,omitempty"`
	Explanation     string      `json:"explanation,omitempty"`
}

// MatchOutcome is the tagged result of a query: exactly one of Matches,
// NoMatch or ResolvedProductID is meaningful. The caller decides whether a
// NoMatch/Ambiguous outcome is worth escalating to the LLM fallback
// collaborator; this engine never calls it.
type MatchOutcome struct {
	Matches           []MatchResult `json:"matches,omitempty"`
	Ambiguous         bool          `json:"ambiguous,omitempty"`
	NoMatch           bool          `json:"no_match,omitempty"`
	ResolvedProductID string        `json:"resolved_via_context,omitempty"`
}

// Product is the catalog entry as the index sees it. Price and Stock are
// the only mutable fields; every accepted change bumps Revision so stale
// cache entries can be detected.
type Product struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Price      float64           `json:"price"`
	Currency   string            `json:"currency"`
	Stock      int               `json:"stock_quantity"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Features   []ProductFeature  `json:"features,omitempty"`
	Revision   int64             `json:"revision"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (p Product) InStock() bool {
	return p.Stock > 0
}
