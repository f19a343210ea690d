package nlp

import (
	"sort"
	"strings"
)

// Extractor is a deterministic tagger: an ordered rule list per category,
// each rule matching a canonical token or one of its synonyms against the
// normalized text. No scoring happens here.
type Extractor struct {
	rules []ProductFeature
	// surface form -> rule indices; "dantelli" maps to two rules since it
	// is both a style and a material.
	variants map[string][]int
}

func NewExtractor() *Extractor {
	e := &Extractor{
		rules:    defaultFeatureRules(),
		variants: make(map[string][]int),
	}
	for i, rule := range e.rules {
		e.addVariant(Normalize(rule.Name), i)
		for _, syn := range rule.Synonyms {
			e.addVariant(Normalize(syn), i)
		}
	}
	return e
}

func (e *Extractor) addVariant(key string, idx int) {
	for _, existing := range e.variants[key] {
		if existing == idx {
			return
		}
	}
	e.variants[key] = append(e.variants[key], idx)
}

// Extract derives the feature set of a text. Output is deduplicated by
// feature key and ordered by rule declaration, so repeated calls on the
// same input always agree.
func (e *Extractor) Extract(text string) []ProductFeature {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	seen := make(map[string]bool)
	hit := make(map[int]bool)
	words := strings.Fields(normalized)

	// Single tokens plus bigrams, for two-word features like "büyük beden".
	for i, w := range words {
		for _, idx := range e.variants[w] {
			hit[idx] = true
		}
		if i+1 < len(words) {
			for _, idx := range e.variants[w+" "+words[i+1]] {
				hit[idx] = true
			}
		}
	}

	var out []ProductFeature
	indices := make([]int, 0, len(hit))
	for idx := range hit {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		f := e.rules[idx]
		if seen[f.Key()] {
			continue
		}
		seen[f.Key()] = true
		out = append(out, ProductFeature{Name: f.Name, Category: f.Category, Weight: f.Weight})
	}
	return out
}

// ProcessQuery derives the immutable ProcessedQuery for an inbound message.
// Follow-up classification only applies when the message carries no garment
// or style feature of its own; "afrika gecelik ne kadar" is a fresh search,
// "fiyatı nedir" is a price follow-up.
func (e *Extractor) ProcessQuery(raw string) ProcessedQuery {
	normalized := Normalize(raw)
	features := e.Extract(raw)

	q := ProcessedQuery{
		RawText:        raw,
		NormalizedText: normalized,
		Features:       features,
		QueryType:      QueryFreeText,
	}

	if !hasProductReference(features) {
		q.QueryType = classifyFollowUp(TurkishLower(raw))
	}
	return q
}

func hasProductReference(features []ProductFeature) bool {
	for _, f := range features {
		switch f.Category {
		case CategoryGarmentType, CategoryStyle, CategoryTargetGroup:
			return true
		}
	}
	return false
}

var (
	pricePatterns  = []string{"fiyat", "ne kadar", "kaç para", "kaça", "ücret"}
	stockPatterns  = []string{"stok", "var mı", "var mi", "mevcut", "bulunur mu", "kaldı mı"}
	detailPatterns = []string{"beden", "detay", "özellik", "rengi", "kumaş", "bilgi"}
)

func classifyFollowUp(lower string) QueryType {
	for _, p := range pricePatterns {
		if strings.Contains(lower, p) {
			return QueryPriceFollowUp
		}
	}
	for _, p := range stockPatterns {
		if strings.Contains(lower, p) {
			return QueryStockFollowUp
		}
	}
	for _, p := range detailPatterns {
		if strings.Contains(lower, p) {
			return QueryDetailFollowUp
		}
	}
	return QueryFreeText
}

// defaultFeatureRules is the tagging vocabulary for the lingerie/nightwear
// catalog domain. Weights express per-category importance for the exact
// strategy; "dantelli" deliberately appears as both style and material.
func defaultFeatureRules() []ProductFeature {
	return []ProductFeature{
		// Garment types
		{Name: "gecelik", Category: CategoryGarmentType, Weight: 1.0, Synonyms: []string{"gecelikler"}},
		{Name: "pijama", Category: CategoryGarmentType, Weight: 1.0, Synonyms: []string{"pijamalar", "pjama"}},
		{Name: "sabahlık", Category: CategoryGarmentType, Weight: 1.0, Synonyms: []string{"sabahlıklar"}},
		{Name: "takım", Category: CategoryGarmentType, Weight: 1.0, Synonyms: []string{"takımlar"}},
		{Name: "elbise", Category: CategoryGarmentType, Weight: 1.0},
		{Name: "şort", Category: CategoryGarmentType, Weight: 1.0},

		// Target groups
		{Name: "hamile", Category: CategoryTargetGroup, Weight: 0.9, Synonyms: []string{"hamilelik"}},
		{Name: "lohusa", Category: CategoryTargetGroup, Weight: 0.9},
		{Name: "büyük beden", Category: CategoryTargetGroup, Weight: 0.9, Synonyms: []string{"battal"}},

		// Styles
		{Name: "dantelli", Category: CategoryStyle, Weight: 0.7, Synonyms: []string{"danteli"}},
		{Name: "dekolteli", Category: CategoryStyle, Weight: 0.7, Synonyms: []string{"dekolte"}},
		{Name: "düğmeli", Category: CategoryStyle, Weight: 0.7},
		{Name: "askılı", Category: CategoryStyle, Weight: 0.7},
		{Name: "afrika", Category: CategoryStyle, Weight: 0.8, Synonyms: []string{"africa", "africa style"}},
		{Name: "etnik", Category: CategoryStyle, Weight: 0.7},
		{Name: "klasik", Category: CategoryStyle, Weight: 0.6, Synonyms: []string{"classic"}},
		{Name: "spor", Category: CategoryStyle, Weight: 0.6, Synonyms: []string{"sport"}},

		// Materials
		{Name: "dantelli", Category: CategoryMaterial, Weight: 0.6, Synonyms: []string{"dantel"}},
		{Name: "saten", Category: CategoryMaterial, Weight: 0.6, Synonyms: []string{"satin"}},
		{Name: "pamuklu", Category: CategoryMaterial, Weight: 0.6, Synonyms: []string{"pamuk"}},
		{Name: "penye", Category: CategoryMaterial, Weight: 0.6},
		{Name: "tül", Category: CategoryMaterial, Weight: 0.6},

		// Colors
		{Name: "siyah", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"siyahı", "black"}},
		{Name: "beyaz", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"beyazı", "white", "ekru"}},
		{Name: "kırmızı", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"kırmızısı", "red"}},
		{Name: "mavi", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"mavisi", "blue"}},
		{Name: "lacivert", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"navy"}},
		{Name: "yeşil", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"yeşili", "green", "haki"}},
		{Name: "sarı", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"sarısı", "yellow"}},
		{Name: "mor", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"moru", "lila", "purple"}},
		{Name: "pembe", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"pembesi", "pink"}},
		{Name: "vizon", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"bej", "beige"}},
		{Name: "bordo", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"bordosu", "burgundy"}},
		{Name: "gri", Category: CategoryColor, Weight: 0.8, Synonyms: []string{"grisi", "gray", "grey"}},

		// Price segments
		{Name: "ekonomik", Category: CategoryOther, Weight: 0.5, Synonyms: []string{"ucuz", "uygun"}},
		{Name: "premium", Category: CategoryOther, Weight: 0.5, Synonyms: []string{"lüks"}},
	}
}
