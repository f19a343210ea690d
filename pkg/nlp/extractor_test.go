package nlp

import "testing"

func featureSet(features []ProductFeature) map[string]bool {
	set := make(map[string]bool, len(features))
	for _, f := range features {
		set[f.Key()] = true
	}
	return set
}

func TestExtract(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			"color garment style",
			"siyah dantelli gecelik",
			[]string{"color:siyah", "style:dantelli", "material:dantelli", "garment_type:gecelik"},
		},
		{
			"target group bigram",
			"büyük beden pijama",
			[]string{"target_group:büyük beden", "garment_type:pijama"},
		},
		{
			"color synonym",
			"bej sabahlık",
			[]string{"color:vizon", "garment_type:sabahlık"},
		},
		{
			"suffixed garment",
			"afrika geceliği",
			[]string{"style:afrika", "garment_type:gecelik"},
		},
		{
			"no features",
			"merhaba nasılsınız",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := featureSet(e.Extract(tt.in))
			if len(got) != len(tt.want) {
				t.Fatalf("Extract(%q) = %v, want keys %v", tt.in, got, tt.want)
			}
			for _, key := range tt.want {
				if !got[key] {
					t.Errorf("Extract(%q) missing %q, got %v", tt.in, key, got)
				}
			}
		})
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor()
	first := e.Extract("hamile lohusa dantelli pijama takımı")
	for i := 0; i < 10; i++ {
		again := e.Extract("hamile lohusa dantelli pijama takımı")
		if len(again) != len(first) {
			t.Fatalf("run %d: %d features, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j].Key() != first[j].Key() {
				t.Fatalf("run %d: order changed at %d: %s vs %s", i, j, again[j].Key(), first[j].Key())
			}
		}
	}
}

func TestProcessQueryType(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		in   string
		want QueryType
	}{
		{"price follow-up", "fiyatı nedir", QueryPriceFollowUp},
		{"price phrase", "ne kadar bu", QueryPriceFollowUp},
		{"stock follow-up", "stokta var mı", QueryStockFollowUp},
		{"detail follow-up", "kumaşı nasıl", QueryDetailFollowUp},
		{"plain free text", "merhaba", QueryFreeText},
		{"features override price words", "afrika gecelik ne kadar", QueryFreeText},
		{"features override stock words", "hamile pijama var mı", QueryFreeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := e.ProcessQuery(tt.in)
			if q.QueryType != tt.want {
				t.Errorf("ProcessQuery(%q).QueryType = %s, want %s", tt.in, q.QueryType, tt.want)
			}
		})
	}
}

func TestProcessQueryFields(t *testing.T) {
	e := NewExtractor()
	q := e.ProcessQuery("Afrika geceliği var mı?")

	if q.RawText != "Afrika geceliği var mı?" {
		t.Errorf("raw text mutated: %q", q.RawText)
	}
	if q.NormalizedText != "afrika gecelik" {
		t.Errorf("normalized = %q, want %q", q.NormalizedText, "afrika gecelik")
	}
	if q.QueryType != QueryFreeText {
		t.Errorf("query type = %s, want free_text", q.QueryType)
	}
	set := featureSet(q.Features)
	if !set["style:afrika"] || !set["garment_type:gecelik"] {
		t.Errorf("features = %v, want afrika + gecelik", set)
	}
	if q.ResolvedProductID != "" {
		t.Errorf("resolved product id should start empty, got %q", q.ResolvedProductID)
	}
}
