package nlp

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func matchQuery(t *testing.T, m *Matcher, idx *CatalogIndex, text string) MatchOutcome {
	t.Helper()
	e := NewExtractor()
	out, err := m.Match(context.Background(), e.ProcessQuery(text), idx.Snapshot())
	if err != nil {
		t.Fatalf("Match(%q): %v", text, err)
	}
	return out
}

func TestMatchShortCircuit(t *testing.T) {
	idx := buildIndex(t, nil)
	m := NewMatcher(DefaultMatcherConfig(), testLogger())

	// Two-word query, exactly one product carries both features.
	out := matchQuery(t, m, idx, "afrika gecelik")
	if len(out.Matches) != 1 {
		t.Fatalf("matches = %v, want exactly one", out.Matches)
	}
	got := out.Matches[0]
	if got.ProductID != "P2" || got.Confidence != 1.0 || got.Method != MethodExact {
		t.Errorf("got %+v, want P2 at 1.0 via exact", got)
	}
	if out.Ambiguous || out.NoMatch {
		t.Errorf("unexpected flags in %+v", out)
	}
}

func TestMatchNoShortCircuitWhenPlural(t *testing.T) {
	idx := buildIndex(t, nil)
	m := NewMatcher(DefaultMatcherConfig(), testLogger())

	// "gecelik" alone matches two products, so no product may claim 1.0.
	out := matchQuery(t, m, idx, "gecelik")
	if len(out.Matches) < 2 {
		t.Fatalf("matches = %v, want both gecelik products", out.Matches)
	}
	for _, r := range out.Matches {
		if r.Confidence >= 1.0 {
			t.Errorf("%s scored %v; 1.0 is reserved for the short circuit", r.ProductID, r.Confidence)
		}
	}
}

func TestMatchFusion(t *testing.T) {
	idx := buildIndex(t, nil)
	m := NewMatcher(DefaultMatcherConfig(), testLogger())

	out := matchQuery(t, m, idx, "siyah dantelli gecelik")
	if len(out.Matches) < 2 {
		t.Fatalf("matches = %v, want P1 and P2", out.Matches)
	}
	top := out.Matches[0]
	if top.ProductID != "P1" {
		t.Fatalf("top match = %s, want P1", top.ProductID)
	}
	if top.Method != MethodFused {
		t.Errorf("top method = %s, want fused", top.Method)
	}
	if top.Confidence != 0.99 {
		t.Errorf("top confidence = %v, want cap 0.99", top.Confidence)
	}
	second := out.Matches[1]
	if second.ProductID != "P2" || second.Method != MethodExact {
		t.Errorf("second = %+v, want P2 via exact only", second)
	}
	if out.Ambiguous {
		t.Error("P2's partial score must not trigger ambiguity")
	}
}

func TestMatchNoMatch(t *testing.T) {
	idx := buildIndex(t, nil)
	m := NewMatcher(DefaultMatcherConfig(), testLogger())

	for _, q := range []string{"asdkjh qwerty", "   ", ""} {
		out := matchQuery(t, m, idx, q)
		if !out.NoMatch {
			t.Errorf("query %q: expected NoMatch, got %+v", q, out)
		}
	}
}

func TestMatchFuzzyTypo(t *testing.T) {
	idx := buildIndex(t, nil)
	m := NewMatcher(DefaultMatcherConfig(), testLogger())

	// "gecelk" carries no extractable feature; only fuzzy can reach it.
	out := matchQuery(t, m, idx, "gecelk")
	if len(out.Matches) != 2 {
		t.Fatalf("matches = %v, want the two gecelik products", out.Matches)
	}
	for _, r := range out.Matches {
		if r.Method != MethodFuzzy {
			t.Errorf("%s method = %s, want fuzzy", r.ProductID, r.Method)
		}
		if r.Confidence < 0.8 || r.Confidence > 0.99 {
			t.Errorf("%s confidence = %v, want within (0.8, 0.99]", r.ProductID, r.Confidence)
		}
	}
	// Equal scores fall back to id order.
	if out.Matches[0].ProductID != "P1" || out.Matches[1].ProductID != "P2" {
		t.Errorf("order = %s,%s, want P1,P2", out.Matches[0].ProductID, out.Matches[1].ProductID)
	}
}

func TestMatchAmbiguity(t *testing.T) {
	idx := NewCatalogIndex(NewExtractor(), nil)
	err := idx.Build(context.Background(), []Product{
		{ID: "T1", Name: "Siyah Gecelik", Stock: 4},
		{ID: "T2", Name: "Siyah Gecelik", Stock: 9},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m := NewMatcher(DefaultMatcherConfig(), testLogger())

	out := matchQuery(t, m, idx, "siyah gecelik")
	if !out.Ambiguous {
		t.Fatalf("two identical top candidates should flag ambiguity: %+v", out)
	}
	if len(out.Matches) != 2 {
		t.Errorf("matches = %v, want both", out.Matches)
	}
}

func TestMatchStockTieBreak(t *testing.T) {
	idx := NewCatalogIndex(NewExtractor(), nil)
	err := idx.Build(context.Background(), []Product{
		{ID: "A2", Name: "Siyah Gecelik", Stock: 0},
		{ID: "Z1", Name: "Siyah Gecelik", Stock: 5},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m := NewMatcher(DefaultMatcherConfig(), testLogger())

	// Identical scores and feature counts; only stock separates them, and
	// it must outrank the id order that would put A2 first.
	out := matchQuery(t, m, idx, "siyah gecelik")
	if len(out.Matches) != 2 {
		t.Fatalf("matches = %v, want both", out.Matches)
	}
	if out.Matches[0].ProductID != "Z1" || out.Matches[1].ProductID != "A2" {
		t.Errorf("order = %s,%s, want in-stock Z1 before out-of-stock A2",
			out.Matches[0].ProductID, out.Matches[1].ProductID)
	}
	if out.Matches[0].Confidence != out.Matches[1].Confidence {
		t.Errorf("confidences %v vs %v should tie for this to test the stock leg",
			out.Matches[0].Confidence, out.Matches[1].Confidence)
	}
}

func TestMatchDeterministic(t *testing.T) {
	idx := buildIndex(t, nil)
	m := NewMatcher(DefaultMatcherConfig(), testLogger())

	first := matchQuery(t, m, idx, "siyah dantelli gecelik")
	for i := 0; i < 5; i++ {
		again := matchQuery(t, m, idx, "siyah dantelli gecelik")
		if len(again.Matches) != len(first.Matches) {
			t.Fatalf("run %d: %d matches, want %d", i, len(again.Matches), len(first.Matches))
		}
		for j := range first.Matches {
			a, b := first.Matches[j], again.Matches[j]
			if a.ProductID != b.ProductID || a.Confidence != b.Confidence || a.Method != b.Method {
				t.Fatalf("run %d: result %d differs: %+v vs %+v", i, j, a, b)
			}
		}
	}
}

func TestMatchSemantic(t *testing.T) {
	idx := NewCatalogIndex(NewExtractor(), newBasisEmbedder())
	err := idx.Build(context.Background(), []Product{
		{ID: "S1", Name: "Hamile Pijama", Stock: 5},
		{ID: "S2", Name: "Hamile Lohusa Pijama", Stock: 5},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m := NewMatcher(DefaultMatcherConfig(), testLogger())

	out := matchQuery(t, m, idx, "hamile pijama")
	if len(out.Matches) != 2 {
		t.Fatalf("matches = %v, want both", out.Matches)
	}
	top, second := out.Matches[0], out.Matches[1]
	if top.ProductID != "S1" {
		t.Fatalf("top = %s, want the exact-feature product S1", top.ProductID)
	}
	if top.Method != MethodFused || second.Method != MethodFused {
		t.Errorf("methods = %s,%s, want fused,fused", top.Method, second.Method)
	}
	if top.Confidence != 0.99 {
		t.Errorf("top confidence = %v, want 0.99", top.Confidence)
	}
	// S2's extra feature pulls its embedding away from the query vector.
	if second.Confidence >= top.Confidence {
		t.Errorf("second confidence %v should trail top %v", second.Confidence, top.Confidence)
	}
	if out.Ambiguous {
		t.Errorf("semantic separation should leave a single high-confidence match: %+v", out)
	}
}

func TestMatchStaleIndexDegradesToFuzzy(t *testing.T) {
	idx := buildIndex(t, nil)
	m := NewMatcher(DefaultMatcherConfig(), testLogger())
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	out := matchQuery(t, m, idx, "siyah dantelli gecelik")
	if len(out.Matches) == 0 {
		t.Fatal("stale index should still serve fuzzy matches")
	}
	for _, r := range out.Matches {
		if r.Method != MethodFuzzy {
			t.Errorf("%s method = %s, want fuzzy only on a stale index", r.ProductID, r.Method)
		}
	}
}

func TestMatchStaleIndexSkipsShortCircuit(t *testing.T) {
	idx := buildIndex(t, nil)
	m := NewMatcher(DefaultMatcherConfig(), testLogger())
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	// The same query short-circuits to 1.0 on a fresh snapshot; past the
	// staleness bound it must go through fuzzy like everything else.
	out := matchQuery(t, m, idx, "afrika gecelik")
	if len(out.Matches) == 0 {
		t.Fatal("stale index should still serve fuzzy matches")
	}
	for _, r := range out.Matches {
		if r.Method != MethodFuzzy {
			t.Errorf("%s method = %s, want fuzzy only on a stale index", r.ProductID, r.Method)
		}
		if r.Confidence >= 1.0 {
			t.Errorf("%s confidence = %v; 1.0 must not be served from a stale snapshot", r.ProductID, r.Confidence)
		}
	}
}

func TestMatchCancelledContext(t *testing.T) {
	idx := buildIndex(t, nil)
	m := NewMatcher(DefaultMatcherConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExtractor()
	_, err := m.Match(ctx, e.ProcessQuery("siyah dantelli gecelik"), idx.Snapshot())
	if err == nil {
		t.Fatal("cancelled context should surface an error")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"gecelik", "gecelik", 1.0},
		{"", "gecelik", 0},
		{"gece", "gecelik", 4.0 / 7.0},
	}
	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("similarity(%q,%q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
	if got := similarity("gecelk", "gecelik"); got < 0.85 || got >= 1.0 {
		t.Errorf("one edit apart = %v, want high but below 1.0", got)
	}
}
