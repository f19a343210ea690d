package nlp

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type MatcherConfig struct {
	ExactWeight     float64
	SemanticWeight  float64
	FuzzyWeight     float64
	SemanticFloor   float64
	FuzzyFloor      float64
	TopK            int
	StrategyTimeout time.Duration
	AmbiguityFloor  float64
	StalenessBound  time.Duration
}

func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		ExactWeight:     0.5,
		SemanticWeight:  0.3,
		FuzzyWeight:     0.2,
		SemanticFloor:   0.5,
		FuzzyFloor:      0.6,
		TopK:            5,
		StrategyTimeout: 300 * time.Millisecond,
		AmbiguityFloor:  0.95,
		StalenessBound:  time.Hour,
	}
}

// Matcher scores a processed query against a catalog snapshot with three
// strategies and fuses their confidences. Match is safe for concurrent use.
type Matcher struct {
	cfg MatcherConfig
	log *logrus.Logger
	now func() time.Time
}

func NewMatcher(cfg MatcherConfig, log *logrus.Logger) *Matcher {
	return &Matcher{cfg: cfg, log: log, now: time.Now}
}

type strategyScore struct {
	score           float64
	matchedFeatures []string
}

type strategyResult struct {
	method MatchMethod
	weight float64
	scores map[string]strategyScore
	err    error
}

// Match returns the ranked candidates for a query. Strategies run in their
// own goroutines with a per-strategy deadline; one timing out only excludes
// its scores. Cancellation of the parent context aborts the whole call.
func (m *Matcher) Match(ctx context.Context, q ProcessedQuery, snap *Snapshot) (MatchOutcome, error) {
	if len(q.Features) == 0 && strings.TrimSpace(q.NormalizedText) == "" {
		return MatchOutcome{NoMatch: true}, nil
	}
	if snap.Len() == 0 {
		return MatchOutcome{NoMatch: true}, nil
	}

	stale := m.cfg.StalenessBound > 0 && m.now().Sub(snap.BuiltAt()) > m.cfg.StalenessBound
	if stale {
		m.log.WithFields(logrus.Fields{
			"built_at": snap.BuiltAt(),
			"bound":    m.cfg.StalenessBound.String(),
		}).Warn("index snapshot is stale, degrading to fuzzy-only matching")
	} else if out, ok := m.shortCircuit(q, snap); ok {
		// Full-confidence answers are only served from a fresh snapshot.
		return out, nil
	}

	type strategy struct {
		method MatchMethod
		weight float64
		run    func(context.Context) map[string]strategyScore
	}

	strategies := []strategy{
		{MethodFuzzy, m.cfg.FuzzyWeight, func(sc context.Context) map[string]strategyScore {
			return m.fuzzyScores(sc, q, snap)
		}},
	}
	if !stale {
		strategies = append(strategies,
			strategy{MethodExact, m.cfg.ExactWeight, func(sc context.Context) map[string]strategyScore {
				return m.exactScores(sc, q, snap)
			}},
		)
		if snap.HasEmbeddings() {
			strategies = append(strategies,
				strategy{MethodSemantic, m.cfg.SemanticWeight, func(sc context.Context) map[string]strategyScore {
					return m.semanticScores(sc, q, snap)
				}},
			)
		}
	}

	results := make(chan strategyResult, len(strategies))
	for _, st := range strategies {
		st := st
		go func() {
			sctx, cancel := context.WithTimeout(ctx, m.cfg.StrategyTimeout)
			defer cancel()

			done := make(chan map[string]strategyScore, 1)
			go func() { done <- st.run(sctx) }()

			select {
			case scores := <-done:
				results <- strategyResult{method: st.method, weight: st.weight, scores: scores}
			case <-sctx.Done():
				results <- strategyResult{method: st.method, weight: st.weight, err: sctx.Err()}
			}
		}()
	}

	collected := make([]strategyResult, 0, len(strategies))
	for range strategies {
		select {
		case <-ctx.Done():
			return MatchOutcome{}, ctx.Err()
		case r := <-results:
			if r.err != nil {
				if ctx.Err() != nil {
					return MatchOutcome{}, ctx.Err()
				}
				m.log.WithFields(logrus.Fields{
					"strategy": string(r.method),
					"timeout":  m.cfg.StrategyTimeout.String(),
				}).Warn("strategy deadline exceeded, excluding from fusion")
				continue
			}
			collected = append(collected, r)
		}
	}
	if err := ctx.Err(); err != nil {
		return MatchOutcome{}, err
	}

	return m.fuse(collected, snap), nil
}

// shortCircuit handles the unambiguous fast path: a query of at most two
// words whose feature candidate sets intersect in exactly one product is
// answered at full confidence without running the strategies.
func (m *Matcher) shortCircuit(q ProcessedQuery, snap *Snapshot) (MatchOutcome, bool) {
	if len(q.Features) == 0 || len(strings.Fields(q.NormalizedText)) > 2 {
		return MatchOutcome{}, false
	}

	var common map[string]struct{}
	for _, f := range q.Features {
		ids := snap.Candidates(f)
		if len(ids) == 0 {
			return MatchOutcome{}, false
		}
		if common == nil {
			common = make(map[string]struct{}, len(ids))
			for _, id := range ids {
				common[id] = struct{}{}
			}
			continue
		}
		next := make(map[string]struct{})
		for _, id := range ids {
			if _, ok := common[id]; ok {
				next[id] = struct{}{}
			}
		}
		common = next
	}
	if len(common) != 1 {
		return MatchOutcome{}, false
	}

	var id string
	for id = range common {
	}
	matched := make([]string, 0, len(q.Features))
	for _, f := range q.Features {
		matched = append(matched, f.Key())
	}
	return MatchOutcome{Matches: []MatchResult{{
		ProductID:       id,
		Confidence:      1.0,
		Method:          MethodExact,
		MatchedFeatures: matched,
		Explanation:     "only product carrying every query feature",
	}}}, true
}

// exactScores ratio-scores candidates by the weight of query features they
// carry over the total query feature weight.
func (m *Matcher) exactScores(ctx context.Context, q ProcessedQuery, snap *Snapshot) map[string]strategyScore {
	if len(q.Features) == 0 {
		return nil
	}
	var total float64
	for _, f := range q.Features {
		total += f.Weight
	}
	if total == 0 {
		return nil
	}

	scores := make(map[string]strategyScore)
	for _, f := range q.Features {
		if ctx.Err() != nil {
			return nil
		}
		for _, id := range snap.Candidates(f) {
			s := scores[id]
			s.score += f.Weight / total
			s.matchedFeatures = append(s.matchedFeatures, f.Key())
			scores[id] = s
		}
	}
	for id, s := range scores {
		if s.score > 1 {
			s.score = 1
			scores[id] = s
		}
	}
	return scores
}

// semanticScores compares the locally composed query vector against the
// prebuilt product embeddings. No network I/O happens here.
func (m *Matcher) semanticScores(ctx context.Context, q ProcessedQuery, snap *Snapshot) map[string]strategyScore {
	qv := snap.queryVector(q.Features)
	if qv == nil {
		return nil
	}
	scores := make(map[string]strategyScore)
	for _, id := range snap.All() {
		if ctx.Err() != nil {
			return nil
		}
		pv := snap.embedding(id)
		if pv == nil {
			continue
		}
		sim := cosineSimilarity(qv, pv)
		if sim >= m.cfg.SemanticFloor {
			scores[id] = strategyScore{score: sim}
		}
	}
	return scores
}

// fuzzyScores compares the folded query against folded product text, taking
// the best of whole-string and per-word similarity so one typo in a long
// query still finds its product.
func (m *Matcher) fuzzyScores(ctx context.Context, q ProcessedQuery, snap *Snapshot) map[string]strategyScore {
	folded := Fold(q.NormalizedText)
	if folded == "" {
		return nil
	}
	queryWords := strings.Fields(folded)

	scores := make(map[string]strategyScore)
	for _, id := range snap.All() {
		if ctx.Err() != nil {
			return nil
		}
		target := snap.folded(id)
		targetWords := strings.Fields(target)

		// Average per-word best similarity, so a single shared token
		// cannot carry an otherwise unrelated product.
		var wordSum float64
		for _, qw := range queryWords {
			var wordBest float64
			for _, tw := range targetWords {
				if s := similarity(qw, tw); s > wordBest {
					wordBest = s
				}
			}
			wordSum += wordBest
		}
		best := math.Max(similarity(folded, target), wordSum/float64(len(queryWords)))
		if best >= m.cfg.FuzzyFloor {
			scores[id] = strategyScore{score: best}
		}
	}
	return scores
}

// fuse combines strategy scores with a weighted average over the strategies
// that actually scored each product, then ranks deterministically.
func (m *Matcher) fuse(results []strategyResult, snap *Snapshot) MatchOutcome {
	type agg struct {
		weighted float64
		weight   float64
		methods  []MatchMethod
		matched  map[string]struct{}
	}
	byProduct := make(map[string]*agg)
	for _, r := range results {
		for id, s := range r.scores {
			a, ok := byProduct[id]
			if !ok {
				a = &agg{matched: make(map[string]struct{})}
				byProduct[id] = a
			}
			a.weighted += r.weight * s.score
			a.weight += r.weight
			a.methods = append(a.methods, r.method)
			for _, f := range s.matchedFeatures {
				a.matched[f] = struct{}{}
			}
		}
	}
	if len(byProduct) == 0 {
		return MatchOutcome{NoMatch: true}
	}

	matches := make([]MatchResult, 0, len(byProduct))
	for id, a := range byProduct {
		conf := a.weighted / a.weight
		if conf > 0.99 {
			conf = 0.99
		}
		method := MethodFused
		if len(a.methods) == 1 {
			method = a.methods[0]
		}
		matched := make([]string, 0, len(a.matched))
		for f := range a.matched {
			matched = append(matched, f)
		}
		sort.Strings(matched)
		matches = append(matches, MatchResult{
			ProductID:       id,
			Confidence:      conf,
			Method:          method,
			MatchedFeatures: matched,
			Explanation:     explain(a.methods),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if len(a.MatchedFeatures) != len(b.MatchedFeatures) {
			return len(a.MatchedFeatures) > len(b.MatchedFeatures)
		}
		pa, _ := snap.Get(a.ProductID)
		pb, _ := snap.Get(b.ProductID)
		if pa.InStock() != pb.InStock() {
			return pa.InStock()
		}
		return a.ProductID < b.ProductID
	})

	if m.cfg.TopK > 0 && len(matches) > m.cfg.TopK {
		matches = matches[:m.cfg.TopK]
	}

	highConfidence := 0
	for _, r := range matches {
		if r.Confidence > m.cfg.AmbiguityFloor {
			highConfidence++
		}
	}
	return MatchOutcome{Matches: matches, Ambiguous: highConfidence >= 2}
}

func explain(methods []MatchMethod) string {
	if len(methods) == 1 {
		return string(methods[0]) + " strategy"
	}
	names := make([]string, len(methods))
	for i, mm := range methods {
		names[i] = string(mm)
	}
	sort.Strings(names)
	return fmt.Sprintf("fused from %s", strings.Join(names, "+"))
}

// similarity follows the usual shape: identity, containment by length ratio,
// otherwise normalized Levenshtein. Inputs are expected pre-folded.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(b, a) {
		return float64(len(a)) / float64(len(b))
	}
	if strings.Contains(a, b) {
		return float64(len(b)) / float64(len(a))
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1.0 - float64(levenshteinDistance(ra, rb))/float64(maxLen)
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
