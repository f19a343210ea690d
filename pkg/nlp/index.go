package nlp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Embedder turns text into a dense vector. Implemented by pkg/gemini; a nil
// Embedder means the semantic strategy is unavailable and matching degrades
// to exact+fuzzy.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type indexedProduct struct {
	Product    Product
	SearchText string // normalized name + attribute values
	Folded     string // Fold(SearchText), for fuzzy distance
	Embedding  []float32
}

// indexSnapshot is immutable after construction. Readers grab the current
// snapshot once and work against it for the whole query; a rebuild swaps in
// a fresh one and never touches an old snapshot's maps.
type indexSnapshot struct {
	products  map[string]*indexedProduct
	byFeature map[string]map[string]struct{} // feature key -> product ids
	termVecs  map[string][]float32           // feature key -> vocabulary embedding
	builtAt   time.Time
}

// CatalogIndex holds the searchable product snapshot. Reads are lock-free;
// Build/Upsert/Remove serialize behind a mutex and publish via the atomic
// pointer, so in-flight queries always see a consistent snapshot.
type CatalogIndex struct {
	extractor *Extractor
	embedder  Embedder

	mu       sync.Mutex
	snapshot atomic.Pointer[indexSnapshot]
	now      func() time.Time
}

func NewCatalogIndex(extractor *Extractor, embedder Embedder) *CatalogIndex {
	idx := &CatalogIndex{
		extractor: extractor,
		embedder:  embedder,
		now:       time.Now,
	}
	idx.snapshot.Store(&indexSnapshot{
		products:  map[string]*indexedProduct{},
		byFeature: map[string]map[string]struct{}{},
		termVecs:  map[string][]float32{},
	})
	return idx
}

// Build replaces the whole snapshot from the given products. Revisions carry
// over: a product already present keeps a revision at least as high as before,
// so cached references to older revisions are detectably stale.
func (x *CatalogIndex) Build(ctx context.Context, products []Product) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	prev := x.snapshot.Load()
	next := &indexSnapshot{
		products:  make(map[string]*indexedProduct, len(products)),
		byFeature: make(map[string]map[string]struct{}),
		termVecs:  prev.termVecs,
		builtAt:   x.now(),
	}

	if x.embedder != nil && len(next.termVecs) == 0 {
		vecs, err := x.embedVocabulary(ctx)
		if err != nil {
			return fmt.Errorf("embedding feature vocabulary: %w", err)
		}
		next.termVecs = vecs
	}

	for _, p := range products {
		if old, ok := prev.products[p.ID]; ok && p.Revision <= old.Product.Revision {
			p.Revision = old.Product.Revision + 1
		}
		if p.Revision == 0 {
			p.Revision = 1
		}
		ip, err := x.indexProduct(ctx, p, next.termVecs)
		if err != nil {
			return err
		}
		next.insert(ip)
	}

	x.snapshot.Store(next)
	return nil
}

// Upsert adds or replaces one product in a fresh snapshot. The revision is
// always bumped past the previously indexed one, even if the caller reuses a
// stale Product value.
func (x *CatalogIndex) Upsert(ctx context.Context, p Product) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	prev := x.snapshot.Load()
	if old, ok := prev.products[p.ID]; ok && p.Revision <= old.Product.Revision {
		p.Revision = old.Product.Revision + 1
	}
	if p.Revision == 0 {
		p.Revision = 1
	}

	ip, err := x.indexProduct(ctx, p, prev.termVecs)
	if err != nil {
		return err
	}

	next := prev.clone(x.now())
	next.insert(ip)
	x.snapshot.Store(next)
	return nil
}

// Remove drops a product. Removing an absent id is a no-op.
func (x *CatalogIndex) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	prev := x.snapshot.Load()
	if _, ok := prev.products[id]; !ok {
		return
	}
	next := prev.clone(x.now())
	delete(next.products, id)
	for key, ids := range next.byFeature {
		if _, ok := ids[id]; ok {
			rest := make(map[string]struct{}, len(ids)-1)
			for pid := range ids {
				if pid != id {
					rest[pid] = struct{}{}
				}
			}
			if len(rest) == 0 {
				delete(next.byFeature, key)
			} else {
				next.byFeature[key] = rest
			}
		}
	}
	x.snapshot.Store(next)
}

// Snapshot returns the current immutable view for a single query.
func (x *CatalogIndex) Snapshot() *Snapshot {
	return &Snapshot{s: x.snapshot.Load()}
}

// Revision reports the live revision of a product, for cache validation.
func (x *CatalogIndex) Revision(id string) (int64, bool) {
	ip, ok := x.snapshot.Load().products[id]
	if !ok {
		return 0, false
	}
	return ip.Product.Revision, true
}

func (x *CatalogIndex) indexProduct(ctx context.Context, p Product, termVecs map[string][]float32) (*indexedProduct, error) {
	var parts []string
	parts = append(parts, p.Name)
	attrKeys := make([]string, 0, len(p.Attributes))
	for k := range p.Attributes {
		attrKeys = append(attrKeys, k)
	}
	sort.Strings(attrKeys)
	for _, k := range attrKeys {
		parts = append(parts, p.Attributes[k])
	}
	searchText := Normalize(strings.Join(parts, " "))

	if len(p.Features) == 0 {
		p.Features = x.extractor.Extract(searchText)
	}
	p.UpdatedAt = x.now()

	ip := &indexedProduct{
		Product:    p,
		SearchText: searchText,
		Folded:     Fold(searchText),
	}
	if len(termVecs) > 0 {
		ip.Embedding = meanVector(p.Features, termVecs)
	}
	return ip, nil
}

// embedVocabulary embeds each term of the feature tables once at build time.
// Query vectors are later composed locally from these, so no network call
// happens on the query path.
func (x *CatalogIndex) embedVocabulary(ctx context.Context) (map[string][]float32, error) {
	vecs := make(map[string][]float32)
	for _, rule := range x.extractor.rules {
		if _, done := vecs[rule.Key()]; done {
			continue
		}
		v, err := x.embedder.EmbedText(ctx, string(rule.Category)+" "+rule.Name)
		if err != nil {
			return nil, err
		}
		vecs[rule.Key()] = v
	}
	return vecs, nil
}

func (s *indexSnapshot) insert(ip *indexedProduct) {
	s.products[ip.Product.ID] = ip
	for _, f := range ip.Product.Features {
		key := f.Key()
		ids, ok := s.byFeature[key]
		if !ok {
			ids = make(map[string]struct{})
			s.byFeature[key] = ids
		}
		ids[ip.Product.ID] = struct{}{}
	}
}

func (s *indexSnapshot) clone(builtAt time.Time) *indexSnapshot {
	next := &indexSnapshot{
		products:  make(map[string]*indexedProduct, len(s.products)+1),
		byFeature: make(map[string]map[string]struct{}, len(s.byFeature)),
		termVecs:  s.termVecs,
		builtAt:   builtAt,
	}
	for id, ip := range s.products {
		next.products[id] = ip
	}
	for key, ids := range s.byFeature {
		copied := make(map[string]struct{}, len(ids))
		for id := range ids {
			copied[id] = struct{}{}
		}
		next.byFeature[key] = copied
	}
	return next
}

// Snapshot is the read-side view handed to the matcher. All methods are safe
// for concurrent use and never observe later index mutations.
type Snapshot struct {
	s *indexSnapshot
}

// Candidates returns the ids of products carrying the given feature.
func (sn *Snapshot) Candidates(f ProductFeature) []string {
	ids := sn.s.byFeature[f.Key()]
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// All returns every product id in the snapshot, sorted.
func (sn *Snapshot) All() []string {
	out := make([]string, 0, len(sn.s.products))
	for id := range sn.s.products {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (sn *Snapshot) Get(id string) (Product, bool) {
	ip, ok := sn.s.products[id]
	if !ok {
		return Product{}, false
	}
	return ip.Product, true
}

func (sn *Snapshot) Len() int { return len(sn.s.products) }

// BuiltAt is when the snapshot was published; the matcher degrades to
// fuzzy-only matching past its staleness bound.
func (sn *Snapshot) BuiltAt() time.Time { return sn.s.builtAt }

// HasEmbeddings reports whether the semantic strategy can run.
func (sn *Snapshot) HasEmbeddings() bool { return len(sn.s.termVecs) > 0 }

func (sn *Snapshot) embedding(id string) []float32 {
	if ip, ok := sn.s.products[id]; ok {
		return ip.Embedding
	}
	return nil
}

func (sn *Snapshot) folded(id string) string {
	if ip, ok := sn.s.products[id]; ok {
		return ip.Folded
	}
	return ""
}

func (sn *Snapshot) searchText(id string) string {
	if ip, ok := sn.s.products[id]; ok {
		return ip.SearchText
	}
	return ""
}

// queryVector composes the local query embedding as the mean of the query
// features' vocabulary vectors. Nil when none of the features are known.
func (sn *Snapshot) queryVector(features []ProductFeature) []float32 {
	return meanVector(features, sn.s.termVecs)
}

func meanVector(features []ProductFeature, termVecs map[string][]float32) []float32 {
	var sum []float32
	n := 0
	for _, f := range features {
		v, ok := termVecs[f.Key()]
		if !ok {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(v))
		}
		for i := range v {
			sum[i] += v[i]
		}
		n++
	}
	if n == 0 {
		return nil
	}
	inv := 1 / float32(n)
	for i := range sum {
		sum[i] *= inv
	}
	return sum
}
