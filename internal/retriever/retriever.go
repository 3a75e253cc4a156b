package retriever

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/failmem-mcp/internal/embedder"
	"github.com/dshills/failmem-mcp/internal/fingerprint"
	"github.com/dshills/failmem-mcp/internal/similarity"
	"github.com/dshills/failmem-mcp/internal/storage"
	"github.com/dshills/failmem-mcp/pkg/types"
)

// Retrieval defaults
const (
	DefaultLimit       = 10
	MaxLimit           = 100
	DefaultMinSemantic = 0.7
	DefaultMinLexical  = 0.3

	// The lexical candidate fetch oversamples by this factor to
	// compensate for post-filtering against the similarity floor.
	oversampleFactor = 5

	queryCacheSize = 1000
)

// SearchOptions scope and bound a similarity search. Zero values select
// the defaults above.
type SearchOptions struct {
	Limit       int
	Project     string
	Category    string
	Severity    string
	MinSemantic float64
	MinLexical  float64
	UseCache    bool
	CacheTTL    time.Duration
}

// cacheEntry pairs cached matches with their expiry
type cacheEntry struct {
	matches   []types.Match
	expiresAt time.Time
}

// Retriever runs the retrieval strategies against the store, fuses their
// results, and ranks the merged list. A nil embedder disables the
// semantic strategy; search then degrades to exact + lexical.
type Retriever struct {
	store    storage.Store
	embedder embedder.Embedder
	weights  ScoringWeights
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// New creates a Retriever with the default relevance weights.
func New(store storage.Store, emb embedder.Embedder) *Retriever {
	return NewWithWeights(store, emb, DefaultScoringWeights())
}

// NewWithWeights creates a Retriever with custom relevance weights.
func NewWithWeights(store storage.Store, emb embedder.Embedder, weights ScoringWeights) *Retriever {
	cache, err := lru.New[[32]byte, *cacheEntry](queryCacheSize)
	if err != nil {
		// Only possible with a non-positive size
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}
	return &Retriever{
		store:    store,
		embedder: emb,
		weights:  weights,
		cache:    cache,
	}
}

// scored is the pre-hydration fusion unit: an error identity with the
// best score seen so far and the kind of the first strategy that found it.
type scored struct {
	errorID int64
	score   float64
	kind    types.MatchKind
	record  *storage.ErrorRecord // set when the finding strategy already had it
}

// FindSimilar returns an ordered, deduplicated list of stored errors
// similar to the query, each with its solutions ordered by success rate.
//
// Strategies run in order: exact fingerprint match (short-circuits the
// lexical fallback but not semantic search), embedding cosine search when
// a provider is configured, then normalized-text similarity over a
// recency-bounded candidate set. Results are merged by error identity:
// the first strategy to find an error fixes its match kind, the highest
// score wins.
func (r *Retriever) FindSimilar(ctx context.Context, query string, opts SearchOptions) ([]types.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	applyDefaults(&opts)

	if opts.UseCache {
		if matches, ok := r.checkCache(query, opts); ok {
			return matches, nil
		}
	}

	// The fingerprint needs a category; fall back to classification when
	// the caller didn't scope the search.
	category := opts.Category
	if category == "" {
		category = fingerprint.Classify(query, fingerprint.CategoryRuntime)
	}

	fused := make(map[int64]*scored)
	order := make([]int64, 0)

	merge := func(c scored) {
		existing, ok := fused[c.errorID]
		if !ok {
			copied := c
			fused[c.errorID] = &copied
			order = append(order, c.errorID)
			return
		}
		if c.score > existing.score {
			existing.score = c.score
		}
		if existing.record == nil {
			existing.record = c.record
		}
	}

	exact, err := r.exactMatch(ctx, query, category)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		merge(*exact)
	}

	if r.embedder != nil {
		semantic, err := r.semanticMatches(ctx, query, opts.MinSemantic)
		if err != nil {
			// Provider failure degrades to lexical-only; it never fails
			// the search.
			log.Printf("semantic search unavailable: %v", err)
		} else {
			for _, c := range semantic {
				merge(c)
			}
		}
	}

	// An exact hit makes the lexical scan redundant.
	if exact == nil {
		lexical, err := r.lexicalMatches(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		for _, c := range lexical {
			merge(c)
		}
	}

	candidates := make([]*scored, 0, len(order))
	for _, id := range order {
		candidates = append(candidates, fused[id])
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	matches, err := r.hydrate(ctx, candidates)
	if err != nil {
		return nil, err
	}

	if opts.UseCache {
		r.storeInCache(query, opts, matches)
	}
	return matches, nil
}

// FindByTags is the tag-driven entry point: all errors carrying any of
// the given tags, most recently seen first, with similarity undefined.
func (r *Retriever) FindByTags(ctx context.Context, tags []string) ([]types.Match, error) {
	records, err := r.store.FindErrorsByTags(ctx, tags)
	if err != nil {
		return nil, err
	}

	matches := make([]types.Match, 0, len(records))
	for _, rec := range records {
		solutions, err := r.store.ListSolutions(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		matches = append(matches, types.Match{
			Error:     rec,
			Solutions: solutions,
			Kind:      types.MatchTag,
		})
	}
	return matches, nil
}

// exactMatch looks up the query's fingerprint. A hit is definitionally
// similarity 1.0.
func (r *Retriever) exactMatch(ctx context.Context, query, category string) (*scored, error) {
	fp := fingerprint.Fingerprint(query, category)
	rec, err := r.store.GetErrorByFingerprint(ctx, fp)
	if err == storage.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &scored{errorID: rec.ID, score: 1.0, kind: types.MatchExact, record: rec}, nil
}

// semanticMatches embeds the query and cosine-compares it against every
// stored embedding of matching dimensionality. Mismatched dimensions and
// undecodable buffers are skipped, not errors.
func (r *Retriever) semanticMatches(ctx context.Context, query string, floor float64) ([]scored, error) {
	queryEmb, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	stored, err := r.store.ListEmbeddings(ctx, queryEmb.Dimension)
	if err != nil {
		return nil, err
	}

	results := make([]scored, 0)
	for _, se := range stored {
		vector, err := similarity.Unpack(se.Vector)
		if err != nil {
			continue
		}
		cos, err := similarity.Cosine(queryEmb.Vector, vector)
		if err != nil {
			continue
		}
		if cos < floor {
			continue
		}
		results = append(results, scored{errorID: se.ErrorID, score: cos, kind: types.MatchSemantic})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })
	return results, nil
}

// lexicalMatches scores a recency-bounded, oversampled candidate set
// with combined token/edit similarity over normalized messages.
func (r *Retriever) lexicalMatches(ctx context.Context, query string, opts SearchOptions) ([]scored, error) {
	normalized := fingerprint.Normalize(query)

	candidates, err := r.store.ListErrors(ctx, storage.ErrorFilters{
		Project:  opts.Project,
		Category: opts.Category,
		Severity: opts.Severity,
		Limit:    opts.Limit * oversampleFactor,
	})
	if err != nil {
		return nil, err
	}

	results := make([]scored, 0)
	for _, rec := range candidates {
		sim := similarity.Combined(normalized, rec.Normalized)
		if sim < opts.MinLexical {
			continue
		}
		results = append(results, scored{errorID: rec.ID, score: sim, kind: types.MatchLexical, record: rec})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })
	return results, nil
}

// hydrate turns fused candidates into full matches: error records with
// tags, plus rate-ordered solutions.
func (r *Retriever) hydrate(ctx context.Context, candidates []*scored) ([]types.Match, error) {
	matches := make([]types.Match, 0, len(candidates))
	for _, c := range candidates {
		rec := c.record
		if rec == nil {
			var err error
			rec, err = r.store.GetErrorByID(ctx, c.errorID)
			if err == storage.ErrNotFound {
				continue // Deleted between scan and hydration
			}
			if err != nil {
				return nil, err
			}
		}
		solutions, err := r.store.ListSolutions(ctx, c.errorID)
		if err != nil {
			return nil, err
		}
		matches = append(matches, types.Match{
			Error:     rec,
			Solutions: solutions,
			Score:     c.score,
			Kind:      c.kind,
		})
	}
	return matches, nil
}

func applyDefaults(opts *SearchOptions) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Limit > MaxLimit {
		opts.Limit = MaxLimit
	}
	if opts.MinSemantic == 0 {
		opts.MinSemantic = DefaultMinSemantic
	}
	if opts.MinLexical == 0 {
		opts.MinLexical = DefaultMinLexical
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = time.Hour
	}
}

// Query cache

func cacheKey(query string, opts SearchOptions) [32]byte {
	var b strings.Builder
	b.WriteString(query)
	fmt.Fprintf(&b, "|%d|%s|%s|%s|%.3f|%.3f",
		opts.Limit, opts.Project, opts.Category, opts.Severity,
		opts.MinSemantic, opts.MinLexical)
	return sha256.Sum256([]byte(b.String()))
}

func (r *Retriever) checkCache(query string, opts SearchOptions) ([]types.Match, bool) {
	key := cacheKey(query, opts)

	r.cacheMu.RLock()
	entry, found := r.cache.Get(key)
	if !found {
		r.cacheMu.RUnlock()
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		r.cacheMu.RUnlock()
		r.cacheMu.Lock()
		r.cache.Remove(key)
		r.cacheMu.Unlock()
		return nil, false
	}
	matches := make([]types.Match, len(entry.matches))
	copy(matches, entry.matches)
	r.cacheMu.RUnlock()
	return matches, true
}

func (r *Retriever) storeInCache(query string, opts SearchOptions, matches []types.Match) {
	key := cacheKey(query, opts)
	stored := make([]types.Match, len(matches))
	copy(stored, matches)

	r.cacheMu.Lock()
	r.cache.Add(key, &cacheEntry{matches: stored, expiresAt: time.Now().Add(opts.CacheTTL)})
	r.cacheMu.Unlock()
}

// InvalidateCache drops all cached query results. Called after writes
// that would make cached rankings stale.
func (r *Retriever) InvalidateCache() {
	r.cacheMu.Lock()
	r.cache.Purge()
	r.cacheMu.Unlock()
}
