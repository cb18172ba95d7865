package recommend

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/autogenz/movieai/catalog"
	"github.com/autogenz/movieai/internal/metrics"
)

// Embedder converts text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Query is the resolved input to the engine, typically produced by the
// conversational agent.
type Query struct {
	// Query is free-text describing what the user wants.
	Query string
	// MovieName, when set, identifies a concrete title: alone it routes to
	// title lookup, combined with Query it seeds similarity search.
	MovieName string

	Genres    []string
	Cast      []string
	Directors []string

	StartYear  int // inclusive, default 1900
	EndYear    int // inclusive, default 2025
	RatingKp   float64
	RatingImdb float64

	// SuggestedTitles are concrete seed titles proposed by the agent; they
	// bias retrieval toward the taste cluster around their mean embedding.
	SuggestedTitles []string

	Locale catalog.Locale

	// ExcludeKpIDs are catalog ids the user has already seen. Never mutated.
	ExcludeKpIDs map[int64]struct{}

	Limit int
}

func (q *Query) filter() *catalog.Filter {
	startYear := q.StartYear
	if startYear <= 0 {
		startYear = 1900
	}
	endYear := q.EndYear
	if endYear <= 0 {
		endYear = 2025
	}
	return &catalog.Filter{
		Locale:     q.Locale,
		StartYear:  startYear,
		EndYear:    endYear,
		RatingKp:   q.RatingKp,
		RatingImdb: q.RatingImdb,
		Genres:     q.Genres,
		Cast:       q.Cast,
		Directors:  q.Directors,
	}
}

func (q *Query) excluded(kpID int64) bool {
	_, ok := q.ExcludeKpIDs[kpID]
	return ok
}

// Candidate is a catalog record plus the value it was ranked by. The
// ordering value is discarded after sorting.
type Candidate struct {
	*catalog.MovieRecord
	Score            float64
	AdjustedDistance float64
}

// Engine issues filtered, hybrid, and vector queries against the catalog
// and returns ranked candidate lists. Any catalog or embedding failure is
// logged and degraded to an empty result; callers treat an empty list as
// "no results", not as an error.
type Engine struct {
	store    catalog.Store
	embedder Embedder
	config   Config
}

// NewEngine creates an engine over the given catalog and embedder.
func NewEngine(store catalog.Store, embedder Embedder, config Config) *Engine {
	return &Engine{store: store, embedder: embedder, config: config}
}

const (
	searchAlpha    = 0.3  // exact-title lookups: keyword dominant
	discoveryAlpha = 0.95 // discovery: vector dominant
	topKSearch     = 30
)

// Search runs a keyword-dominant hybrid query for "find this exact title"
// style lookups, ranked by popularity.
func (e *Engine) Search(ctx context.Context, text string, locale catalog.Locale) []*catalog.MovieRecord {
	defer e.observe("search", time.Now())

	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		slog.Warn("recommend: embedding failed for search", "error", err)
		metrics.RetrievalCalls.WithLabelValues("search", "error").Inc()
		return nil
	}

	records, err := e.store.Hybrid(ctx, text, vector, searchAlpha, &catalog.Filter{Locale: locale}, topKSearch)
	if err != nil {
		slog.Warn("recommend: hybrid search failed", "error", err)
		metrics.RetrievalCalls.WithLabelValues("search", "error").Inc()
		return nil
	}

	kept := records[:0]
	for _, r := range records {
		if r.PopularityScore >= e.config.MinPopularity {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].PopularityScore > kept[j].PopularityScore
	})
	if len(kept) > e.config.SearchLimit {
		kept = kept[:e.config.SearchLimit]
	}
	metrics.RetrievalCalls.WithLabelValues("search", "ok").Inc()
	return kept
}

// Recommend is the primary discovery path. Depending on the query shape it
// routes to seed-title retrieval, title lookup, similarity search, or a
// filtered hybrid query.
func (e *Engine) Recommend(ctx context.Context, q *Query) []*Candidate {
	defer e.observe("recommend", time.Now())

	switch {
	case len(q.SuggestedTitles) > 0:
		return e.recommendBySeedTitles(ctx, q)

	case q.MovieName != "" && q.Query == "":
		results := e.FindMoviesByTitle(ctx, q.MovieName, q.Locale, q.Genres)
		candidates := make([]*Candidate, 0, len(results))
		for _, r := range results {
			if q.excluded(r.KpID) {
				continue
			}
			candidates = append(candidates, &Candidate{MovieRecord: r.MovieRecord, Score: r.Score})
		}
		return e.truncate(candidates, q.Limit)

	case q.MovieName != "" && q.Query != "":
		results := e.FindMoviesByTitle(ctx, q.MovieName, q.Locale, q.Genres)
		if len(results) == 0 {
			return nil
		}
		return e.RecommendSimilar(ctx, results[0].KpID, q)

	default:
		return e.recommendHybrid(ctx, q)
	}
}

func (e *Engine) recommendHybrid(ctx context.Context, q *Query) []*Candidate {
	filter := q.filter()

	var records []*catalog.MovieRecord
	var err error
	if q.Query != "" {
		var vector []float32
		vector, err = e.embedder.Embed(ctx, q.Query)
		if err != nil {
			slog.Warn("recommend: embedding failed", "error", err)
			metrics.RetrievalCalls.WithLabelValues("recommend", "error").Inc()
			return nil
		}
		records, err = e.store.Hybrid(ctx, q.Query, vector, discoveryAlpha, filter, e.config.CandidatePool)
	} else {
		records, err = e.store.FetchByFilter(ctx, filter, e.config.NoQueryCandidatePool)
	}
	if err != nil {
		slog.Warn("recommend: catalog query failed", "error", err)
		metrics.RetrievalCalls.WithLabelValues("recommend", "error").Inc()
		return nil
	}

	candidates := make([]*Candidate, 0, len(records))
	for _, r := range records {
		if q.excluded(r.KpID) {
			continue
		}
		if e.config.hasGenreConflict(r.Genres(q.Locale), q.Genres) {
			continue
		}
		score := e.config.DynamicScore(r)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, &Candidate{MovieRecord: r, Score: score})
	}

	e.rankByPopularity(candidates)
	metrics.RetrievalCalls.WithLabelValues("recommend", "ok").Inc()
	return e.truncate(candidates, q.Limit)
}

// recommendBySeedTitles resolves the agent's concrete title suggestions,
// averages their embeddings, and retrieves the neighborhood of that mean
// vector. The seeds themselves are kept and unioned with the neighbors.
func (e *Engine) recommendBySeedTitles(ctx context.Context, q *Query) []*Candidate {
	filter := q.filter()

	seen := make(map[int64]struct{})
	var resolved []*catalog.MovieRecord
	var vectors [][]float32

	for _, title := range q.SuggestedTitles {
		results := e.FindMoviesByTitle(ctx, title, q.Locale, q.Genres)
		if len(results) == 0 {
			continue
		}
		top := results[0]
		if _, ok := seen[top.KpID]; ok {
			continue
		}
		seen[top.KpID] = struct{}{}
		resolved = append(resolved, top.MovieRecord)

		vector, err := e.store.FetchVector(ctx, top.KpID)
		if err != nil {
			slog.Warn("recommend: fetch vector failed for seed", "kp_id", top.KpID, "error", err)
			continue
		}
		vectors = append(vectors, vector)
	}

	if len(vectors) > 0 {
		mean := meanVector(vectors)
		neighbors, err := e.store.NearVector(ctx, mean, filter, e.config.CandidatePool)
		if err != nil {
			slog.Warn("recommend: near-vector query failed", "error", err)
		} else {
			for _, n := range neighbors {
				if _, ok := seen[n.KpID]; ok {
					continue
				}
				seen[n.KpID] = struct{}{}
				resolved = append(resolved, n.MovieRecord)
			}
		}
	}

	candidates := make([]*Candidate, 0, len(resolved))
	for _, r := range resolved {
		if q.excluded(r.KpID) {
			continue
		}
		candidates = append(candidates, &Candidate{MovieRecord: r, Score: e.config.DynamicScore(r)})
	}

	e.rankByPopularity(candidates)
	metrics.RetrievalCalls.WithLabelValues("recommend_seeds", "ok").Inc()
	return e.truncate(candidates, q.Limit)
}

// RecommendSimilar returns the neighbors of the source record's own
// embedding, reranked by quality-adjusted distance.
func (e *Engine) RecommendSimilar(ctx context.Context, sourceID int64, q *Query) []*Candidate {
	defer e.observe("recommend_similar", time.Now())

	vector, err := e.store.FetchVector(ctx, sourceID)
	if err != nil {
		slog.Warn("recommend: fetch vector failed", "kp_id", sourceID, "error", err)
		metrics.RetrievalCalls.WithLabelValues("recommend_similar", "error").Inc()
		return nil
	}

	var filter *catalog.Filter
	if q != nil {
		filter = q.filter()
	}

	// Over-fetch by one: the source itself comes back at distance zero.
	neighbors, err := e.store.NearVector(ctx, vector, filter, e.config.CandidatePool+1)
	if err != nil {
		slog.Warn("recommend: near-vector query failed", "kp_id", sourceID, "error", err)
		metrics.RetrievalCalls.WithLabelValues("recommend_similar", "error").Inc()
		return nil
	}

	locale := catalog.LocaleRu
	if q != nil {
		locale = q.Locale
	}

	var sourceGenres []string
	for _, n := range neighbors {
		if n.KpID == sourceID {
			sourceGenres = n.Genres(locale)
			break
		}
	}

	candidates := make([]*Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		if n.KpID == sourceID {
			continue
		}
		if q != nil && q.excluded(n.KpID) {
			continue
		}
		if e.config.hasGenreConflict(n.Genres(locale), sourceGenres) {
			continue
		}
		score := e.config.DynamicScore(n.MovieRecord)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, &Candidate{
			MovieRecord:      n.MovieRecord,
			Score:            score,
			AdjustedDistance: e.config.AdjustedDistance(n.Distance, score),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AdjustedDistance < candidates[j].AdjustedDistance
	})
	metrics.RetrievalCalls.WithLabelValues("recommend_similar", "ok").Inc()

	limit := e.config.RecommendLimit
	if q != nil && q.Limit > 0 {
		limit = q.Limit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// FindMoviesByTitle looks a title up in the locale title field. A weak top
// match is treated as "not found" rather than returned; exact normalized
// matches are promoted above the rest.
func (e *Engine) FindMoviesByTitle(ctx context.Context, title string, locale catalog.Locale, genres []string) []*catalog.ScoredRecord {
	defer e.observe("find_by_title", time.Now())

	results, err := e.store.KeywordSearch(ctx, title, locale, topKSearch)
	if err != nil {
		slog.Warn("recommend: keyword search failed", "title", title, "error", err)
		metrics.RetrievalCalls.WithLabelValues("find_by_title", "error").Inc()
		return nil
	}

	if len(genres) > 0 {
		kept := results[:0]
		for _, r := range results {
			if containsAny(lowerAll(r.Genres(locale)), genres) {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	if len(results) == 0 || results[0].Score < e.config.MinTitleScore {
		return nil
	}

	normalized := normalizeTitle(title)
	sort.SliceStable(results, func(i, j int) bool {
		iExact := normalizeTitle(results[i].Title(locale)) == normalized
		jExact := normalizeTitle(results[j].Title(locale)) == normalized
		if iExact != jExact {
			return iExact
		}
		return results[i].Score > results[j].Score
	})

	metrics.RetrievalCalls.WithLabelValues("find_by_title", "ok").Inc()
	return results
}

func (e *Engine) rankByPopularity(candidates []*Candidate) {
	trusted := false
	for _, c := range candidates {
		if c.PopularityScore > 0 {
			trusted = true
			break
		}
	}
	if trusted {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].PopularityScore > candidates[j].PopularityScore
		})
		return
	}
	// No trusted popularity field: fall back to the dynamic quality score.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

func (e *Engine) truncate(candidates []*Candidate, limit int) []*Candidate {
	if limit <= 0 {
		limit = e.config.RecommendLimit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func (e *Engine) observe(operation string, start time.Time) {
	metrics.RetrievalDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func meanVector(vectors [][]float32) []float32 {
	mean := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i := range mean {
			mean[i] += v[i]
		}
	}
	for i := range mean {
		mean[i] /= float32(len(vectors))
	}
	return mean
}

// normalizeTitle lowers case and collapses runs of whitespace so cosmetic
// differences never break exact-match promotion.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
