// Package catalog defines the vector-searchable movie catalog contract.
// The catalog owns one record per movie with embeddings, localized text
// fields, ratings, and popularity; the core consumes it through query
// operations only.
package catalog

import "context"

// Locale selects which localized fields are used for filtering and
// projection.
type Locale string

const (
	LocaleRu Locale = "ru"
	LocaleEn Locale = "en"
)

// ParseLocale normalizes a user-supplied locale string, defaulting to Russian.
func ParseLocale(s string) Locale {
	if s == string(LocaleEn) {
		return LocaleEn
	}
	return LocaleRu
}

// MovieRecord is the canonical catalog entry. Immutable from the core's
// perspective except for the ensure-present write-back performed when a
// record is first composed from a raw metadata fetch.
type MovieRecord struct {
	KpID   int64 `json:"kp_id"`
	TmdbID int64 `json:"tmdb_id,omitempty"`
	ImdbID int64 `json:"imdb_id,omitempty"`

	TitleRu    string `json:"title_ru"`
	TitleEn    string `json:"title_en"`
	OverviewRu string `json:"overview_ru"`
	OverviewEn string `json:"overview_en"`

	GenresRu    []string `json:"genres_ru"`
	GenresEn    []string `json:"genres_en"`
	CountriesRu []string `json:"countries_ru"`
	CountriesEn []string `json:"countries_en"`

	RatingKp   float64 `json:"rating_kp"`
	RatingImdb float64 `json:"rating_imdb"`
	VotesKp    int64   `json:"votes_kp"`
	VotesImdb  int64   `json:"votes_imdb"`

	Year            int     `json:"year"`
	MovieLength     int     `json:"movie_length"`
	PopularityScore float64 `json:"popularity_score"`

	PosterRu string `json:"poster_ru"`
	PosterEn string `json:"poster_en"`

	// PageContent is the free-text blob (title, synopsis, tags) used for
	// keyword matching and stand-up detection.
	PageContent string `json:"page_content"`
}

// Title returns the localized title for the given locale.
func (m *MovieRecord) Title(locale Locale) string {
	if locale == LocaleEn && m.TitleEn != "" {
		return m.TitleEn
	}
	return m.TitleRu
}

// Genres returns the localized genre list for the given locale.
func (m *MovieRecord) Genres(locale Locale) []string {
	if locale == LocaleEn {
		return m.GenresEn
	}
	return m.GenresRu
}

// Filter restricts catalog queries; zero values mean "no constraint"
// except for the year range which always applies.
type Filter struct {
	Locale     Locale
	StartYear  int
	EndYear    int
	RatingKp   float64
	RatingImdb float64
	Genres     []string // contains-any on the locale genre field
	Cast       []string // contains-any
	Directors  []string // contains-any
}

// ScoredRecord is a MovieRecord plus query-relative ordering metadata.
// Distance is set by nearest-neighbor queries, Score by keyword queries.
type ScoredRecord struct {
	*MovieRecord
	Distance float64
	Score    float64
}

// Store is the query interface to the movie catalog. Implementations are
// expected to bound their own latency; errors are degraded to empty result
// sets by callers.
type Store interface {
	// Hybrid blends vector similarity and keyword match. alpha is the
	// vector weight in [0, 1]: 0 is keyword-only, 1 is vector-only.
	Hybrid(ctx context.Context, query string, vector []float32, alpha float64, filter *Filter, limit int) ([]*MovieRecord, error)

	// FetchByFilter returns records matching the filter with no text query.
	FetchByFilter(ctx context.Context, filter *Filter, limit int) ([]*MovieRecord, error)

	// NearVector returns the nearest neighbors of the given vector with
	// cosine distance metadata, closest first.
	NearVector(ctx context.Context, vector []float32, filter *Filter, limit int) ([]*ScoredRecord, error)

	// KeywordSearch matches text against the locale title field and
	// returns records with a relevance score, best first.
	KeywordSearch(ctx context.Context, text string, locale Locale, limit int) ([]*ScoredRecord, error)

	// FetchVector returns the stored embedding for a catalog id.
	FetchVector(ctx context.Context, kpID int64) ([]float32, error)

	// EnsureMovie inserts the record if no row with its kp id exists.
	EnsureMovie(ctx context.Context, record *MovieRecord) error
}
