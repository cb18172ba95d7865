// Package stream converts ranked candidates into fully hydrated,
// locale-projected, deduplicated movie events emitted one at a time.
package stream

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/autogenz/movieai/catalog"
	"github.com/autogenz/movieai/internal/metrics"
	"github.com/autogenz/movieai/store"
)

// hydrateTimeout bounds each local-store lookup and each provider fetch
// so one slow candidate cannot stall the stream.
const hydrateTimeout = 5 * time.Second

// EventType discriminates pipeline output events.
type EventType string

const (
	EventMovie EventType = "movie"
	EventDone  EventType = "done"
)

// MovieEvent is the locale-projected display record for one movie.
type MovieEvent struct {
	Type            EventType `json:"type"`
	KpID            int64     `json:"movie_id,omitempty"`
	Title           string    `json:"title,omitempty"`
	OriginalTitle   string    `json:"original_title,omitempty"`
	Overview        string    `json:"overview,omitempty"`
	Year            int       `json:"year,omitempty"`
	Genres          []string  `json:"genres,omitempty"`
	Countries       []string  `json:"countries,omitempty"`
	RatingKp        float64   `json:"rating_kp,omitempty"`
	RatingImdb      float64   `json:"rating_imdb,omitempty"`
	MovieLength     int       `json:"movie_length,omitempty"`
	PosterURL       string    `json:"poster_url,omitempty"`
	BackgroundColor string    `json:"background_color,omitempty"`
}

// Candidate is one ranked retrieval result awaiting hydration. Records
// sourced from the vector store arrive complete; legacy paths supply a
// bare id that must be resolved before emission.
type Candidate struct {
	Record *catalog.MovieRecord
	KpID   int64
}

func (c Candidate) kpID() int64 {
	if c.Record != nil {
		return c.Record.KpID
	}
	return c.KpID
}

// MetadataStore is the subset of the local store the pipeline needs.
type MetadataStore interface {
	GetMovieByKpID(ctx context.Context, kpID int64) (*store.Movie, error)
	UpsertMovie(ctx context.Context, movie *store.Movie) (*store.Movie, error)
}

// MetadataProvider fetches records missing from the local store.
type MetadataProvider interface {
	GetByKpID(ctx context.Context, kpID int64) (*store.Movie, error)
}

// CatalogWriter receives provider-fetched records so future vector
// queries can retrieve them. May be nil when no catalog is attached.
type CatalogWriter interface {
	EnsureMovie(ctx context.Context, record *catalog.MovieRecord) error
}

// Options configure one streaming session.
type Options struct {
	Locale catalog.Locale
	// ExcludeSet is checked again here even though retrieval already
	// filters it. A hit indicates an upstream gap and is logged.
	ExcludeSet map[int64]struct{}
}

// Pipeline hydrates and emits candidates for one or more sessions.
// It holds no per-session state; the seen-set lives in each Stream call.
type Pipeline struct {
	store    MetadataStore
	provider MetadataProvider
	catalog  CatalogWriter
}

func New(metadataStore MetadataStore, provider MetadataProvider, catalogWriter CatalogWriter) *Pipeline {
	return &Pipeline{store: metadataStore, provider: provider, catalog: catalogWriter}
}

// Stream emits one MovieEvent per hydratable, non-duplicate, non-excluded
// candidate, in input order, then a terminal done event. The channel is
// closed when the stream ends or ctx is cancelled.
func (p *Pipeline) Stream(ctx context.Context, candidates []Candidate, opts Options) <-chan MovieEvent {
	events := make(chan MovieEvent)
	go func() {
		defer close(events)

		seen := make(map[int64]struct{})
		for _, candidate := range candidates {
			if ctx.Err() != nil {
				return
			}
			if !p.emitCandidate(ctx, events, candidate, opts, seen) {
				return
			}
		}

		select {
		case events <- MovieEvent{Type: EventDone}:
		case <-ctx.Done():
		}
	}()
	return events
}

// StreamOrdered is Stream with the emission order decided externally:
// indices into candidates arrive on order (reranker output) and each is
// hydrated and emitted as it lands. Out-of-range indices are skipped.
// The done event follows the close of order.
func (p *Pipeline) StreamOrdered(ctx context.Context, candidates []Candidate, order <-chan int, opts Options) <-chan MovieEvent {
	events := make(chan MovieEvent)
	go func() {
		defer close(events)

		seen := make(map[int64]struct{})
		for {
			select {
			case i, ok := <-order:
				if !ok {
					select {
					case events <- MovieEvent{Type: EventDone}:
					case <-ctx.Done():
					}
					return
				}
				if i < 0 || i >= len(candidates) {
					continue
				}
				if !p.emitCandidate(ctx, events, candidates[i], opts, seen) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return events
}

// emitCandidate hydrates and sends one candidate, skipping duplicates,
// excluded ids, and unresolvable records. It returns false when ctx was
// cancelled and the stream must stop.
func (p *Pipeline) emitCandidate(ctx context.Context, events chan<- MovieEvent, candidate Candidate, opts Options, seen map[int64]struct{}) bool {
	kpID := candidate.kpID()
	if _, ok := seen[kpID]; ok {
		return true
	}
	if _, ok := opts.ExcludeSet[kpID]; ok {
		slog.Warn("excluded id reached the pipeline, dropping",
			"kp_id", kpID)
		metrics.ExcludedLeaks.Inc()
		return true
	}

	event, ok := p.hydrate(ctx, candidate, opts.Locale)
	if !ok {
		return true
	}

	seen[kpID] = struct{}{}
	select {
	case events <- event:
		metrics.MoviesEmitted.Inc()
		return true
	case <-ctx.Done():
		return false
	}
}

// hydrate resolves one candidate to a display record. Misses and
// timeouts skip the candidate rather than failing the session.
func (p *Pipeline) hydrate(ctx context.Context, candidate Candidate, locale catalog.Locale) (MovieEvent, bool) {
	if candidate.Record != nil {
		return projectRecord(candidate.Record, locale), true
	}

	movie := p.lookupLocal(ctx, candidate.KpID)
	if movie == nil {
		movie = p.fetchRemote(ctx, candidate.KpID)
	}
	if movie == nil {
		return MovieEvent{}, false
	}
	return projectMovie(movie, locale), true
}

func (p *Pipeline) lookupLocal(ctx context.Context, kpID int64) *store.Movie {
	lookupCtx, cancel := context.WithTimeout(ctx, hydrateTimeout)
	defer cancel()

	movie, err := p.store.GetMovieByKpID(lookupCtx, kpID)
	if err != nil {
		if lookupCtx.Err() != nil {
			metrics.HydrationTimeouts.Inc()
		}
		return nil
	}
	return movie
}

func (p *Pipeline) fetchRemote(ctx context.Context, kpID int64) *store.Movie {
	fetchCtx, cancel := context.WithTimeout(ctx, hydrateTimeout)
	defer cancel()

	movie, err := p.provider.GetByKpID(fetchCtx, kpID)
	if err != nil {
		if fetchCtx.Err() != nil {
			metrics.HydrationTimeouts.Inc()
		} else {
			slog.Warn("metadata fetch failed", "kp_id", kpID, "error", err)
		}
		return nil
	}
	if movie == nil {
		return nil
	}
	if _, err := p.store.UpsertMovie(ctx, movie); err != nil {
		slog.Warn("failed to cache fetched movie", "kp_id", kpID, "error", err)
	}
	p.ensureCatalog(ctx, movie)
	return movie
}

// ensureCatalog writes a freshly fetched record into the vector catalog.
// Existing catalog rows are never touched.
func (p *Pipeline) ensureCatalog(ctx context.Context, movie *store.Movie) {
	if p.catalog == nil {
		return
	}
	if err := p.catalog.EnsureMovie(ctx, catalogRecord(movie)); err != nil {
		slog.Warn("failed to add fetched movie to catalog", "kp_id", movie.KpID, "error", err)
	}
}

func catalogRecord(movie *store.Movie) *catalog.MovieRecord {
	content := []string{movie.TitleRu, movie.TitleEn, movie.OverviewRu, movie.OverviewEn}
	content = append(content, movie.GenresRu...)
	content = append(content, movie.CountriesRu...)
	kept := content[:0]
	for _, part := range content {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return &catalog.MovieRecord{
		KpID:        movie.KpID,
		TmdbID:      movie.TmdbID,
		TitleRu:     movie.TitleRu,
		TitleEn:     movie.TitleEn,
		OverviewRu:  movie.OverviewRu,
		OverviewEn:  movie.OverviewEn,
		GenresRu:    movie.GenresRu,
		GenresEn:    movie.GenresEn,
		CountriesRu: movie.CountriesRu,
		CountriesEn: movie.CountriesEn,
		RatingKp:    movie.RatingKp,
		RatingImdb:  movie.RatingImdb,
		Year:        movie.Year,
		MovieLength: movie.MovieLength,
		PosterRu:    movie.PosterURL,
		PosterEn:    movie.PosterURL,
		PageContent: strings.Join(kept, " "),
	}
}

func projectRecord(record *catalog.MovieRecord, locale catalog.Locale) MovieEvent {
	event := MovieEvent{
		Type:        EventMovie,
		KpID:        record.KpID,
		RatingKp:    record.RatingKp,
		RatingImdb:  record.RatingImdb,
		Year:        record.Year,
		MovieLength: record.MovieLength,
	}
	switch locale {
	case catalog.LocaleEn:
		event.Title = record.TitleEn
		event.OriginalTitle = record.TitleRu
		event.Overview = record.OverviewEn
		event.Genres = record.GenresEn
		event.Countries = record.CountriesEn
		event.PosterURL = record.PosterEn
	default:
		event.Title = record.TitleRu
		event.OriginalTitle = record.TitleEn
		event.Overview = record.OverviewRu
		event.Genres = record.GenresRu
		event.Countries = record.CountriesRu
		event.PosterURL = record.PosterRu
	}
	return event
}

func projectMovie(movie *store.Movie, locale catalog.Locale) MovieEvent {
	event := MovieEvent{
		Type:            EventMovie,
		KpID:            movie.KpID,
		RatingKp:        movie.RatingKp,
		RatingImdb:      movie.RatingImdb,
		Year:            movie.Year,
		MovieLength:     movie.MovieLength,
		PosterURL:       movie.PosterURL,
		BackgroundColor: movie.BackgroundColor,
	}
	switch locale {
	case catalog.LocaleEn:
		event.Title = movie.TitleEn
		event.OriginalTitle = movie.TitleRu
		event.Overview = movie.OverviewEn
		event.Genres = movie.GenresEn
		event.Countries = movie.CountriesEn
	default:
		event.Title = movie.TitleRu
		event.OriginalTitle = movie.TitleEn
		event.Overview = movie.OverviewRu
		event.Genres = movie.GenresRu
		event.Countries = movie.CountriesRu
	}
	// Locale gaps fall back to the other language rather than an empty card.
	if event.Title == "" {
		if locale == catalog.LocaleEn {
			event.Title = movie.TitleRu
		} else {
			event.Title = movie.TitleEn
		}
	}
	return event
}
