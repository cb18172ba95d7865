package stream

import (
	"context"
	"log/slog"
	"strings"

	"github.com/autogenz/movieai/internal/metrics"
	"github.com/autogenz/movieai/store"
)

// TitleGenerator produces one batch of candidate movie titles per call.
// Implementations are stateful: titles already returned should not be
// proposed again.
type TitleGenerator interface {
	GenerateTitles(ctx context.Context) ([]string, error)
}

// TitleStore resolves generated titles against the local cache.
type TitleStore interface {
	MetadataStore
	GetMovieByTitle(ctx context.Context, title string) (*store.Movie, error)
}

// TitleProvider resolves generated titles against the external provider.
type TitleProvider interface {
	GetByTitle(ctx context.Context, title string, year int, genre string) (*store.Movie, error)
}

// StreamGenerated is the generation-driven discovery path: each attempt
// asks the generator for titles, resolves them through the local store
// or the external provider, persists new records, and emits the hits.
// The loop stops when the attempt budget runs out or after two
// consecutive attempts that produced nothing usable.
func (p *Pipeline) StreamGenerated(ctx context.Context, gen TitleGenerator, opts Options) <-chan MovieEvent {
	titleStore, storeOK := p.store.(TitleStore)
	titleProvider, providerOK := p.provider.(TitleProvider)

	events := make(chan MovieEvent)
	go func() {
		defer close(events)
		// Every non-cancellation exit must end with the done event so
		// clients can tell a finished stream from a dropped one.
		done := func() {
			select {
			case events <- MovieEvent{Type: EventDone}:
			case <-ctx.Done():
			}
		}

		if !storeOK || !providerOK {
			slog.Warn("generated stream requires title-capable store and provider")
			done()
			return
		}

		budget := NewRetryBudget()
		seen := make(map[string]struct{})
		seenIDs := make(map[int64]struct{})

		for {
			if ctx.Err() != nil {
				return
			}

			titles, err := gen.GenerateTitles(ctx)
			if err != nil {
				slog.Warn("title generation failed", "error", err)
				done()
				return
			}

			foundAny := false
			for _, title := range titles {
				if ctx.Err() != nil {
					return
				}
				normalized := strings.ToLower(strings.TrimSpace(title))
				if normalized == "" {
					continue
				}
				if _, ok := seen[normalized]; ok {
					continue
				}
				seen[normalized] = struct{}{}

				movie := p.resolveTitle(ctx, titleStore, titleProvider, title)
				if movie == nil {
					continue
				}
				if _, ok := seenIDs[movie.KpID]; ok {
					continue
				}
				if _, ok := opts.ExcludeSet[movie.KpID]; ok {
					slog.Warn("excluded id reached the pipeline, dropping",
						"kp_id", movie.KpID)
					metrics.ExcludedLeaks.Inc()
					continue
				}
				seenIDs[movie.KpID] = struct{}{}

				select {
				case events <- projectMovie(movie, opts.Locale):
					metrics.MoviesEmitted.Inc()
					foundAny = true
				case <-ctx.Done():
					return
				}
			}

			if !budget.Spend(foundAny) {
				break
			}
		}

		done()
	}()
	return events
}

func (p *Pipeline) resolveTitle(ctx context.Context, titleStore TitleStore, provider TitleProvider, title string) *store.Movie {
	lookupCtx, cancel := context.WithTimeout(ctx, hydrateTimeout)
	movie, err := titleStore.GetMovieByTitle(lookupCtx, title)
	cancel()
	if err == nil && movie != nil {
		return movie
	}

	fetchCtx, cancel := context.WithTimeout(ctx, hydrateTimeout)
	defer cancel()
	movie, err = provider.GetByTitle(fetchCtx, title, 0, "")
	if err != nil {
		if fetchCtx.Err() != nil {
			metrics.HydrationTimeouts.Inc()
		} else {
			slog.Warn("title fetch failed", "title", title, "error", err)
		}
		return nil
	}
	if movie == nil {
		return nil
	}
	if _, err := p.store.UpsertMovie(ctx, movie); err != nil {
		slog.Warn("failed to cache fetched movie", "kp_id", movie.KpID, "error", err)
	}
	p.ensureCatalog(ctx, movie)
	return movie
}
