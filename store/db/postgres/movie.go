package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/autogenz/movieai/store"
)

const movieColumns = `kp_id, tmdb_id, title_ru, title_en, overview_ru, overview_en,
	genres_ru, genres_en, countries_ru, countries_en,
	rating_kp, rating_imdb, year, movie_length,
	poster_url, background_color, created_ts, updated_ts`

func (db *DB) GetMovieByKpID(ctx context.Context, kpID int64) (*store.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movie_cache WHERE kp_id = $1`
	movie, err := scanMovie(db.db.QueryRowContext(ctx, query, kpID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get movie by kp_id")
	}
	return movie, nil
}

func (db *DB) GetMovieByTitle(ctx context.Context, title string) (*store.Movie, error) {
	// Either locale title can match; prefer the highest-rated record when
	// remakes share a title.
	query := `SELECT ` + movieColumns + ` FROM movie_cache
		WHERE LOWER(title_ru) = LOWER($1) OR LOWER(title_en) = LOWER($1)
		ORDER BY rating_kp DESC
		LIMIT 1`
	movie, err := scanMovie(db.db.QueryRowContext(ctx, query, title))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get movie by title")
	}
	return movie, nil
}

func (db *DB) UpsertMovie(ctx context.Context, upsert *store.Movie) (*store.Movie, error) {
	now := time.Now().Unix()
	query := `
		INSERT INTO movie_cache (` + movieColumns + `)
		VALUES (` + placeholders(18) + `)
		ON CONFLICT (kp_id) DO UPDATE SET
			tmdb_id = EXCLUDED.tmdb_id,
			title_ru = EXCLUDED.title_ru,
			title_en = EXCLUDED.title_en,
			overview_ru = EXCLUDED.overview_ru,
			overview_en = EXCLUDED.overview_en,
			genres_ru = EXCLUDED.genres_ru,
			genres_en = EXCLUDED.genres_en,
			countries_ru = EXCLUDED.countries_ru,
			countries_en = EXCLUDED.countries_en,
			rating_kp = EXCLUDED.rating_kp,
			rating_imdb = EXCLUDED.rating_imdb,
			year = EXCLUDED.year,
			movie_length = EXCLUDED.movie_length,
			poster_url = EXCLUDED.poster_url,
			background_color = EXCLUDED.background_color,
			updated_ts = EXCLUDED.updated_ts
		RETURNING ` + movieColumns
	movie, err := scanMovie(db.db.QueryRowContext(ctx, query,
		upsert.KpID,
		upsert.TmdbID,
		upsert.TitleRu,
		upsert.TitleEn,
		upsert.OverviewRu,
		upsert.OverviewEn,
		pq.Array(upsert.GenresRu),
		pq.Array(upsert.GenresEn),
		pq.Array(upsert.CountriesRu),
		pq.Array(upsert.CountriesEn),
		upsert.RatingKp,
		upsert.RatingImdb,
		upsert.Year,
		upsert.MovieLength,
		upsert.PosterURL,
		upsert.BackgroundColor,
		now,
		now,
	))
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert movie")
	}
	return movie, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (*store.Movie, error) {
	var movie store.Movie
	err := row.Scan(
		&movie.KpID,
		&movie.TmdbID,
		&movie.TitleRu,
		&movie.TitleEn,
		&movie.OverviewRu,
		&movie.OverviewEn,
		pq.Array(&movie.GenresRu),
		pq.Array(&movie.GenresEn),
		pq.Array(&movie.CountriesRu),
		pq.Array(&movie.CountriesEn),
		&movie.RatingKp,
		&movie.RatingImdb,
		&movie.Year,
		&movie.MovieLength,
		&movie.PosterURL,
		&movie.BackgroundColor,
		&movie.CreatedTs,
		&movie.UpdatedTs,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}
