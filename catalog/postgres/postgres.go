// Package postgres implements the catalog.Store contract on PostgreSQL
// with the pgvector extension.
package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/autogenz/movieai/catalog"
)

// DB is a catalog driver backed by a movie table with an embedding column.
type DB struct {
	db *sql.DB
}

// NewDB opens a catalog driver over an existing database handle.
func NewDB(db *sql.DB) *DB {
	return &DB{db: db}
}

// Open connects to PostgreSQL with the given DSN.
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open catalog db")
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

const movieColumns = `
	kp_id, tmdb_id, imdb_id,
	title_ru, title_en, overview_ru, overview_en,
	genres_ru, genres_en, countries_ru, countries_en,
	rating_kp, rating_imdb, votes_kp, votes_imdb,
	year, movie_length, popularity_score,
	poster_ru, poster_en, page_content`

// buildFilter translates a catalog.Filter into WHERE clauses. Year bounds
// are inclusive; rating bounds are strict, matching the query contract.
func buildFilter(filter *catalog.Filter, args []any) ([]string, []any) {
	where := []string{"1 = 1"}
	if filter == nil {
		return where, args
	}

	if filter.StartYear > 0 {
		where, args = append(where, "year >= "+placeholder(len(args)+1)), append(args, filter.StartYear)
	}
	if filter.EndYear > 0 {
		where, args = append(where, "year <= "+placeholder(len(args)+1)), append(args, filter.EndYear)
	}
	if filter.RatingKp > 0 {
		where, args = append(where, "rating_kp > "+placeholder(len(args)+1)), append(args, filter.RatingKp)
	}
	if filter.RatingImdb > 0 {
		where, args = append(where, "rating_imdb > "+placeholder(len(args)+1)), append(args, filter.RatingImdb)
	}
	if len(filter.Genres) > 0 {
		genreField := "genres_ru"
		if filter.Locale == catalog.LocaleEn {
			genreField = "genres_en"
		}
		where, args = append(where, genreField+" && "+placeholder(len(args)+1)), append(args, pq.Array(filter.Genres))
	}

	// Cast and director names are matched against the content blob; the
	// catalog does not carry structured person fields.
	for _, group := range [][]string{filter.Cast, filter.Directors} {
		if len(group) == 0 {
			continue
		}
		ors := make([]string, 0, len(group))
		for _, name := range group {
			ors = append(ors, "page_content ILIKE "+placeholder(len(args)+1))
			args = append(args, "%"+name+"%")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	return where, args
}

func scanMovie(scan func(dest ...any) error, extra ...any) (*catalog.MovieRecord, error) {
	var m catalog.MovieRecord
	var tmdbID, imdbID sql.NullInt64
	dest := []any{
		&m.KpID, &tmdbID, &imdbID,
		&m.TitleRu, &m.TitleEn, &m.OverviewRu, &m.OverviewEn,
		pq.Array(&m.GenresRu), pq.Array(&m.GenresEn),
		pq.Array(&m.CountriesRu), pq.Array(&m.CountriesEn),
		&m.RatingKp, &m.RatingImdb, &m.VotesKp, &m.VotesImdb,
		&m.Year, &m.MovieLength, &m.PopularityScore,
		&m.PosterRu, &m.PosterEn, &m.PageContent,
	}
	dest = append(dest, extra...)
	if err := scan(dest...); err != nil {
		return nil, errors.Wrap(err, "failed to scan movie record")
	}
	m.TmdbID = tmdbID.Int64
	m.ImdbID = imdbID.Int64
	return &m, nil
}

// FetchByFilter returns records matching the filter, most popular first.
func (d *DB) FetchByFilter(ctx context.Context, filter *catalog.Filter, limit int) ([]*catalog.MovieRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	where, args := buildFilter(filter, []any{})
	query := `
		SELECT ` + movieColumns + `
		FROM movie
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY popularity_score DESC
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch movies by filter")
	}
	defer rows.Close()

	list := []*catalog.MovieRecord{}
	for rows.Next() {
		m, err := scanMovie(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// FetchVector returns the stored embedding for a catalog id.
func (d *DB) FetchVector(ctx context.Context, kpID int64) ([]float32, error) {
	var vector pgvector.Vector
	err := d.db.QueryRowContext(ctx,
		`SELECT embedding FROM movie WHERE kp_id = `+placeholder(1), kpID,
	).Scan(&vector)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch vector for kp_id %d", kpID)
	}
	return vector.Slice(), nil
}

// EnsureMovie inserts the record if no row with its kp id exists. Existing
// rows are left untouched; the catalog is the source of truth once seeded.
func (d *DB) EnsureMovie(ctx context.Context, record *catalog.MovieRecord) error {
	placeholders := make([]string, 21)
	for i := range placeholders {
		placeholders[i] = placeholder(i + 1)
	}
	stmt := `
		INSERT INTO movie (` + movieColumns + `)
		VALUES (` + strings.Join(placeholders, ", ") + `)
		ON CONFLICT (kp_id) DO NOTHING`

	_, err := d.db.ExecContext(ctx, stmt,
		record.KpID, nullInt64(record.TmdbID), nullInt64(record.ImdbID),
		record.TitleRu, record.TitleEn, record.OverviewRu, record.OverviewEn,
		pq.Array(record.GenresRu), pq.Array(record.GenresEn),
		pq.Array(record.CountriesRu), pq.Array(record.CountriesEn),
		record.RatingKp, record.RatingImdb, record.VotesKp, record.VotesImdb,
		record.Year, record.MovieLength, record.PopularityScore,
		record.PosterRu, record.PosterEn, record.PageContent,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to ensure movie kp_id %d", record.KpID)
	}
	return nil
}

func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
