package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/autogenz/movieai/catalog"
)

// Hybrid blends cosine similarity against the embedding column with a
// full-text rank over the content blob. alpha is the vector weight: the
// blended score is alpha*similarity + (1-alpha)*keyword_rank, both in
// [0, 1] after saturation, so results are comparable across queries.
func (d *DB) Hybrid(ctx context.Context, query string, vector []float32, alpha float64, filter *catalog.Filter, limit int) ([]*catalog.MovieRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	where, args := buildFilter(filter, []any{})

	vec := pgvector.NewVector(vector)
	vecArg := placeholder(len(args) + 1)
	args = append(args, vec)
	queryArg := placeholder(len(args) + 1)
	args = append(args, query)
	alphaArg := placeholder(len(args) + 1)
	args = append(args, alpha)

	// ts_rank is unbounded; LEAST saturates it at 1 so neither signal can
	// dominate past its blend weight.
	stmt := `
		SELECT ` + movieColumns + `,
			` + alphaArg + ` * (1 - (embedding <=> ` + vecArg + `))
			+ (1 - ` + alphaArg + `) * LEAST(ts_rank(to_tsvector('simple', page_content), plainto_tsquery('simple', ` + queryArg + `)), 1) AS blended
		FROM movie
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY blended DESC
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to run hybrid query")
	}
	defer rows.Close()

	list := []*catalog.MovieRecord{}
	for rows.Next() {
		var blended float64
		m, err := scanMovie(rows.Scan, &blended)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// NearVector returns the nearest neighbors by cosine distance, closest
// first. The <=> operator computes cosine distance (1 - cosine similarity).
func (d *DB) NearVector(ctx context.Context, vector []float32, filter *catalog.Filter, limit int) ([]*catalog.ScoredRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	where, args := buildFilter(filter, []any{})

	vec := pgvector.NewVector(vector)
	vecArg := placeholder(len(args) + 1)
	args = append(args, vec)

	stmt := `
		SELECT ` + movieColumns + `,
			embedding <=> ` + vecArg + ` AS distance
		FROM movie
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY distance ASC
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to run near-vector query")
	}
	defer rows.Close()

	list := []*catalog.ScoredRecord{}
	for rows.Next() {
		var distance float64
		m, err := scanMovie(rows.Scan, &distance)
		if err != nil {
			return nil, err
		}
		list = append(list, &catalog.ScoredRecord{MovieRecord: m, Distance: distance})
	}
	return list, rows.Err()
}

// KeywordSearch matches text against the locale title field and returns
// records with a relevance score, best first. Trigram similarity tolerates
// transliteration noise in user-typed titles better than exact matching.
func (d *DB) KeywordSearch(ctx context.Context, text string, locale catalog.Locale, limit int) ([]*catalog.ScoredRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	titleField := "title_ru"
	if locale == catalog.LocaleEn {
		titleField = "title_en"
	}

	stmt := `
		SELECT ` + movieColumns + `,
			similarity(` + titleField + `, ` + placeholder(1) + `) AS relevance
		FROM movie
		WHERE ` + titleField + ` % ` + placeholder(1) + `
		ORDER BY relevance DESC, popularity_score DESC
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, stmt, text, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to run keyword search")
	}
	defer rows.Close()

	list := []*catalog.ScoredRecord{}
	for rows.Next() {
		var relevance float64
		m, err := scanMovie(rows.Scan, &relevance)
		if err != nil {
			return nil, err
		}
		list = append(list, &catalog.ScoredRecord{MovieRecord: m, Score: relevance})
	}
	return list, rows.Err()
}
