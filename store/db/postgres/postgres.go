// Package postgres implements the metadata store driver on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/autogenz/movieai/internal/profile"
	"github.com/autogenz/movieai/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection with a pool sized for a small
// single-instance deployment.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	pgDB.SetMaxOpenConns(10)
	pgDB.SetMaxIdleConns(5)

	driver := DB{db: pgDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const migrationSchema = `
CREATE TABLE IF NOT EXISTS movie_cache (
	kp_id BIGINT PRIMARY KEY,
	tmdb_id BIGINT NOT NULL DEFAULT 0,
	title_ru TEXT NOT NULL DEFAULT '',
	title_en TEXT NOT NULL DEFAULT '',
	overview_ru TEXT NOT NULL DEFAULT '',
	overview_en TEXT NOT NULL DEFAULT '',
	genres_ru TEXT[] NOT NULL DEFAULT '{}',
	genres_en TEXT[] NOT NULL DEFAULT '{}',
	countries_ru TEXT[] NOT NULL DEFAULT '{}',
	countries_en TEXT[] NOT NULL DEFAULT '{}',
	rating_kp DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating_imdb DOUBLE PRECISION NOT NULL DEFAULT 0,
	year INTEGER NOT NULL DEFAULT 0,
	movie_length INTEGER NOT NULL DEFAULT 0,
	poster_url TEXT NOT NULL DEFAULT '',
	background_color TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_movie_cache_title_ru ON movie_cache (LOWER(title_ru));
CREATE INDEX IF NOT EXISTS idx_movie_cache_title_en ON movie_cache (LOWER(title_en));

CREATE TABLE IF NOT EXISTS user_history (
	id SERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	platform TEXT NOT NULL,
	kp_id BIGINT NOT NULL,
	kind TEXT NOT NULL,
	created_ts BIGINT NOT NULL,
	UNIQUE (user_id, platform, kp_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_user_history_user ON user_history (user_id, platform, kind);
`

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, migrationSchema); err != nil {
		return errors.Wrap(err, "failed to apply migration schema")
	}
	return nil
}

// placeholder returns the PostgreSQL positional parameter for the n-th value.
func placeholder(n int) string {
	return "$" + fmt.Sprint(n)
}

func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
