package sqlite

import (
	"context"

	"github.com/pkg/errors"
)

const migrationSchema = `
CREATE TABLE IF NOT EXISTS movie_cache (
	kp_id INTEGER PRIMARY KEY,
	tmdb_id INTEGER NOT NULL DEFAULT 0,
	title_ru TEXT NOT NULL DEFAULT '',
	title_en TEXT NOT NULL DEFAULT '',
	overview_ru TEXT NOT NULL DEFAULT '',
	overview_en TEXT NOT NULL DEFAULT '',
	genres_ru TEXT NOT NULL DEFAULT '[]',
	genres_en TEXT NOT NULL DEFAULT '[]',
	countries_ru TEXT NOT NULL DEFAULT '[]',
	countries_en TEXT NOT NULL DEFAULT '[]',
	rating_kp REAL NOT NULL DEFAULT 0,
	rating_imdb REAL NOT NULL DEFAULT 0,
	year INTEGER NOT NULL DEFAULT 0,
	movie_length INTEGER NOT NULL DEFAULT 0,
	poster_url TEXT NOT NULL DEFAULT '',
	background_color TEXT NOT NULL DEFAULT '',
	created_ts INTEGER NOT NULL,
	updated_ts INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_movie_cache_title_ru ON movie_cache (title_ru);
CREATE INDEX IF NOT EXISTS idx_movie_cache_title_en ON movie_cache (title_en);

CREATE TABLE IF NOT EXISTS user_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	platform TEXT NOT NULL,
	kp_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	created_ts INTEGER NOT NULL,
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
