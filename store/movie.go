package store

import (
	"context"

	"github.com/pkg/errors"
)

// ErrMovieNotFound is returned when no cached record exists for an id or
// title. Callers fall back to the external metadata provider.
var ErrMovieNotFound = errors.New("movie not found")

// Movie is a locally cached metadata record. Rows are written once when a
// record is first fetched from the external provider and reused afterwards.
type Movie struct {
	KpID   int64
	TmdbID int64

	TitleRu    string
	TitleEn    string
	OverviewRu string
	OverviewEn string

	GenresRu    []string
	GenresEn    []string
	CountriesRu []string
	CountriesEn []string

	RatingKp    float64
	RatingImdb  float64
	Year        int
	MovieLength int

	PosterURL       string
	BackgroundColor string

	CreatedTs int64
	UpdatedTs int64
}

// HistoryKind discriminates the two history marks a user can leave.
type HistoryKind string

const (
	HistoryFavorite HistoryKind = "favorite"
	HistorySkip     HistoryKind = "skip"
)

// UserKey identifies a user across client platforms: a numeric Telegram
// id or an opaque device id, qualified by the platform name.
type UserKey struct {
	UserID   string
	Platform string
}

// HistoryMark records one favorite/skip action.
type HistoryMark struct {
	User      UserKey
	KpID      int64
	CreatedTs int64
}

// Driver is the storage backend interface.
type Driver interface {
	Migrate(ctx context.Context) error
	Close() error

	GetMovieByKpID(ctx context.Context, kpID int64) (*Movie, error)
	GetMovieByTitle(ctx context.Context, title string) (*Movie, error)
	UpsertMovie(ctx context.Context, movie *Movie) (*Movie, error)

	AddHistoryMark(ctx context.Context, mark *HistoryMark, kind HistoryKind) error
	ListHistoryKpIDs(ctx context.Context, user UserKey, kind HistoryKind) ([]int64, error)
}
