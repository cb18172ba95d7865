// Package store provides persistence for locally cached movie metadata
// and per-user viewing history (favorites and skips).
package store

import (
	"context"

	"github.com/autogenz/movieai/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{driver: driver, profile: profile}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) GetMovieByKpID(ctx context.Context, kpID int64) (*Movie, error) {
	return s.driver.GetMovieByKpID(ctx, kpID)
}

func (s *Store) GetMovieByTitle(ctx context.Context, title string) (*Movie, error) {
	return s.driver.GetMovieByTitle(ctx, title)
}

func (s *Store) UpsertMovie(ctx context.Context, movie *Movie) (*Movie, error) {
	return s.driver.UpsertMovie(ctx, movie)
}

func (s *Store) AddFavorite(ctx context.Context, mark *HistoryMark) error {
	return s.driver.AddHistoryMark(ctx, mark, HistoryFavorite)
}

func (s *Store) AddSkip(ctx context.Context, mark *HistoryMark) error {
	return s.driver.AddHistoryMark(ctx, mark, HistorySkip)
}

func (s *Store) ListFavoriteKpIDs(ctx context.Context, user UserKey) ([]int64, error) {
	return s.driver.ListHistoryKpIDs(ctx, user, HistoryFavorite)
}

func (s *Store) ListSkippedKpIDs(ctx context.Context, user UserKey) ([]int64, error) {
	return s.driver.ListHistoryKpIDs(ctx, user, HistorySkip)
}

// ExcludedKpIDs returns the union of a user's skipped and favorited
// movie ids, computed once per session before retrieval begins.
func (s *Store) ExcludedKpIDs(ctx context.Context, user UserKey) (map[int64]struct{}, error) {
	excluded := make(map[int64]struct{})
	for _, kind := range []HistoryKind{HistorySkip, HistoryFavorite} {
		ids, err := s.driver.ListHistoryKpIDs(ctx, user, kind)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			excluded[id] = struct{}{}
		}
	}
	return excluded, nil
}
