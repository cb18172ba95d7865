package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogenz/movieai/internal/profile"
	"github.com/autogenz/movieai/store"
)

func openTestDriver(t *testing.T) store.Driver {
	t.Helper()
	driver, err := NewDB(&profile.Profile{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "movieai.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))
	return driver
}

func testMovie(kpID int64, titleRu string) *store.Movie {
	return &store.Movie{
		KpID:        kpID,
		TitleRu:     titleRu,
		TitleEn:     "The Matrix",
		OverviewRu:  "Хакер узнаёт правду.",
		GenresRu:    []string{"фантастика", "боевик"},
		GenresEn:    []string{"sci-fi", "action"},
		CountriesRu: []string{"США"},
		RatingKp:    8.5,
		RatingImdb:  8.7,
		Year:        1999,
		MovieLength: 136,
		PosterURL:   "https://example.com/poster.jpg",
	}
}

func TestUpsertAndGetMovie(t *testing.T) {
	ctx := context.Background()
	driver := openTestDriver(t)

	saved, err := driver.UpsertMovie(ctx, testMovie(301, "Матрица"))
	require.NoError(t, err)
	assert.Equal(t, int64(301), saved.KpID)
	assert.NotZero(t, saved.CreatedTs)

	got, err := driver.GetMovieByKpID(ctx, 301)
	require.NoError(t, err)
	assert.Equal(t, "Матрица", got.TitleRu)
	assert.Equal(t, []string{"фантастика", "боевик"}, got.GenresRu)
	assert.Equal(t, 8.5, got.RatingKp)
}

func TestGetMovieByTitle_EitherLocaleCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	driver := openTestDriver(t)

	_, err := driver.UpsertMovie(ctx, testMovie(301, "Матрица"))
	require.NoError(t, err)

	byRu, err := driver.GetMovieByTitle(ctx, "матрица")
	require.NoError(t, err)
	assert.Equal(t, int64(301), byRu.KpID)

	byEn, err := driver.GetMovieByTitle(ctx, "the matrix")
	require.NoError(t, err)
	assert.Equal(t, int64(301), byEn.KpID)
}

func TestGetMovie_NotFound(t *testing.T) {
	ctx := context.Background()
	driver := openTestDriver(t)

	_, err := driver.GetMovieByKpID(ctx, 999)
	assert.ErrorIs(t, err, store.ErrMovieNotFound)

	_, err = driver.GetMovieByTitle(ctx, "нет такого")
	assert.ErrorIs(t, err, store.ErrMovieNotFound)
}

func TestUpsertMovie_UpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	driver := openTestDriver(t)

	_, err := driver.UpsertMovie(ctx, testMovie(301, "Матрица"))
	require.NoError(t, err)

	updated := testMovie(301, "Матрица")
	updated.RatingKp = 9.0
	saved, err := driver.UpsertMovie(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, 9.0, saved.RatingKp)

	got, err := driver.GetMovieByKpID(ctx, 301)
	require.NoError(t, err)
	assert.Equal(t, 9.0, got.RatingKp)
}

func TestHistoryMarks_PerUserAndKind(t *testing.T) {
	ctx := context.Background()
	driver := openTestDriver(t)

	alice := store.UserKey{UserID: "1", Platform: "telegram"}
	bob := store.UserKey{UserID: "2", Platform: "telegram"}

	require.NoError(t, driver.AddHistoryMark(ctx, &store.HistoryMark{User: alice, KpID: 301}, store.HistoryFavorite))
	require.NoError(t, driver.AddHistoryMark(ctx, &store.HistoryMark{User: alice, KpID: 302}, store.HistorySkip))
	require.NoError(t, driver.AddHistoryMark(ctx, &store.HistoryMark{User: bob, KpID: 303}, store.HistoryFavorite))

	// A repeated mark is a no-op, not an error.
	require.NoError(t, driver.AddHistoryMark(ctx, &store.HistoryMark{User: alice, KpID: 301}, store.HistoryFavorite))

	favorites, err := driver.ListHistoryKpIDs(ctx, alice, store.HistoryFavorite)
	require.NoError(t, err)
	assert.Equal(t, []int64{301}, favorites)

	skips, err := driver.ListHistoryKpIDs(ctx, alice, store.HistorySkip)
	require.NoError(t, err)
	assert.Equal(t, []int64{302}, skips)
}
