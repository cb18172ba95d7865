package stream

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogenz/movieai/catalog"
	"github.com/autogenz/movieai/store"
)

type fakeStore struct {
	movies   map[int64]*store.Movie
	byTitle  map[string]*store.Movie
	upserted []int64
}

func (f *fakeStore) GetMovieByKpID(_ context.Context, kpID int64) (*store.Movie, error) {
	if m, ok := f.movies[kpID]; ok {
		return m, nil
	}
	return nil, store.ErrMovieNotFound
}

func (f *fakeStore) GetMovieByTitle(_ context.Context, title string) (*store.Movie, error) {
	if m, ok := f.byTitle[title]; ok {
		return m, nil
	}
	return nil, store.ErrMovieNotFound
}

func (f *fakeStore) UpsertMovie(_ context.Context, movie *store.Movie) (*store.Movie, error) {
	f.upserted = append(f.upserted, movie.KpID)
	return movie, nil
}

type fakeProvider struct {
	movies  map[int64]*store.Movie
	byTitle map[string]*store.Movie
	err     error
}

func (f *fakeProvider) GetByKpID(_ context.Context, kpID int64) (*store.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.movies[kpID], nil
}

func (f *fakeProvider) GetByTitle(_ context.Context, title string, _ int, _ string) (*store.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byTitle[title], nil
}

func fullRecord(kpID int64) *catalog.MovieRecord {
	return &catalog.MovieRecord{
		KpID:     kpID,
		TitleRu:  "Фильм",
		TitleEn:  "Movie",
		GenresRu: []string{"драма"},
		Year:     2015,
	}
}

func collect(t *testing.T, events <-chan MovieEvent) []MovieEvent {
	t.Helper()
	var out []MovieEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, event)
		case <-deadline:
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestStream_EmitsInOrderWithDone(t *testing.T) {
	p := New(&fakeStore{}, &fakeProvider{}, nil)

	events := collect(t, p.Stream(context.Background(), []Candidate{
		{Record: fullRecord(1)},
		{Record: fullRecord(2)},
		{Record: fullRecord(3)},
	}, Options{Locale: catalog.LocaleRu}))

	require.Len(t, events, 4)
	assert.Equal(t, int64(1), events[0].KpID)
	assert.Equal(t, int64(2), events[1].KpID)
	assert.Equal(t, int64(3), events[2].KpID)
	assert.Equal(t, EventDone, events[3].Type)
}

func TestStream_DeduplicatesWithinSession(t *testing.T) {
	p := New(&fakeStore{}, &fakeProvider{}, nil)

	events := collect(t, p.Stream(context.Background(), []Candidate{
		{Record: fullRecord(1)},
		{Record: fullRecord(1)},
		{Record: fullRecord(2)},
	}, Options{Locale: catalog.LocaleRu}))

	require.Len(t, events, 3)
	seen := map[int64]int{}
	for _, e := range events {
		if e.Type == EventMovie {
			seen[e.KpID]++
		}
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "kp_id %d emitted more than once", id)
	}
}

func TestStream_DropsExcludedDefensively(t *testing.T) {
	p := New(&fakeStore{}, &fakeProvider{}, nil)

	events := collect(t, p.Stream(context.Background(), []Candidate{
		{Record: fullRecord(1)},
		{Record: fullRecord(42)},
	}, Options{
		Locale:     catalog.LocaleRu,
		ExcludeSet: map[int64]struct{}{42: {}},
	}))

	for _, e := range events {
		assert.NotEqual(t, int64(42), e.KpID)
	}
}

func TestStream_BareIDHydratesFromLocalStore(t *testing.T) {
	local := &fakeStore{movies: map[int64]*store.Movie{
		7: {KpID: 7, TitleRu: "Локальный", Year: 2010},
	}}
	p := New(local, &fakeProvider{}, nil)

	events := collect(t, p.Stream(context.Background(), []Candidate{{KpID: 7}},
		Options{Locale: catalog.LocaleRu}))

	require.Len(t, events, 2)
	assert.Equal(t, "Локальный", events[0].Title)
	assert.Empty(t, local.upserted, "local hit must not be re-persisted")
}

func TestStream_BareIDFallsBackToProviderAndPersists(t *testing.T) {
	local := &fakeStore{}
	provider := &fakeProvider{movies: map[int64]*store.Movie{
		8: {KpID: 8, TitleRu: "Удалённый", Year: 2019},
	}}
	p := New(local, provider, nil)

	events := collect(t, p.Stream(context.Background(), []Candidate{{KpID: 8}},
		Options{Locale: catalog.LocaleRu}))

	require.Len(t, events, 2)
	assert.Equal(t, "Удалённый", events[0].Title)
	assert.Equal(t, []int64{8}, local.upserted)
}

func TestStream_UnresolvableCandidateSkipped(t *testing.T) {
	p := New(&fakeStore{}, &fakeProvider{err: errors.New("upstream down")}, nil)

	events := collect(t, p.Stream(context.Background(), []Candidate{
		{KpID: 9},
		{Record: fullRecord(10)},
	}, Options{Locale: catalog.LocaleRu}))

	require.Len(t, events, 2, "failed hydration skips the candidate, not the session")
	assert.Equal(t, int64(10), events[0].KpID)
	assert.Equal(t, EventDone, events[1].Type)
}

func TestStream_CancellationStopsPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(&fakeStore{}, &fakeProvider{}, nil)
	events := p.Stream(ctx, []Candidate{{Record: fullRecord(1)}}, Options{Locale: catalog.LocaleRu})

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancellation")
		}
	}
}

func TestStream_LocaleProjection(t *testing.T) {
	record := &catalog.MovieRecord{
		KpID:       5,
		TitleRu:    "Матрица",
		TitleEn:    "The Matrix",
		OverviewRu: "Хакер узнаёт правду.",
		OverviewEn: "A hacker learns the truth.",
		GenresRu:   []string{"фантастика"},
		GenresEn:   []string{"sci-fi"},
		Year:       1999,
	}
	p := New(&fakeStore{}, &fakeProvider{}, nil)

	ru := collect(t, p.Stream(context.Background(), []Candidate{{Record: record}}, Options{Locale: catalog.LocaleRu}))
	en := collect(t, p.Stream(context.Background(), []Candidate{{Record: record}}, Options{Locale: catalog.LocaleEn}))

	assert.Equal(t, "Матрица", ru[0].Title)
	assert.Equal(t, []string{"фантастика"}, ru[0].Genres)
	assert.Equal(t, "The Matrix", en[0].Title)
	assert.Equal(t, []string{"sci-fi"}, en[0].Genres)
	assert.Equal(t, "Матрица", en[0].OriginalTitle)
}

type fakeCatalogWriter struct {
	ensured []int64
	err     error
}

func (f *fakeCatalogWriter) EnsureMovie(_ context.Context, record *catalog.MovieRecord) error {
	if f.err != nil {
		return f.err
	}
	f.ensured = append(f.ensured, record.KpID)
	return nil
}

func TestStream_ProviderFetchFeedsCatalog(t *testing.T) {
	provider := &fakeProvider{movies: map[int64]*store.Movie{
		8: {KpID: 8, TitleRu: "Удалённый", GenresRu: []string{"драма"}, Year: 2019},
	}}
	writer := &fakeCatalogWriter{}
	p := New(&fakeStore{}, provider, writer)

	collect(t, p.Stream(context.Background(), []Candidate{{KpID: 8}},
		Options{Locale: catalog.LocaleRu}))

	assert.Equal(t, []int64{8}, writer.ensured)
}

func TestStream_LocalHitSkipsCatalogWrite(t *testing.T) {
	local := &fakeStore{movies: map[int64]*store.Movie{
		7: {KpID: 7, TitleRu: "Локальный", Year: 2010},
	}}
	writer := &fakeCatalogWriter{}
	p := New(local, &fakeProvider{}, writer)

	collect(t, p.Stream(context.Background(), []Candidate{{KpID: 7}},
		Options{Locale: catalog.LocaleRu}))

	assert.Empty(t, writer.ensured)
}

func TestStream_CatalogWriteFailureDoesNotBlockEmission(t *testing.T) {
	provider := &fakeProvider{movies: map[int64]*store.Movie{
		8: {KpID: 8, TitleRu: "Удалённый", Year: 2019},
	}}
	p := New(&fakeStore{}, provider, &fakeCatalogWriter{err: errors.New("catalog down")})

	events := collect(t, p.Stream(context.Background(), []Candidate{{KpID: 8}},
		Options{Locale: catalog.LocaleRu}))

	require.Len(t, events, 2)
	assert.Equal(t, int64(8), events[0].KpID)
}

func TestCatalogRecord_ComposesPageContent(t *testing.T) {
	record := catalogRecord(&store.Movie{
		KpID:       3,
		TitleRu:    "Сталкер",
		OverviewRu: "Проводник ведёт двоих в Зону.",
		GenresRu:   []string{"фантастика", "драма"},
		PosterURL:  "https://example.com/p.jpg",
	})

	assert.Equal(t, int64(3), record.KpID)
	assert.Contains(t, record.PageContent, "Сталкер")
	assert.Contains(t, record.PageContent, "фантастика")
	assert.NotContains(t, record.PageContent, "  ", "empty fields must not leave gaps")
	assert.Equal(t, "https://example.com/p.jpg", record.PosterRu)
}

func TestStreamOrdered_FollowsExternalOrder(t *testing.T) {
	p := New(&fakeStore{}, &fakeProvider{}, nil)
	candidates := []Candidate{
		{Record: fullRecord(1)},
		{Record: fullRecord(2)},
		{Record: fullRecord(3)},
	}

	order := make(chan int, 4)
	order <- 2
	order <- 0
	order <- 5 // out of range, skipped
	order <- 1
	close(order)

	events := collect(t, p.StreamOrdered(context.Background(), candidates, order,
		Options{Locale: catalog.LocaleRu}))

	require.Len(t, events, 4)
	assert.Equal(t, int64(3), events[0].KpID)
	assert.Equal(t, int64(1), events[1].KpID)
	assert.Equal(t, int64(2), events[2].KpID)
	assert.Equal(t, EventDone, events[3].Type)
}

type scriptedTitleGen struct {
	batches [][]string
	calls   int
}

func (g *scriptedTitleGen) GenerateTitles(_ context.Context) ([]string, error) {
	if g.calls >= len(g.batches) {
		g.calls++
		return nil, nil
	}
	batch := g.batches[g.calls]
	g.calls++
	return batch, nil
}

func TestStreamGenerated_ResolvesAndStopsOnEmptyAttempts(t *testing.T) {
	local := &fakeStore{byTitle: map[string]*store.Movie{
		"Начало": {KpID: 11, TitleRu: "Начало", Year: 2010},
	}}
	provider := &fakeProvider{byTitle: map[string]*store.Movie{
		"Интерстеллар": {KpID: 12, TitleRu: "Интерстеллар", Year: 2014},
	}}
	p := New(local, provider, nil)

	gen := &scriptedTitleGen{batches: [][]string{
		{"Начало", "Интерстеллар", "Начало"},
	}}

	events := collect(t, p.StreamGenerated(context.Background(), gen, Options{Locale: catalog.LocaleRu}))

	var ids []int64
	for _, e := range events {
		if e.Type == EventMovie {
			ids = append(ids, e.KpID)
		}
	}
	assert.Equal(t, []int64{11, 12}, ids)
	assert.Equal(t, []int64{12}, local.upserted, "provider hits are cached")
	// One productive batch, then two empty attempts end the loop.
	assert.Equal(t, 3, gen.calls)
}

type failingTitleGen struct{}

func (failingTitleGen) GenerateTitles(_ context.Context) ([]string, error) {
	return nil, errors.New("generation backend down")
}

func TestStreamGenerated_GeneratorErrorStillEndsWithDone(t *testing.T) {
	p := New(&fakeStore{}, &fakeProvider{}, nil)

	events := collect(t, p.StreamGenerated(context.Background(), failingTitleGen{},
		Options{Locale: catalog.LocaleRu}))

	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Type)
}

// incapableStore lacks title lookup, which StreamGenerated requires.
type incapableStore struct{}

func (incapableStore) GetMovieByKpID(_ context.Context, _ int64) (*store.Movie, error) {
	return nil, store.ErrMovieNotFound
}

func (incapableStore) UpsertMovie(_ context.Context, movie *store.Movie) (*store.Movie, error) {
	return movie, nil
}

func TestStreamGenerated_IncapableStoreStillEndsWithDone(t *testing.T) {
	p := New(incapableStore{}, &fakeProvider{}, nil)

	events := collect(t, p.StreamGenerated(context.Background(), &scriptedTitleGen{},
		Options{Locale: catalog.LocaleRu}))

	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Type)
}
