package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogenz/movieai/catalog"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ReferenceYear = 2025
	return cfg
}

func TestDynamicScore_Pure(t *testing.T) {
	cfg := testConfig()
	record := &catalog.MovieRecord{
		KpID:       1,
		RatingKp:   7.8,
		RatingImdb: 8.1,
		VotesKp:    120000,
		VotesImdb:  450000,
		Year:       2014,
		GenresRu:   []string{"драма", "фантастика"},
	}

	first := cfg.DynamicScore(record)
	second := cfg.DynamicScore(record)

	assert.Equal(t, first, second, "identical inputs must produce the identical score")
	assert.Positive(t, first)
}

func TestDynamicScore_FreshnessDecay(t *testing.T) {
	cfg := testConfig()
	recent := &catalog.MovieRecord{RatingKp: 7, RatingImdb: 7, Year: 2024}
	old := &catalog.MovieRecord{RatingKp: 7, RatingImdb: 7, Year: 1950}

	assert.Greater(t, cfg.DynamicScore(recent), cfg.DynamicScore(old))
}

func TestDynamicScore_AnimationPenalty(t *testing.T) {
	cfg := testConfig()
	plain := &catalog.MovieRecord{RatingKp: 8, RatingImdb: 8, Year: 2020, GenresRu: []string{"драма"}}
	anime := &catalog.MovieRecord{RatingKp: 8, RatingImdb: 8, Year: 2020, GenresRu: []string{"аниме"}}

	assert.Less(t, cfg.DynamicScore(anime), cfg.DynamicScore(plain))
}

func TestDynamicScore_CountryBonus(t *testing.T) {
	cfg := testConfig()
	base := &catalog.MovieRecord{RatingKp: 8, RatingImdb: 8, Year: 2020, CountriesRu: []string{"сша"}}
	bonus := &catalog.MovieRecord{RatingKp: 8, RatingImdb: 8, Year: 2020, CountriesRu: []string{"Франция"}}

	assert.Greater(t, cfg.DynamicScore(bonus), cfg.DynamicScore(base))
}

func TestDynamicScore_StandupExcluded(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		name    string
		genres  []string
		content string
		zero    bool
	}{
		{"comedy only with standup keyword", []string{"комедия"}, "сольный стендап концерт", true},
		{"comedy only with english keyword", []string{"comedy"}, "filmed stand-up special", true},
		{"comedy only without keyword", []string{"комедия"}, "романтическая история", false},
		{"comedy plus drama with keyword", []string{"комедия", "драма"}, "стендап", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &catalog.MovieRecord{
				RatingKp:    7,
				RatingImdb:  7,
				Year:        2022,
				GenresRu:    tt.genres,
				PageContent: tt.content,
			}
			score := cfg.DynamicScore(record)
			if tt.zero {
				assert.Zero(t, score)
			} else {
				assert.Positive(t, score)
			}
		})
	}
}

func TestAdjustedDistance_NeverBelowRaw(t *testing.T) {
	cfg := testConfig()
	for _, quality := range []float64{-5, 0, 3.3, 7.77, 10, 15} {
		for _, raw := range []float64{0, 0.1, 0.5, 1.2} {
			adjusted := cfg.AdjustedDistance(raw, quality)
			assert.GreaterOrEqual(t, adjusted, raw,
				"quality=%v raw=%v", quality, raw)
		}
	}
}

func TestAdjustedDistance_PenalizesLowQuality(t *testing.T) {
	cfg := testConfig()
	weak := cfg.AdjustedDistance(0.4, 2)
	strong := cfg.AdjustedDistance(0.4, 9.5)

	assert.Greater(t, weak, strong)
}

func TestHasGenreConflict(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		name      string
		genres    []string
		requested []string
		conflict  bool
	}{
		{"both conflict labels present", []string{"мультфильм", "аниме"}, nil, true},
		{"single label fine", []string{"аниме"}, nil, false},
		{"both requested keeps record", []string{"мультфильм", "аниме"}, []string{"мультфильм", "аниме"}, false},
		{"one requested still drops", []string{"мультфильм", "аниме"}, []string{"аниме"}, true},
		{"case insensitive", []string{"Мультфильм", "АНИМЕ"}, nil, true},
		{"english pair", []string{"animation", "anime"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.hasGenreConflict(tt.genres, tt.requested)
			require.Equal(t, tt.conflict, got)
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "the matrix", normalizeTitle("  The   MATRIX "))
	assert.Equal(t, "начало", normalizeTitle("Начало"))
}
