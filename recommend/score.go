package recommend

import (
	"math"
	"strings"

	"github.com/autogenz/movieai/catalog"
)

// DynamicScore computes the quality score of a record: a weighted sum of
// log-smoothed vote counts, the two ratings, and a linear freshness term,
// with multiplicative genre/country adjustments. Stand-up specials hiding
// in comedy-only records are forced to zero and thereby excluded.
//
// The score is a pure function of the record and config; it is rounded to
// two decimals so equal inputs always produce the identical value.
func (c *Config) DynamicScore(m *catalog.MovieRecord) float64 {
	score := 0.2*math.Log1p(float64(m.VotesImdb)) +
		0.05*math.Log1p(float64(m.VotesKp)) +
		0.4*m.RatingImdb +
		0.4*m.RatingKp

	horizon := c.FreshnessHorizonYears
	if horizon <= 0 {
		horizon = 35
	}
	freshness := 1.0 - float64(c.ReferenceYear-m.Year)/float64(horizon)
	if freshness < 0 {
		freshness = 0
	}
	score += freshness

	genres := lowerAll(append(append([]string{}, m.GenresRu...), m.GenresEn...))

	if c.isStandup(genres, m.PageContent) {
		return 0
	}

	if containsAny(genres, c.PenaltyGenres) {
		score *= c.PenaltyFactor
	}

	countries := lowerAll(append(append([]string{}, m.CountriesRu...), m.CountriesEn...))
	if containsAny(countries, c.BonusCountries) {
		score *= c.BonusFactor
	}

	return math.Round(score*100) / 100
}

// isStandup reports whether a comedy-only record looks like a recorded
// stand-up special. Genre tagging alone cannot tell these apart from
// feature comedies, hence the content-blob keyword check.
func (c *Config) isStandup(lowerGenres []string, content string) bool {
	comedyOnly := len(lowerGenres) > 0
	for _, g := range lowerGenres {
		if g != "комедия" && g != "comedy" {
			comedyOnly = false
			break
		}
	}
	if !comedyOnly {
		return false
	}
	lower := strings.ToLower(content)
	for _, kw := range c.StandupKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// AdjustedDistance penalizes a raw cosine distance by low quality: the
// multiplier grows with the gap between the quality score and 10, so a
// close but weak neighbor can be outranked by a slightly farther strong
// one without being discarded. The result is never below the raw distance
// for non-negative penalty weights.
func (c *Config) AdjustedDistance(rawDistance, qualityScore float64) float64 {
	if qualityScore > 10 {
		qualityScore = 10
	}
	gap := 10 - qualityScore
	if gap < 0 {
		gap = 0
	}
	return rawDistance * (1 + c.DistancePenaltyWeight*math.Log1p(gap))
}

// hasGenreConflict reports whether the record carries both labels of a
// configured conflict pair that the caller did not explicitly request.
func (c *Config) hasGenreConflict(recordGenres, requestedGenres []string) bool {
	record := lowerAll(recordGenres)
	requested := lowerAll(requestedGenres)
	for _, pair := range c.GenreConflicts {
		a, b := strings.ToLower(pair[0]), strings.ToLower(pair[1])
		if contains(record, a) && contains(record, b) {
			if contains(requested, a) && contains(requested, b) {
				continue
			}
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsAny(haystack, needles []string) bool {
	for _, n := range needles {
		if contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
