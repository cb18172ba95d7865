// Package recommend implements the hybrid retrieval and scoring engine:
// it turns a structured query into a ranked list of catalog records.
package recommend

import "time"

// Config carries the catalog-specific tuning knobs of the engine. The
// label sets encode editorial rules about this catalog's genre taxonomy
// and are data, not logic.
type Config struct {
	// GenreConflicts lists pairs of overlapping genre labels. A record
	// tagged with both labels of a pair is dropped unless the caller
	// explicitly requested both.
	GenreConflicts [][2]string

	// PenaltyGenres are down-ranked multiplicatively in the quality score.
	PenaltyGenres []string
	// PenaltyFactor is the multiplier applied when a penalty genre is present.
	PenaltyFactor float64

	// BonusCountries receive a multiplicative quality bonus.
	BonusCountries []string
	// BonusFactor is the multiplier applied for bonus countries.
	BonusFactor float64

	// StandupKeywords mark stand-up specials inside comedy-only records;
	// such records are excluded entirely (score forced to zero).
	StandupKeywords []string

	// DistancePenaltyWeight tunes the quality penalty in similarity
	// reranking. Zero disables the penalty.
	DistancePenaltyWeight float64

	// MinPopularity filters out obscure records in exact-title search.
	MinPopularity float64

	// MinTitleScore is the relevance threshold under which a title lookup
	// is treated as "not found".
	MinTitleScore float64

	// FreshnessHorizonYears is the age at which the freshness term decays
	// to zero.
	FreshnessHorizonYears int

	// ReferenceYear anchors the freshness decay. Defaults to the current year.
	ReferenceYear int

	// RecommendLimit caps discovery results; SearchLimit caps exact search.
	RecommendLimit int
	SearchLimit    int

	// CandidatePool sizes the raw hybrid fetch before filtering. The
	// no-query path fetches a larger pool since filtering is cheaper.
	CandidatePool        int
	NoQueryCandidatePool int
}

// DefaultConfig returns the tuning used in production for the current catalog.
func DefaultConfig() Config {
	return Config{
		GenreConflicts: [][2]string{
			{"мультфильм", "аниме"},
			{"animation", "anime"},
		},
		PenaltyGenres:  []string{"аниме", "мультфильм", "anime", "animation"},
		PenaltyFactor:  0.85,
		BonusCountries: []string{"франция", "германия", "южная корея", "испания", "аргентина", "бразилия"},
		BonusFactor:    1.1,
		StandupKeywords: []string{
			"стендап", "stand-up", "выступлен",
		},
		DistancePenaltyWeight: 0.15,
		MinPopularity:         5,
		MinTitleScore:         0.5,
		FreshnessHorizonYears: 35,
		ReferenceYear:         time.Now().Year(),
		RecommendLimit:        100,
		SearchLimit:           10,
		CandidatePool:         1000,
		NoQueryCandidatePool:  5000,
	}
}
