package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/autogenz/movieai/catalog"
	"github.com/autogenz/movieai/recommend"
	"github.com/autogenz/movieai/store"
	"github.com/autogenz/movieai/stream"
)

type streamRequest struct {
	Query           string   `json:"query"`
	MovieName       string   `json:"movie_name"`
	Genres          []string `json:"genres"`
	Cast            []string `json:"cast"`
	Directors       []string `json:"directors"`
	StartYear       int      `json:"start_year"`
	EndYear         int      `json:"end_year"`
	RatingKp        float64  `json:"rating_kp"`
	RatingImdb      float64  `json:"rating_imdb"`
	SuggestedTitles []string `json:"suggested_titles"`
	Locale          string   `json:"locale"`
	UserID          string   `json:"user_id"`
	Platform        string   `json:"platform"`
	Limit           int      `json:"limit"`
}

// moviesStream runs retrieval directly, without the agent, and streams
// hydrated movie events as NDJSON.
func (s *Server) moviesStream(c echo.Context) error {
	var req streamRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	locale := catalog.ParseLocale(req.Locale)
	exclude := s.excludedFor(c, req.UserID, req.Platform)
	q := &recommend.Query{
		Query:           req.Query,
		MovieName:       req.MovieName,
		Genres:          req.Genres,
		Cast:            req.Cast,
		Directors:       req.Directors,
		StartYear:       req.StartYear,
		EndYear:         req.EndYear,
		RatingKp:        req.RatingKp,
		RatingImdb:      req.RatingImdb,
		SuggestedTitles: req.SuggestedTitles,
		Locale:          locale,
		ExcludeKpIDs:    exclude,
		Limit:           req.Limit,
	}

	requestID := uuid.NewString()
	candidates := s.engine.Recommend(c.Request().Context(), q)
	slog.Info("movies stream", "request_id", requestID,
		"user_id", req.UserID, "candidates", len(candidates))

	w := newNDJSONWriter(c)
	return s.streamCandidates(c, w, req.Query, candidates, locale, exclude)
}

// moviesSearch is a plain title lookup returning a JSON array, used by
// the search box rather than the discovery flow.
func (s *Server) moviesSearch(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}
	locale := catalog.ParseLocale(c.QueryParam("locale"))

	records := s.engine.Search(c.Request().Context(), query, locale)

	results := make([]stream.MovieEvent, 0, len(records))
	for event := range s.pipeline.Stream(c.Request().Context(), recordCandidates(records), stream.Options{Locale: locale}) {
		if event.Type == stream.EventMovie {
			results = append(results, event)
		}
	}
	return c.JSON(http.StatusOK, results)
}

type similarMoviesResponse struct {
	SourceMovie   stream.MovieEvent   `json:"source_movie"`
	SimilarMovies []stream.MovieEvent `json:"similar_movies"`
}

const landingLimit = 8

// landingMoviesLike resolves a title slug ("the-matrix") to a catalog
// record and returns up to 8 vector neighbors for the landing page.
func (s *Server) landingMoviesLike(c echo.Context) error {
	movieName := strings.TrimSpace(strings.ReplaceAll(c.Param("slug"), "-", " "))
	if movieName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "slug required")
	}
	locale := catalog.ParseLocale(c.QueryParam("locale"))
	limit := landingLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < landingLimit {
			limit = n
		}
	}

	ctx := c.Request().Context()
	matches := s.engine.FindMoviesByTitle(ctx, movieName, locale, nil)
	if len(matches) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "movie not found")
	}
	source := matches[0].MovieRecord

	similar := s.engine.RecommendSimilar(ctx, source.KpID, &recommend.Query{
		Locale: locale,
		Limit:  limit,
	})

	similarEvents := make([]stream.MovieEvent, 0, len(similar))
	candidates := make([]stream.Candidate, 0, len(similar))
	for _, candidate := range similar {
		candidates = append(candidates, stream.Candidate{Record: candidate.MovieRecord})
	}
	for event := range s.pipeline.Stream(ctx, candidates, stream.Options{Locale: locale}) {
		if event.Type == stream.EventMovie {
			similarEvents = append(similarEvents, event)
		}
	}

	sourceEvents := []stream.MovieEvent{}
	for event := range s.pipeline.Stream(ctx, recordCandidates([]*catalog.MovieRecord{source}), stream.Options{Locale: locale}) {
		if event.Type == stream.EventMovie {
			sourceEvents = append(sourceEvents, event)
		}
	}
	if len(sourceEvents) == 0 {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to project source movie")
	}

	return c.JSON(http.StatusOK, similarMoviesResponse{
		SourceMovie:   sourceEvents[0],
		SimilarMovies: similarEvents,
	})
}

type historyRequest struct {
	UserID   string `json:"user_id"`
	Platform string `json:"platform"`
}

func (s *Server) addFavorite(c echo.Context) error {
	return s.addHistoryMark(c, store.HistoryFavorite)
}

func (s *Server) addSkip(c echo.Context) error {
	return s.addHistoryMark(c, store.HistorySkip)
}

func (s *Server) addHistoryMark(c echo.Context, kind store.HistoryKind) error {
	kpID, err := strconv.ParseInt(c.Param("kp_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid movie id")
	}
	var req historyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}

	mark := &store.HistoryMark{
		User: store.UserKey{UserID: req.UserID, Platform: req.Platform},
		KpID: kpID,
	}
	var markErr error
	if kind == store.HistoryFavorite {
		markErr = s.store.AddFavorite(c.Request().Context(), mark)
	} else {
		markErr = s.store.AddSkip(c.Request().Context(), mark)
	}
	if markErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func recordCandidates(records []*catalog.MovieRecord) []stream.Candidate {
	candidates := make([]stream.Candidate, 0, len(records))
	for _, record := range records {
		candidates = append(candidates, stream.Candidate{Record: record})
	}
	return candidates
}
