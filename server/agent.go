package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/autogenz/movieai/agent"
	"github.com/autogenz/movieai/catalog"
	"github.com/autogenz/movieai/internal/metrics"
	"github.com/autogenz/movieai/recommend"
	"github.com/autogenz/movieai/store"
	"github.com/autogenz/movieai/stream"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Locale    string `json:"locale"`
	UserID    string `json:"user_id"`
	Platform  string `json:"platform"`
}

type answerRequest struct {
	SessionID  string `json:"session_id"`
	ToolCallID string `json:"tool_call_id"`
	Answer     string `json:"answer"`
	Locale     string `json:"locale"`
	UserID     string `json:"user_id"`
	Platform   string `json:"platform"`
}

// ndjsonWriter emits one JSON object per line and flushes after each so
// the client sees events as they happen.
type ndjsonWriter struct {
	c echo.Context
}

func newNDJSONWriter(c echo.Context) *ndjsonWriter {
	c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	c.Response().WriteHeader(http.StatusOK)
	return &ndjsonWriter{c: c}
}

func (w *ndjsonWriter) Write(v any) error {
	if err := json.NewEncoder(w.c.Response()).Encode(v); err != nil {
		return err
	}
	w.c.Response().Flush()
	return nil
}

type sessionEnvelope struct {
	SessionID string `json:"session_id"`
	*agent.Event
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// agentChat starts or continues a conversation. The response is an
// NDJSON stream: one agent event, followed by movie events when the
// conversation resolves to a search.
func (s *Server) agentChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message required")
	}

	ctx := c.Request().Context()
	locale := catalog.ParseLocale(req.Locale)

	a, ok := s.getSession(req.SessionID)
	if !ok {
		a = s.newAgent(string(locale))
		s.putSession(a)
	}

	w := newNDJSONWriter(c)
	event, err := a.Run(ctx, req.Message)
	return s.emitAgentOutcome(c, w, a, event, err, req.UserID, req.Platform, locale)
}

// agentAnswer resumes a conversation suspended on a clarifying question.
func (s *Server) agentAnswer(c echo.Context) error {
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	a, ok := s.getSession(req.SessionID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown session")
	}

	ctx := c.Request().Context()
	locale := catalog.ParseLocale(req.Locale)

	w := newNDJSONWriter(c)
	event, err := a.Answer(ctx, req.ToolCallID, req.Answer)
	return s.emitAgentOutcome(c, w, a, event, err, req.UserID, req.Platform, locale)
}

// emitAgentOutcome writes the agent event and, for a resolved search,
// the movie stream. Protocol errors terminate the session with an error
// event; suspended questions keep the session alive.
func (s *Server) emitAgentOutcome(c echo.Context, w *ndjsonWriter, a *agent.Agent, event *agent.Event, err error, userID, platform string, locale catalog.Locale) error {
	if err != nil {
		s.dropSession(a.ID())
		label := "upstream_error"
		if agent.IsProtocolError(err) {
			label = "protocol_error"
		}
		metrics.AgentTurns.WithLabelValues(label).Inc()
		return w.Write(errorEvent{Type: "error", Error: err.Error()})
	}
	metrics.AgentTurns.WithLabelValues(string(event.Type)).Inc()

	if err := w.Write(sessionEnvelope{SessionID: a.ID(), Event: event}); err != nil {
		return err
	}

	switch event.Type {
	case agent.EventQuestion:
		// Session stays registered until the answer arrives.
		return nil
	case agent.EventMessage:
		s.dropSession(a.ID())
		return nil
	case agent.EventSearch:
		s.dropSession(a.ID())
		return s.streamSearch(c, w, event.Search, userID, platform, locale)
	default:
		s.dropSession(a.ID())
		return nil
	}
}

// streamSearch runs retrieval for a resolved search request and streams
// the hydrated movie events.
func (s *Server) streamSearch(c echo.Context, w *ndjsonWriter, req *agent.SearchRequest, userID, platform string, locale catalog.Locale) error {
	ctx := c.Request().Context()

	exclude := s.excludedFor(c, userID, platform)
	q := &recommend.Query{
		Query:           req.Query,
		Genres:          req.Genres,
		Cast:            req.Cast,
		Directors:       req.Directors,
		StartYear:       req.StartYear,
		EndYear:         req.EndYear,
		SuggestedTitles: req.SuggestedTitles,
		Locale:          locale,
		ExcludeKpIDs:    exclude,
	}

	candidates := s.engine.Recommend(ctx, q)
	if len(candidates) == 0 && s.llm != nil {
		// Vector retrieval came up empty; fall back to the
		// generation-driven path that resolves LLM-proposed titles.
		gen := agent.NewTitleGenerator(s.llm, req, locale)
		for event := range s.pipeline.StreamGenerated(ctx, gen, stream.Options{
			Locale:     locale,
			ExcludeSet: exclude,
		}) {
			if err := w.Write(event); err != nil {
				return err
			}
		}
		return nil
	}
	return s.streamCandidates(c, w, req.Query, candidates, locale, exclude)
}

// rerankMinCandidates is the smallest result set worth a rerank call;
// below it the popularity order is as good as the model's.
const rerankMinCandidates = 4

func (s *Server) streamCandidates(c echo.Context, w *ndjsonWriter, query string, candidates []*recommend.Candidate, locale catalog.Locale, exclude map[int64]struct{}) error {
	ctx := c.Request().Context()

	streamCandidates := make([]stream.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		streamCandidates = append(streamCandidates, stream.Candidate{Record: candidate.MovieRecord})
	}
	opts := stream.Options{Locale: locale, ExcludeSet: exclude}

	var events <-chan stream.MovieEvent
	if s.llm != nil && query != "" && len(candidates) >= rerankMinCandidates {
		titles := make([]string, len(candidates))
		for i, candidate := range candidates {
			titles[i] = candidate.Title(locale)
		}
		order := agent.RerankStream(ctx, s.llm, query, titles, locale)
		events = s.pipeline.StreamOrdered(ctx, streamCandidates, order, opts)
	} else {
		events = s.pipeline.Stream(ctx, streamCandidates, opts)
	}

	for event := range events {
		if err := w.Write(event); err != nil {
			return err
		}
	}
	return nil
}

// excludedFor loads the caller's seen-set once per request. An anonymous
// caller has nothing to exclude.
func (s *Server) excludedFor(c echo.Context, userID, platform string) map[int64]struct{} {
	if userID == "" {
		return nil
	}
	exclude, err := s.store.ExcludedKpIDs(c.Request().Context(), store.UserKey{UserID: userID, Platform: platform})
	if err != nil {
		slog.Warn("failed to load excluded ids", "user_id", userID, "error", err)
		return nil
	}
	return exclude
}
