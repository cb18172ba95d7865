// Package server exposes the agent and retrieval pipeline over HTTP with
// NDJSON streaming responses.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autogenz/movieai/agent"
	"github.com/autogenz/movieai/ai"
	"github.com/autogenz/movieai/internal/profile"
	"github.com/autogenz/movieai/internal/version"
	"github.com/autogenz/movieai/recommend"
	"github.com/autogenz/movieai/store"
	"github.com/autogenz/movieai/stream"
)

// AgentFactory creates a fresh conversation agent. Injected so tests can
// substitute a scripted LLM.
type AgentFactory func(locale string) *agent.Agent

type Server struct {
	e       *echo.Echo
	profile *profile.Profile

	store    *store.Store
	engine   *recommend.Engine
	pipeline *stream.Pipeline
	llm      ai.LLMService
	newAgent AgentFactory

	mu       sync.Mutex
	sessions map[string]*agent.Agent
}

func NewServer(profile *profile.Profile, storeInstance *store.Store, engine *recommend.Engine, pipeline *stream.Pipeline, llm ai.LLMService, newAgent AgentFactory) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		e:        e,
		profile:  profile,
		store:    storeInstance,
		engine:   engine,
		pipeline: pipeline,
		llm:      llm,
		newAgent: newAgent,
		sessions: make(map[string]*agent.Agent),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version.String(),
		})
	})
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.e.Group("/api/v1")
	v1.POST("/agent/chat", s.agentChat)
	v1.POST("/agent/answer", s.agentAnswer)
	v1.POST("/movies/stream", s.moviesStream)
	v1.GET("/movies/search", s.moviesSearch)
	v1.GET("/landing/movies-like/:slug", s.landingMoviesLike)
	v1.POST("/movies/:kp_id/favorite", s.addFavorite)
	v1.POST("/movies/:kp_id/skip", s.addSkip)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.e.Shutdown(shutdownCtx)
}

// session registry: one live agent per suspended conversation. Entries
// are removed when the conversation resolves or errors.

func (s *Server) putSession(a *agent.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[a.ID()] = a
}

func (s *Server) getSession(id string) (*agent.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.sessions[id]
	return a, ok
}

func (s *Server) dropSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
