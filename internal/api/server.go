// Package api serves AI stock reports over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/stockreport/internal/config"
	"github.com/dgallion1/stockreport/internal/generate"
	"github.com/dgallion1/stockreport/internal/report"
	"github.com/dgallion1/stockreport/internal/sessions"
)

// Deps are the services behind the routes. Jobs and Stats are nil when
// report generation is disabled.
type Deps struct {
	Reports  *report.Service
	Sessions *sessions.Registry
	Jobs     *generate.Queue
	Stats    *generate.LLMStats
}

// Server is the HTTP API server for stockreport.
type Server struct {
	router   chi.Router
	reports  *report.Service
	sessions *sessions.Registry
	jobs     *generate.Queue
	stats    *generate.LLMStats
	log      *slog.Logger
	cfg      config.Config
}

func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	if deps.Sessions == nil {
		deps.Sessions = sessions.NewRegistry(cfg.SessionTTL)
	}
	s := &Server{
		reports:  deps.Reports,
		sessions: deps.Sessions,
		jobs:     deps.Jobs,
		stats:    deps.Stats,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/api/ai_report", s.handleReport)
	r.Get("/api/ai_report/stream", s.handleStream)
	r.Get("/api/ai_report/sessions/{sessionID}", s.handleSession)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/ai_report/generate", s.handleGenerate)
		r.Post("/api/ai_report/generate/batch", s.handleBatchGenerate)
		r.Get("/api/ai_report/generate/{jobID}", s.handleGenerateStatus)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"sessions":   s.sessions.Len(),
		"generation": s.jobs != nil,
	})
}
