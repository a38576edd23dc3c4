package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docdigest/internal/config"
	"github.com/dgallion1/docdigest/internal/embed"
	"github.com/dgallion1/docdigest/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docdigest.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	provider embed.Provider
	stats    *embed.Stats
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil.
func NewServer(p *pipeline.Pipeline, provider embed.Provider, stats *embed.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		pipeline: p,
		provider: provider,
		stats:    stats,
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

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.Server.APIKey, s.log))

		r.Post("/api/digest", s.handleDigest)
		r.Get("/api/stats/embedding", s.handleEmbeddingStats)
		r.Get("/api/documents", s.handleListDocuments)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
