// Package api exposes the structural model over HTTP. It is the display
// layer's data source: every endpoint returns JSON views of an analysis held
// in the registry, and holds no state beyond that registry.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/odooscope/odooscope/internal/config"
	"github.com/odooscope/odooscope/internal/fetch"
	"github.com/odooscope/odooscope/internal/parser"
	"github.com/odooscope/odooscope/internal/store"
)

// Analysis is one completed module analysis held in the registry.
type Analysis struct {
	ID        uuid.UUID      `json:"id"`
	Module    *parser.Module `json:"-"`
	CommitSHA string         `json:"commit_sha,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Server represents the API server
type Server struct {
	cfg     *config.Config
	router  *chi.Mux
	fetcher *fetch.Service
	store   *store.Store // nil when persistence is disabled

	mu       sync.RWMutex
	analyses map[uuid.UUID]*Analysis
}

// NewServer creates a new API server. st may be nil.
func NewServer(cfg *config.Config, st *store.Store) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		fetcher:  fetch.NewService(cfg.WorkspaceDir, cfg.GitToken),
		store:    st,
		analyses: make(map[uuid.UUID]*Analysis),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/ready", s.readyCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.createAnalysis)
			r.Get("/", s.listAnalyses)

			r.Route("/{analysisID}", func(r chi.Router) {
				r.Get("/", s.getAnalysis)
				r.Get("/models", s.listModels)
				r.Get("/models/{modelName}", s.getModel)
				r.Get("/graph", s.getGraph)
				r.Get("/stats", s.getStats)
				r.Get("/quality", s.getQuality)
				r.Get("/export", s.getExport)
				r.Get("/views", s.listViews)
				r.Get("/security", s.listSecurityRules)
				r.Get("/menus", s.listMenus)
			})
		})
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// lookup returns the analysis named in the URL, or nil after writing a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *Analysis {
	id, err := uuid.Parse(chi.URLParam(r, "analysisID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid analysis id")
		return nil
	}

	s.mu.RLock()
	analysis, ok := s.analyses[id]
	s.mu.RUnlock()
	if !ok {
		respondError(w, http.StatusNotFound, "analysis not found")
		return nil
	}
	return analysis
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
