// Package api exposes a small read-only HTTP surface over the unified
// tables: health, the latest run summary, and row counts. It never mutates
// anything; writes stay with the pipeline.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/firmable/unify/internal/model"
	"github.com/firmable/unify/internal/store"
)

// Server serves the read-only API.
type Server struct {
	store store.Store

	mu      sync.RWMutex
	summary *model.RunSummary
}

// NewServer builds a Server over the given store.
func NewServer(st store.Store) *Server {
	return &Server{store: st}
}

// SetSummary records the latest run summary for /v1/summary.
func (s *Server) SetSummary(sum *model.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = sum
}

// Router builds the chi router with CORS and recovery middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/summary", s.handleSummary)
	r.Get("/v1/unified/count", s.handleCount)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	sum := s.summary
	s.mu.RUnlock()

	if sum == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run has completed"})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountUnified(r.Context())
	if err != nil {
		zap.L().Error("count unified failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "count failed"})
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}
