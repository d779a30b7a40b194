package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mehakx/oranew/internal/processor"
	"github.com/mehakx/oranew/internal/progress"
	"github.com/mehakx/oranew/internal/store"
)

// TurnProcessor runs the turn pipeline for one utterance.
type TurnProcessor interface {
	HandleTurn(ctx context.Context, userID, text string) (processor.Outcome, error)
}

// ProgressAnalyzer computes trend snapshots on demand.
type ProgressAnalyzer interface {
	Analyze(ctx context.Context, userID string, windowDays int) (progress.Snapshot, error)
}

// InsightService generates and reads therapeutic insights.
type InsightService interface {
	Generate(ctx context.Context, userID string) ([]store.Insight, error)
}

// InsightReader lists stored insights for a user.
type InsightReader interface {
	InsightsByUser(ctx context.Context, userID string, limit int) ([]store.Insight, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	proc     TurnProcessor
	analyzer ProgressAnalyzer
	insights InsightService
	reader   InsightReader
}

func NewServer(port int, apiToken string, proc TurnProcessor, analyzer ProgressAnalyzer, gen InsightService, reader InsightReader) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		proc:     proc,
		analyzer: analyzer,
		insights: gen,
		reader:   reader,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/ora/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/turns", s.handleTurn)
		r.Get("/users/{userID}/progress", s.getProgress)
		r.Get("/users/{userID}/insights", s.getInsights)
		r.Post("/users/{userID}/insights/refresh", s.refreshInsights)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "ora",
		"status":  "ready",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
