package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mehakx/oranew/internal/processor"
)

// TurnRequest is the payload for POST /api/v1/turns.
type TurnRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Text = strings.TrimSpace(req.Text)
	if req.UserID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "user_id and text are required")
		return
	}

	out, err := s.proc.HandleTurn(r.Context(), req.UserID, req.Text)
	if errors.Is(err, processor.ErrAssessmentFailed) {
		slog.Error("turn assessment failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "assessment failed")
		return
	}
	if err != nil {
		slog.Error("turn processing failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	windowDays := 30
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid window_days")
			return
		}
		windowDays = n
	}

	snap, err := s.analyzer.Analyze(r.Context(), userID, windowDays)
	if err != nil {
		slog.Error("progress analysis failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getInsights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	list, err := s.reader.InsightsByUser(r.Context(), userID, 20)
	if err != nil {
		slog.Error("insight lookup failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"insights": list,
	})
}

func (s *Server) refreshInsights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	list, err := s.insights.Generate(r.Context(), userID)
	if err != nil {
		slog.Error("insight generation failed", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"insights": list,
	})
}
