package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mehakx/oranew/internal/processor"
	"github.com/mehakx/oranew/internal/progress"
	"github.com/mehakx/oranew/internal/protocol"
	"github.com/mehakx/oranew/internal/risk"
	"github.com/mehakx/oranew/internal/store"
)

type fakeProc struct {
	out processor.Outcome
	err error
}

func (f *fakeProc) HandleTurn(_ context.Context, _, _ string) (processor.Outcome, error) {
	return f.out, f.err
}

type fakeAnalyzer struct {
	snap progress.Snapshot
}

func (f *fakeAnalyzer) Analyze(_ context.Context, userID string, windowDays int) (progress.Snapshot, error) {
	snap := f.snap
	snap.UserID = userID
	return snap, nil
}

type fakeInsights struct {
	list []store.Insight
}

func (f *fakeInsights) Generate(_ context.Context, _ string) ([]store.Insight, error) {
	return f.list, nil
}

func (f *fakeInsights) InsightsByUser(_ context.Context, _ string, _ int) ([]store.Insight, error) {
	return f.list, nil
}

func newTestServer(token string, proc TurnProcessor) *Server {
	ins := &fakeInsights{}
	return NewServer(8760, token, proc, &fakeAnalyzer{}, ins, ins)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer("", &fakeProc{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer("", &fakeProc{})

	req := httptest.NewRequest("GET", "/api/v1/ora/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["service"] != "ora" {
		t.Errorf("expected service ora, got %q", body["service"])
	}
}

func TestHandleTurn_Success(t *testing.T) {
	out := processor.Outcome{
		TurnID:     uuid.New(),
		RiskLevel:  risk.LevelHigh,
		CrisisFlag: true,
		Protocol:   protocol.Choice{Kind: protocol.KindCrisis, ResourceID: "us_988"},
	}
	srv := newTestServer("", &fakeProc{out: out})

	req := httptest.NewRequest("POST", "/api/v1/turns", strings.NewReader(`{"user_id": "u1", "text": "help"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got processor.Outcome
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.RiskLevel != risk.LevelHigh || !got.CrisisFlag {
		t.Errorf("unexpected outcome: %+v", got)
	}
	if got.Protocol.ResourceID != "us_988" {
		t.Errorf("expected crisis resource, got %+v", got.Protocol)
	}
}

func TestHandleTurn_Validation(t *testing.T) {
	srv := newTestServer("", &fakeProc{})

	tests := []string{
		`{not json`,
		`{"user_id": "", "text": "hi"}`,
		`{"user_id": "u1", "text": "  "}`,
	}
	for _, body := range tests {
		req := httptest.NewRequest("POST", "/api/v1/turns", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestHandleTurn_AssessmentFailure(t *testing.T) {
	srv := newTestServer("", &fakeProc{err: processor.ErrAssessmentFailed})

	req := httptest.NewRequest("POST", "/api/v1/turns", strings.NewReader(`{"user_id": "u1", "text": "hi"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestGetProgress(t *testing.T) {
	srv := newTestServer("", &fakeProc{})

	req := httptest.NewRequest("GET", "/api/v1/users/u1/progress?window_days=7", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var snap progress.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snap.UserID != "u1" {
		t.Errorf("expected user u1, got %q", snap.UserID)
	}
}

func TestGetProgress_InvalidWindow(t *testing.T) {
	srv := newTestServer("", &fakeProc{})

	for _, q := range []string{"window_days=abc", "window_days=-1", "window_days=0"} {
		req := httptest.NewRequest("GET", "/api/v1/users/u1/progress?"+q, nil)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer("secret", &fakeProc{})

	// Missing token rejected.
	req := httptest.NewRequest("POST", "/api/v1/turns", strings.NewReader(`{"user_id": "u1", "text": "hi"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	// Wrong token rejected.
	req = httptest.NewRequest("POST", "/api/v1/turns", strings.NewReader(`{"user_id": "u1", "text": "hi"}`))
	req.Header.Set("Authorization", "Bearer nope")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}

	// Correct token accepted.
	req = httptest.NewRequest("POST", "/api/v1/turns", strings.NewReader(`{"user_id": "u1", "text": "hi"}`))
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with correct token, got %d", w.Code)
	}

	// Health stays open.
	req = httptest.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected open health endpoint, got %d", w.Code)
	}
}

func TestGetInsights(t *testing.T) {
	ins := &fakeInsights{list: []store.Insight{{ID: uuid.New(), UserID: "u1", Kind: "pattern", Content: "sleep trouble recurs"}}}
	srv := NewServer(8760, "", &fakeProc{}, &fakeAnalyzer{}, ins, ins)

	req := httptest.NewRequest("GET", "/api/v1/users/u1/insights", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		UserID   string          `json:"user_id"`
		Insights []store.Insight `json:"insights"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Insights) != 1 || body.Insights[0].Content != "sleep trouble recurs" {
		t.Errorf("unexpected insights: %+v", body.Insights)
	}
}
