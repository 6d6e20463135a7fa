package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amajai/contentloop-ai/internal/domain"
	"github.com/amajai/contentloop-ai/internal/llm"
	"github.com/amajai/contentloop-ai/internal/session"
	"github.com/amajai/contentloop-ai/internal/store"
	"github.com/amajai/contentloop-ai/internal/workflow"
)

type testServer struct {
	router http.Handler
	svc    *session.Service
	now    *time.Time
}

func newTestServer(t *testing.T, gen llm.Generator) *testServer {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ts := &testServer{now: &now}

	machine := workflow.NewMachine(workflow.NewGenerator(gen))
	ts.svc = session.NewService(store.NewMemoryStore(), machine, 5*time.Minute,
		session.WithClock(func() time.Time { return *ts.now }))

	r := chi.NewRouter()
	NewSessionHandler(ts.svc, DefaultMaxRequestBodySize).RegisterRoutes(r)
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, llm.NewMock(
		llm.MockResponse{Content: "first"},
		llm.MockResponse{Content: "second"},
	))

	w := ts.do(t, http.MethodPost, "/api/ai-agent/start", map[string]string{
		"topic":          "AI in healthcare",
		"content_length": "short",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	started := decode[SessionResponse](t, w)
	assert.NotEmpty(t, started.SessionID)
	assert.Equal(t, "first", started.GeneratedPost)
	assert.Equal(t, domain.StatusWaitingFeedback, started.Status)
	assert.True(t, started.Success)
	assert.Equal(t, msgStarted, started.Message)

	w = ts.do(t, http.MethodPost, "/api/ai-agent/feedback", map[string]string{
		"session_id": started.SessionID,
		"feedback":   "make it punchier",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	revised := decode[SessionResponse](t, w)
	assert.Equal(t, "second", revised.GeneratedPost)
	assert.Equal(t, msgRevised, revised.Message)

	w = ts.do(t, http.MethodPost, "/api/ai-agent/feedback", map[string]string{
		"session_id": started.SessionID,
		"feedback":   "done",
	})
	require.Equal(t, http.StatusOK, w.Code)
	final := decode[SessionResponse](t, w)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, "second", final.GeneratedPost)
	assert.Equal(t, msgFinalized, final.Message)

	w = ts.do(t, http.MethodGet, "/api/ai-agent/session/"+started.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[SessionDetail](t, w)
	assert.Equal(t, []string{"make it punchier", "done"}, detail.FeedbackHistory)
	assert.Equal(t, domain.LengthShort, detail.ContentLength)
	assert.Equal(t, "AI in healthcare", detail.Topic)

	w = ts.do(t, http.MethodDelete, "/api/ai-agent/session/"+started.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Session deleted successfully"}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/ai-agent/session/"+started.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartDefaultsToMedium(t *testing.T) {
	mock := llm.NewMock(llm.MockResponse{Content: "draft"})
	ts := newTestServer(t, mock)

	w := ts.do(t, http.MethodPost, "/api/ai-agent/start", map[string]string{"topic": "Go"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, mock.Calls()[0].Prompt, "Content Length: medium")
}

func TestStartValidation(t *testing.T) {
	ts := newTestServer(t, llm.NewMock(llm.MockResponse{Content: "draft"}))

	w := ts.do(t, http.MethodPost, "/api/ai-agent/start", map[string]string{"content_length": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "topic")
}

func TestStartGenerationFailure(t *testing.T) {
	ts := newTestServer(t, llm.NewMock(llm.MockResponse{Err: errors.New("quota exceeded")}))

	w := ts.do(t, http.MethodPost, "/api/ai-agent/start", map[string]string{"topic": "Go"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Error starting AI agent session: quota exceeded")
}

func TestFeedbackUnknownSession(t *testing.T) {
	ts := newTestServer(t, llm.NewMock(llm.MockResponse{Content: "draft"}))

	w := ts.do(t, http.MethodPost, "/api/ai-agent/feedback", map[string]string{
		"session_id": "nonexistent-id",
		"feedback":   "done",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Session not found"}`, w.Body.String())
}

func TestFeedbackGenerationFailure(t *testing.T) {
	ts := newTestServer(t, llm.NewMock(
		llm.MockResponse{Content: "draft"},
		llm.MockResponse{Err: errors.New("timeout")},
	))

	started := decode[SessionResponse](t, ts.do(t, http.MethodPost, "/api/ai-agent/start", map[string]string{"topic": "Go"}))
	w := ts.do(t, http.MethodPost, "/api/ai-agent/feedback", map[string]string{
		"session_id": started.SessionID,
		"feedback":   "again",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Error processing feedback: timeout")
}

func TestDeleteUnknownSession(t *testing.T) {
	ts := newTestServer(t, llm.NewMock(llm.MockResponse{Content: "draft"}))
	w := ts.do(t, http.MethodDelete, "/api/ai-agent/session/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsAndCleanup(t *testing.T) {
	ts := newTestServer(t, llm.NewMock(llm.MockResponse{Content: "draft"}))

	ts.do(t, http.MethodPost, "/api/ai-agent/start", map[string]string{"topic": "old"})
	*ts.now = ts.now.Add(4 * time.Minute)
	ts.do(t, http.MethodPost, "/api/ai-agent/start", map[string]string{"topic": "new"})
	*ts.now = ts.now.Add(2 * time.Minute)

	w := ts.do(t, http.MethodGet, "/api/ai-agent/sessions/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"total_active_sessions": 2,
		"expired_sessions": 1,
		"healthy_sessions": 1,
		"session_timeout_minutes": 5
	}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/ai-agent/sessions/cleanup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"success": true,
		"message": "Cleanup completed. Removed 1 expired sessions.",
		"cleaned_sessions": 1
	}`, w.Body.String())

	stats, err := ts.svc.CurrentStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}
