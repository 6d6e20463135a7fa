package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amajai/contentloop-ai/internal/domain"
	"github.com/amajai/contentloop-ai/internal/session"
	"github.com/amajai/contentloop-ai/internal/workflow"
)

// Response messages.
const (
	msgStarted   = "AI agent session started. Content generated, waiting for feedback."
	msgRevised   = "Feedback processed. New content generated, waiting for more feedback."
	msgFinalized = "Content finalized successfully!"
	msgDeleted   = "Session deleted successfully"
	msgNotFound  = "Session not found"
)

// SessionHandler serves the revision loop endpoints.
type SessionHandler struct {
	svc     *session.Service
	maxBody int64
}

// NewSessionHandler creates a handler over svc. maxBody caps request bodies.
func NewSessionHandler(svc *session.Service, maxBody int64) *SessionHandler {
	return &SessionHandler{svc: svc, maxBody: maxBody}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/ai-agent", func(r chi.Router) {
		r.Post("/start", h.Start)
		r.Post("/feedback", h.Feedback)
		r.Get("/session/{id}", h.Get)
		r.Delete("/session/{id}", h.Delete)
		r.Get("/sessions/stats", h.Stats)
		r.Post("/sessions/cleanup", h.Cleanup)
	})
}

// Start creates a session and returns its first draft.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !decodeAndValidate(w, r, h.maxBody, &req) {
		return
	}

	length, err := domain.ParseContentLength(req.ContentLength)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.svc.Create(r.Context(), req.Topic, length, req.WritingStyle)
	if err != nil {
		writeServiceError(w, err, "Error starting AI agent session")
		return
	}

	JSON(w, http.StatusOK, SessionResponse{
		SessionID:     s.ID,
		GeneratedPost: s.Draft,
		Status:        s.Status,
		Success:       true,
		Message:       msgStarted,
	})
}

// Feedback resumes a session with human feedback.
func (h *SessionHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !decodeAndValidate(w, r, h.maxBody, &req) {
		return
	}

	s, err := h.svc.SubmitFeedback(r.Context(), req.SessionID, *req.Feedback)
	if err != nil {
		writeServiceError(w, err, "Error processing feedback")
		return
	}

	msg := msgRevised
	if s.Status == domain.StatusCompleted {
		msg = msgFinalized
	}
	JSON(w, http.StatusOK, SessionResponse{
		SessionID:     s.ID,
		GeneratedPost: s.Draft,
		Status:        s.Status,
		Success:       true,
		Message:       msg,
	})
}

// Get returns the current state of a session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Error loading session")
		return
	}
	JSON(w, http.StatusOK, detailFrom(s))
}

// Delete removes a session.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "Error deleting session")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": msgDeleted,
	})
}

// Stats reports total, expired and healthy sessions without evicting any.
func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.CurrentStats(r.Context())
	if err != nil {
		slog.Error("Failed to compute session stats", "error", err)
		Error(w, http.StatusInternalServerError, "failed to compute session stats")
		return
	}
	JSON(w, http.StatusOK, StatsResponse{
		TotalActiveSessions:   stats.Total,
		ExpiredSessions:       stats.Expired,
		HealthySessions:       stats.Healthy,
		SessionTimeoutMinutes: h.svc.Timeout().Minutes(),
	})
}

// Cleanup runs an immediate sweep.
func (h *SessionHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Sweep(r.Context())
	if err != nil {
		slog.Error("Manual cleanup failed", "error", err)
		Error(w, http.StatusInternalServerError, "cleanup failed")
		return
	}
	JSON(w, http.StatusOK, CleanupResponse{
		Success:         true,
		Message:         fmt.Sprintf("Cleanup completed. Removed %d expired sessions.", n),
		CleanedSessions: n,
	})
}

func writeServiceError(w http.ResponseWriter, err error, prefix string) {
	var genErr *workflow.GenerationError
	switch {
	case errors.Is(err, session.ErrNotFound):
		Error(w, http.StatusNotFound, msgNotFound)
	case errors.As(err, &genErr):
		Error(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", prefix, genErr.Err))
	default:
		slog.Error(prefix, "error", err)
		Error(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", prefix, err))
	}
}
