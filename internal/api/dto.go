package api

import (
	"time"

	"github.com/amajai/contentloop-ai/internal/domain"
)

// StartRequest opens a revision session.
type StartRequest struct {
	Topic         string `json:"topic" validate:"required"`
	ContentLength string `json:"content_length" validate:"omitempty,oneof=short medium long"`
	WritingStyle  string `json:"writing_style"`
}

// FeedbackRequest resumes a session. Feedback may be the empty string but
// must be present.
type FeedbackRequest struct {
	SessionID string  `json:"session_id" validate:"required"`
	Feedback  *string `json:"feedback" validate:"required"`
}

// OptimizationRequest asks for an analysis or hashtags.
type OptimizationRequest struct {
	Content       string `json:"content" validate:"required"`
	Topic         string `json:"topic"`
	ContentLength string `json:"content_length" validate:"omitempty,oneof=short medium long"`
	Industry      string `json:"industry"`
	Count         int    `json:"count" validate:"omitempty,min=1,max=30"`
}

// SessionResponse is returned by start and feedback.
type SessionResponse struct {
	SessionID     string        `json:"session_id"`
	GeneratedPost string        `json:"generated_post"`
	Status        domain.Status `json:"status"`
	Success       bool          `json:"success"`
	Message       string        `json:"message,omitempty"`
}

// SessionDetail is returned by the lookup endpoint.
type SessionDetail struct {
	SessionID       string               `json:"session_id"`
	GeneratedPost   string               `json:"generated_post"`
	Status          domain.Status        `json:"status"`
	Success         bool                 `json:"success"`
	Topic           string               `json:"topic"`
	ContentLength   domain.ContentLength `json:"content_length"`
	WritingStyle    string               `json:"writing_style"`
	FeedbackHistory []string             `json:"feedback_history"`
	CreatedAt       time.Time            `json:"created_at"`
	LastActivity    time.Time            `json:"last_activity"`
}

// StatsResponse reports session counts.
type StatsResponse struct {
	TotalActiveSessions   int     `json:"total_active_sessions"`
	ExpiredSessions       int     `json:"expired_sessions"`
	HealthySessions       int     `json:"healthy_sessions"`
	SessionTimeoutMinutes float64 `json:"session_timeout_minutes"`
}

// CleanupResponse reports a manual sweep.
type CleanupResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	CleanedSessions int    `json:"cleaned_sessions"`
}

// OptimizationResponse wraps an analysis report.
type OptimizationResponse struct {
	OptimizationData domain.OptimizationReport `json:"optimization_data"`
	Success          bool                      `json:"success"`
	Message          string                    `json:"message,omitempty"`
}

// HashtagsResponse wraps hashtag suggestions.
type HashtagsResponse struct {
	Hashtags []string `json:"hashtags"`
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
}

func detailFrom(s *domain.Session) SessionDetail {
	feedback := s.Feedback
	if feedback == nil {
		feedback = []string{}
	}
	return SessionDetail{
		SessionID:       s.ID,
		GeneratedPost:   s.Draft,
		Status:          s.Status,
		Success:         true,
		Topic:           s.Topic,
		ContentLength:   s.Length,
		WritingStyle:    s.Style,
		FeedbackHistory: feedback,
		CreatedAt:       s.CreatedAt,
		LastActivity:    s.ActivityAt(),
	}
}
