package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amajai/contentloop-ai/internal/domain"
	"github.com/amajai/contentloop-ai/internal/optimize"
)

// OptimizationHandler serves the stateless optimization endpoints. They never
// fail on model output; only request validation produces errors.
type OptimizationHandler struct {
	analyzer *optimize.Analyzer
	maxBody  int64
}

// NewOptimizationHandler creates a handler over analyzer.
func NewOptimizationHandler(analyzer *optimize.Analyzer, maxBody int64) *OptimizationHandler {
	return &OptimizationHandler{analyzer: analyzer, maxBody: maxBody}
}

// RegisterRoutes registers optimization routes.
func (h *OptimizationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/optimization", func(r chi.Router) {
		r.Post("/analyze", h.Analyze)
		r.Post("/hashtags", h.Hashtags)
	})
}

// Analyze returns an optimization report.
func (h *OptimizationHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req OptimizationRequest
	if !decodeAndValidate(w, r, h.maxBody, &req) {
		return
	}

	length, err := domain.ParseContentLength(req.ContentLength)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	industry := req.Industry
	if industry == "" {
		industry = "general"
	}

	report := h.analyzer.Analyze(r.Context(), req.Content, req.Topic, length, industry)
	JSON(w, http.StatusOK, OptimizationResponse{
		OptimizationData: report,
		Success:          true,
		Message:          "Content analysis completed successfully",
	})
}

// Hashtags returns hashtag suggestions only.
func (h *OptimizationHandler) Hashtags(w http.ResponseWriter, r *http.Request) {
	var req OptimizationRequest
	if !decodeAndValidate(w, r, h.maxBody, &req) {
		return
	}

	tags := h.analyzer.SuggestHashtags(r.Context(), req.Content, req.Topic, req.Count)
	JSON(w, http.StatusOK, HashtagsResponse{
		Hashtags: tags,
		Success:  true,
		Message:  "Hashtag suggestions generated successfully",
	})
}
