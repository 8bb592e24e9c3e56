package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ent0n29/switchboard/internal/analytics"
)

type feedbackRequest struct {
	SessionID    string `json:"session_id"`
	Rating       int    `json:"rating"`
	FeedbackText string `json:"feedback_text"`
	Helpful      bool   `json:"helpful"`
	Route        string `json:"route"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		respondError(w, http.StatusNotImplemented, "analytics_disabled", "No database configured.")
		return
	}
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	fb, err := s.analytics.RecordFeedback(r.Context(), analytics.Feedback{
		SessionID: strings.TrimSpace(req.SessionID),
		Rating:    req.Rating,
		Text:      req.FeedbackText,
		Helpful:   req.Helpful,
		Route:     strings.TrimSpace(req.Route),
	})
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidFeedback) {
			respondError(w, http.StatusBadRequest, "invalid_feedback", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "feedback_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, fb)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		respondError(w, http.StatusNotImplemented, "analytics_disabled", "No database configured.")
		return
	}
	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_days", "days must be an integer")
			return
		}
		days = parsed
	}
	report, err := s.analytics.Report(r.Context(), analytics.ClampDays(days))
	if err != nil {
		s.logger.Error("analytics report failed", "error", err)
		respondError(w, http.StatusInternalServerError, "analytics_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}
