package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/switchboard/internal/history"
)

type conversationResponse struct {
	SessionID string         `json:"session_id"`
	Turns     []history.Turn `json:"turns"`
	Total     int            `json:"total"`
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	turns := s.history.History(id, limit)
	if len(turns) == 0 {
		respondError(w, http.StatusNotFound, "session_not_found", history.ErrNotFound.Error())
		return
	}
	respondJSON(w, http.StatusOK, conversationResponse{SessionID: id, Turns: turns, Total: s.history.Len(id)})
}

func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	cleared := s.history.Clear(id)
	if cleared {
		s.metrics.SessionEvents.WithLabelValues("cleared").Inc()
		s.metrics.ActiveSessions.Set(float64(s.history.ActiveCount()))
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "cleared": cleared})
}

func (s *Server) handleConversationSummary(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	summary, err := s.history.Summary(id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "summary_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
