package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/switchboard/internal/escalation"
	"github.com/ent0n29/switchboard/internal/tickets"
)

type createTicketRequest struct {
	SessionID     string         `json:"session_id"`
	CustomerEmail string         `json:"customer_email"`
	IssueType     string         `json:"issue_type"`
	Description   string         `json:"description"`
	Priority      string         `json:"priority"`
	Metadata      map[string]any `json:"metadata"`
}

type updateTicketRequest struct {
	Status        *string `json:"status"`
	Resolution    *string `json:"resolution"`
	AssignedAgent *string `json:"assigned_agent"`
	Priority      *string `json:"priority"`
}

type updateTicketResponse struct {
	Ticket  tickets.Ticket `json:"ticket"`
	Changed bool           `json:"changed"`
}

type listTicketsResponse struct {
	SessionID string           `json:"session_id"`
	Tickets   []tickets.Ticket `json:"tickets"`
	Total     int              `json:"total"`
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	var priority escalation.Priority
	if strings.TrimSpace(req.Priority) != "" {
		p, err := escalation.ParsePriority(req.Priority)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_priority", err.Error())
			return
		}
		priority = p
	}
	meta := req.Metadata
	if agent := agentFromContext(r.Context()); agent != "" {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["created_by"] = agent
	}

	t, err := s.tickets.Create(r.Context(), tickets.CreateRequest{
		SessionID:     req.SessionID,
		CustomerEmail: req.CustomerEmail,
		IssueType:     req.IssueType,
		Description:   req.Description,
		Priority:      priority,
		Metadata:      meta,
	})
	if err != nil {
		if errors.Is(err, tickets.ErrInvalidRequest) {
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "ticket_create_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := strings.TrimSpace(chi.URLParam(r, "id"))
	if ticketID == "" {
		respondError(w, http.StatusBadRequest, "invalid_ticket_id", "missing ticket id")
		return
	}
	t, err := s.tickets.Get(r.Context(), ticketID)
	if err != nil {
		if errors.Is(err, tickets.ErrTicketNotFound) {
			respondError(w, http.StatusNotFound, "ticket_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "ticket_lookup_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := strings.TrimSpace(chi.URLParam(r, "id"))
	if ticketID == "" {
		respondError(w, http.StatusBadRequest, "invalid_ticket_id", "missing ticket id")
		return
	}
	var body updateTicketRequest
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var req tickets.UpdateRequest
	if body.Status != nil {
		st, err := tickets.ParseStatus(*body.Status)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_status", err.Error())
			return
		}
		req.Status = &st
	}
	if body.Priority != nil {
		p, err := escalation.ParsePriority(*body.Priority)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_priority", err.Error())
			return
		}
		req.Priority = &p
	}
	req.Resolution = body.Resolution
	req.AssignedAgent = body.AssignedAgent
	if req.Empty() {
		respondError(w, http.StatusBadRequest, "invalid_request", "no fields to update")
		return
	}

	t, changed, err := s.tickets.Update(r.Context(), ticketID, req)
	if err != nil {
		switch {
		case errors.Is(err, tickets.ErrTicketNotFound):
			respondError(w, http.StatusNotFound, "ticket_not_found", err.Error())
		case errors.Is(err, tickets.ErrInvalidStatus), errors.Is(err, escalation.ErrInvalidPriority):
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "ticket_update_failed", err.Error())
		}
		return
	}
	if changed {
		s.logger.Info("ticket updated via api", "ticket_id", t.ID, "agent", agentFromContext(r.Context()))
	}
	respondJSON(w, http.StatusOK, updateTicketResponse{Ticket: t, Changed: changed})
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(parsed, 200)
	}

	items, err := s.tickets.ListBySession(r.Context(), sessionID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ticket_list_failed", err.Error())
		return
	}
	if items == nil {
		items = []tickets.Ticket{}
	}
	respondJSON(w, http.StatusOK, listTicketsResponse{SessionID: sessionID, Tickets: items, Total: len(items)})
}
