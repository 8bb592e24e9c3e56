package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/switchboard/internal/analytics"
	"github.com/ent0n29/switchboard/internal/config"
	"github.com/ent0n29/switchboard/internal/dispatch"
	"github.com/ent0n29/switchboard/internal/history"
	"github.com/ent0n29/switchboard/internal/observability"
	"github.com/ent0n29/switchboard/internal/tickets"
)

// Deps are the services exposed over HTTP. Analytics is nil when no database is configured.
type Deps struct {
	Dispatch  *dispatch.Service
	History   *history.Store
	Tickets   *tickets.Manager
	Analytics *analytics.Service
	Metrics   *observability.Metrics
	Logger    *slog.Logger

	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
	// Status is echoed by the health endpoints, e.g. store and oracle modes.
	Status map[string]string
}

type Server struct {
	cfg       config.Config
	dispatch  *dispatch.Service
	history   *history.Store
	tickets   *tickets.Manager
	analytics *analytics.Service
	metrics   *observability.Metrics
	logger    *slog.Logger
	ready     func(ctx context.Context) error
	status    map[string]string
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics("switchboard")
	}
	return &Server{
		cfg:       cfg,
		dispatch:  deps.Dispatch,
		history:   deps.History,
		tickets:   deps.Tickets,
		analytics: deps.Analytics,
		metrics:   metrics,
		logger:    logger,
		ready:     deps.Ready,
		status:    deps.Status,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	r.Post("/v1/chat", s.handleChat)
	r.Get("/v1/chat/ws", s.handleChatWS)

	r.Get("/v1/conversations/{id}", s.handleGetConversation)
	r.Delete("/v1/conversations/{id}", s.handleClearConversation)
	r.Get("/v1/conversations/{id}/summary", s.handleConversationSummary)

	r.Post("/v1/feedback", s.handleFeedback)
	r.Get("/v1/analytics", s.handleAnalytics)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Group(func(r chi.Router) {
		if secret := strings.TrimSpace(s.cfg.TicketAPIJWTSecret); secret != "" {
			r.Use(requireBearerJWT([]byte(secret), s.cfg.TicketAPIJWTIssuer))
		}
		r.Post("/v1/tickets", s.handleCreateTicket)
		r.Get("/v1/tickets", s.handleListTickets)
		r.Get("/v1/tickets/{id}", s.handleGetTicket)
		r.Patch("/v1/tickets/{id}", s.handleUpdateTicket)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{"status": "ok"}
	for k, v := range s.status {
		payload[k] = v
	}
	respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"status": "ready"}
	for k, v := range s.status {
		payload[k] = v
	}
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			payload["status"] = "unavailable"
			payload["error"] = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, payload)
			return
		}
	}
	respondJSON(w, http.StatusOK, payload)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Default().Error("response encode failed", "status", status, "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "response could not be encoded", Code: "internal_error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
