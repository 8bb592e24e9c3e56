package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/switchboard/internal/dispatch"
	"github.com/ent0n29/switchboard/internal/protocol"
)

const apologyText = "I apologize, but I encountered an error processing your request. Please try again."

type chatRequest struct {
	SessionID     string `json:"session_id"`
	Message       string `json:"message"`
	CustomerEmail string `json:"customer_email"`
	Channel       string `json:"channel"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.dispatch == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "dispatcher not configured")
		return
	}
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Channel == "" {
		req.Channel = "http"
	}

	reply, err := s.dispatch.HandleMessage(r.Context(), dispatch.Request{
		SessionID:     req.SessionID,
		Message:       req.Message,
		CustomerEmail: req.CustomerEmail,
		Channel:       req.Channel,
	})
	switch {
	case errors.Is(err, dispatch.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "empty_message", err.Error())
		return
	case errors.Is(err, dispatch.ErrMessageTooLong):
		respondError(w, http.StatusBadRequest, "message_too_long", err.Error())
		return
	case err != nil:
		s.logger.Error("chat pipeline failed", "session_id", req.SessionID, "error", err)
		respondJSON(w, http.StatusOK, dispatch.Reply{
			SessionID: req.SessionID,
			Response:  apologyText,
			Timestamp: time.Now().UTC(),
		})
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

// handleChatWS serves a chat conversation over one websocket. Messages are handled
// in arrival order; replies are written by a single writer goroutine.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	if s.dispatch == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "dispatcher not configured")
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 64)
	outbound := make(chan any, 64)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		defer close(outbound)
		s.runChatConnection(ctx, sessionID, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				cancel()
				_ = conn.Close()
				// Keep draining so the runner never blocks on a dead socket.
				for range outbound {
				}
				return
			}
			if t, ok := messageTypeOf(msg); ok {
				s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			parsed = protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Detail:    err.Error(),
			}
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

func (s *Server) runChatConnection(ctx context.Context, sessionID string, inbound <-chan any, outbound chan<- any) {
	for msg := range inbound {
		var out any
		switch m := msg.(type) {
		case protocol.ChatMessage:
			if m.SessionID == "" {
				m.SessionID = sessionID
			}
			out = s.wsChat(ctx, m)
			if reply, ok := out.(protocol.ChatReply); ok {
				sessionID = reply.SessionID
			}
		case protocol.ClientControl:
			if m.SessionID == "" {
				m.SessionID = sessionID
			}
			out = s.wsControl(m)
		case protocol.ErrorEvent:
			out = m
		default:
			continue
		}
		select {
		case outbound <- out:
		case <-ctx.Done():
		}
	}
}

func (s *Server) wsChat(ctx context.Context, m protocol.ChatMessage) any {
	reply, err := s.dispatch.HandleMessage(ctx, dispatch.Request{
		SessionID:     m.SessionID,
		Message:       m.Message,
		CustomerEmail: m.CustomerEmail,
		Channel:       "websocket",
	})
	if err != nil {
		return protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			RequestID: m.RequestID,
			SessionID: m.SessionID,
			Code:      "invalid_message",
			Source:    "dispatch",
			Detail:    err.Error(),
		}
	}
	return protocol.ChatReply{
		Type:             protocol.TypeChatReply,
		RequestID:        m.RequestID,
		SessionID:        reply.SessionID,
		Response:         reply.Response,
		Route:            reply.Route,
		Confidence:       reply.Confidence,
		SentimentScore:   reply.Signals.Score,
		SentimentLabel:   string(reply.Signals.Label),
		UrgencyScore:     reply.Signals.UrgencyScore,
		Escalated:        reply.Escalated,
		EscalationReason: reply.EscalationReason,
		Priority:         string(reply.Priority),
		TicketID:         reply.TicketID,
		Suggestions:      reply.Suggestions,
		ResponseTimeMS:   reply.ResponseTimeMS,
		Timestamp:        reply.Timestamp,
	}
}

func (s *Server) wsControl(m protocol.ClientControl) any {
	switch m.Action {
	case protocol.ActionReset:
		if m.SessionID != "" && s.history != nil && s.history.Clear(m.SessionID) {
			s.metrics.SessionEvents.WithLabelValues("cleared").Inc()
		}
		return protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: m.SessionID, Code: "session_cleared"}
	default:
		return protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: m.SessionID, Code: "pong"}
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ChatMessage:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.ChatReply:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
