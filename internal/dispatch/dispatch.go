// Package dispatch runs one customer message through scoring, escalation,
// routing and reply generation, and records the outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ent0n29/switchboard/internal/escalation"
	"github.com/ent0n29/switchboard/internal/history"
	"github.com/ent0n29/switchboard/internal/memory"
	"github.com/ent0n29/switchboard/internal/observability"
	"github.com/ent0n29/switchboard/internal/oracle"
	"github.com/ent0n29/switchboard/internal/routing"
	"github.com/ent0n29/switchboard/internal/signals"
	"github.com/ent0n29/switchboard/internal/tickets"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message too long")
)

const (
	DefaultMaxMessageLength = 1000
	DefaultContextTurns     = 5
	DefaultOracleTimeout    = 20 * time.Second

	apologyText = "I apologize, but I encountered an error processing your request. Please try again."
)

// Request is one inbound customer message. An empty SessionID starts a new conversation.
type Request struct {
	SessionID     string `json:"session_id,omitempty"`
	Message       string `json:"message"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Channel       string `json:"channel,omitempty"`
}

type Reply struct {
	SessionID        string              `json:"session_id"`
	Response         string              `json:"response"`
	Route            string              `json:"route"`
	Confidence       float64             `json:"confidence"`
	Signals          signals.Vector      `json:"signals"`
	Escalated        bool                `json:"escalated"`
	EscalationReason string              `json:"escalation_reason,omitempty"`
	Priority         escalation.Priority `json:"priority"`
	TicketID         string              `json:"ticket_id,omitempty"`
	Suggestions      []string            `json:"suggestions,omitempty"`
	ResponseTimeMS   int64               `json:"response_time_ms"`
	Timestamp        time.Time           `json:"timestamp"`
	ResolvedBy       routing.Kind        `json:"resolved_by"`
}

// EscalationSink receives tickets opened by the pipeline. notify.Worker satisfies it.
type EscalationSink interface {
	Enqueue(t tickets.Ticket)
}

// Deps are the collaborators of the pipeline. Recorder, Escalations and Metrics are optional.
type Deps struct {
	History     *history.Store
	Signals     *signals.Aggregator
	Policy      *escalation.Policy
	Resolver    *routing.Resolver
	Oracle      oracle.Oracle
	Tickets     *tickets.Manager
	Recorder    *memory.Recorder
	Escalations EscalationSink
	Metrics     *observability.Metrics
	Logger      *slog.Logger
}

type Options struct {
	ContextTurns     int
	OracleTimeout    time.Duration
	MaxMessageLength int
}

type Service struct {
	deps Deps
	opts Options
	now  func() time.Time
}

func New(deps Deps, opts Options) (*Service, error) {
	switch {
	case deps.History == nil:
		return nil, errors.New("dispatch: history store is required")
	case deps.Signals == nil:
		return nil, errors.New("dispatch: signal aggregator is required")
	case deps.Policy == nil:
		return nil, errors.New("dispatch: escalation policy is required")
	case deps.Resolver == nil:
		return nil, errors.New("dispatch: route resolver is required")
	case deps.Oracle == nil:
		return nil, errors.New("dispatch: oracle is required")
	case deps.Tickets == nil:
		return nil, errors.New("dispatch: ticket manager is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = DefaultContextTurns
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = DefaultOracleTimeout
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = DefaultMaxMessageLength
	}
	return &Service{deps: deps, opts: opts, now: time.Now}, nil
}

// Validate reports whether msg would be accepted by HandleMessage.
func (s *Service) Validate(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(msg); n > s.opts.MaxMessageLength {
		return fmt.Errorf("%w: %d > %d characters", ErrMessageTooLong, n, s.opts.MaxMessageLength)
	}
	return nil
}

// HandleMessage always produces a reply once the message is valid; collaborator
// failures degrade the reply instead of surfacing as errors.
func (s *Service) HandleMessage(ctx context.Context, req Request) (Reply, error) {
	if err := s.Validate(req.Message); err != nil {
		return Reply{}, err
	}
	started := s.now()
	m := s.deps.Metrics

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
		if m != nil {
			m.SessionEvents.WithLabelValues("started").Inc()
		}
	}
	log := s.deps.Logger.With("session_id", sessionID)

	s.deps.History.Append(sessionID, history.Turn{
		Role:      history.RoleUser,
		Content:   req.Message,
		Timestamp: started,
		Metadata:  channelMetadata(req),
	})

	stage := s.now()
	vector := s.deps.Signals.Score(req.Message)
	m.ObserveStage("score", s.now().Sub(stage))

	length := s.deps.History.Len(sessionID)
	decision := s.deps.Policy.Decide(vector, length)

	oreq := oracle.Request{
		SessionID: sessionID,
		Message:   req.Message,
		Context:   s.deps.History.ContextWindow(sessionID, s.opts.ContextTurns),
	}

	result := s.classify(ctx, oreq, log)
	response := s.respond(ctx, result.Route, oreq, log)

	reply := Reply{
		SessionID:   sessionID,
		Route:       result.Route,
		Confidence:  result.Confidence,
		Signals:     vector,
		Priority:    decision.Priority,
		Suggestions: s.deps.Resolver.Catalog().Suggestions(result.Route),
		ResolvedBy:  result.Kind,
	}

	if decision.ShouldEscalate {
		reply.Escalated = true
		reply.EscalationReason = decision.Reason
		if t, err := s.openTicket(ctx, sessionID, req, result.Route, decision, vector, length); err != nil {
			log.Error("escalation ticket creation failed", "reason", decision.Reason, "error", err)
		} else {
			reply.TicketID = t.ID
			response += fmt.Sprintf("\n\nYour case has been escalated to our human support team (Ticket #%s). A representative will assist you shortly.", t.ID)
			if s.deps.Escalations != nil {
				s.deps.Escalations.Enqueue(t)
			}
		}
	}
	reply.Response = response

	finished := s.now()
	reply.Timestamp = finished
	reply.ResponseTimeMS = finished.Sub(started).Milliseconds()

	s.deps.History.Append(sessionID, history.Turn{
		Role:      history.RoleAssistant,
		Content:   response,
		Route:     result.Route,
		Timestamp: finished,
		Metadata: map[string]any{
			"confidence":      result.Confidence,
			"sentiment_score": vector.Score,
			"sentiment_label": string(vector.Label),
			"urgency_score":   vector.UrgencyScore,
			"escalated":       reply.Escalated,
			"ticket_id":       reply.TicketID,
			"resolved_by":     string(result.Kind),
		},
	})

	s.deps.Recorder.Record(memory.TurnRecord{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		UserMessage:    req.Message,
		AgentResponse:  response,
		Route:          result.Route,
		Confidence:     result.Confidence,
		SentimentScore: vector.Score,
		SentimentLabel: string(vector.Label),
		ResponseTimeMS: reply.ResponseTimeMS,
		Escalated:      reply.Escalated,
		TicketID:       reply.TicketID,
		CreatedAt:      finished,
	})

	if m != nil {
		m.Messages.WithLabelValues(result.Route).Inc()
		m.ResolutionOutcomes.WithLabelValues(string(result.Kind)).Inc()
		if reply.Escalated {
			m.Escalations.WithLabelValues(string(decision.Priority), decision.Reason).Inc()
		}
		m.ActiveSessions.Set(float64(s.deps.History.ActiveCount()))
		m.ObserveStage("total", finished.Sub(started))
	}

	log.Info("message handled",
		"route", reply.Route,
		"confidence", reply.Confidence,
		"resolved_by", reply.ResolvedBy,
		"sentiment", vector.Label,
		"escalated", reply.Escalated,
		"ticket_id", reply.TicketID,
		"response_time_ms", reply.ResponseTimeMS,
	)
	return reply, nil
}

func (s *Service) classify(ctx context.Context, req oracle.Request, log *slog.Logger) routing.Result {
	cctx, cancel := context.WithTimeout(ctx, s.opts.OracleTimeout)
	defer cancel()

	stage := s.now()
	raw, err := s.deps.Oracle.Classify(cctx, req)
	s.deps.Metrics.ObserveStage("classify", s.now().Sub(stage))
	if err != nil {
		log.Error("classification failed", "oracle", s.deps.Oracle.Name(), "error", err)
		s.oracleError("classify")
		s.deps.Metrics.ObserveIndicator("classify_fallback")
		return s.deps.Resolver.Fallback("oracle error: " + err.Error())
	}
	return s.deps.Resolver.Resolve(raw)
}

func (s *Service) respond(ctx context.Context, route string, req oracle.Request, log *slog.Logger) string {
	rctx, cancel := context.WithTimeout(ctx, s.opts.OracleTimeout)
	defer cancel()

	stage := s.now()
	text, err := s.deps.Oracle.Respond(rctx, route, req)
	s.deps.Metrics.ObserveStage("respond", s.now().Sub(stage))
	if err != nil {
		log.Error("response generation failed", "oracle", s.deps.Oracle.Name(), "route", route, "error", err)
		s.oracleError("respond")
		s.deps.Metrics.ObserveIndicator("apology_reply")
		return apologyText
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return apologyText
	}
	return text
}

func (s *Service) openTicket(ctx context.Context, sessionID string, req Request, route string, d escalation.Decision, v signals.Vector, length int) (tickets.Ticket, error) {
	stage := s.now()
	defer func() { s.deps.Metrics.ObserveStage("ticket", s.now().Sub(stage)) }()

	return s.deps.Tickets.Create(context.WithoutCancel(ctx), tickets.CreateRequest{
		SessionID:     sessionID,
		CustomerEmail: req.CustomerEmail,
		IssueType:     route,
		Description:   fmt.Sprintf("Automated escalation: %s\n\nUser message: %s", d.Reason, req.Message),
		Priority:      d.Priority,
		Metadata: map[string]any{
			"signals":             v,
			"conversation_length": length,
			"escalation_reason":   d.Reason,
		},
	})
}

func (s *Service) oracleError(op string) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.OracleErrors.WithLabelValues(s.deps.Oracle.Name(), op).Inc()
}

func channelMetadata(req Request) map[string]any {
	meta := map[string]any{}
	if req.Channel != "" {
		meta["channel"] = req.Channel
	}
	if req.CustomerEmail != "" {
		meta["customer_email"] = req.CustomerEmail
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
