package memory

import (
	"context"
	"time"
)

// TurnRecord is the durable analytics row for one handled message.
type TurnRecord struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	UserMessage    string    `json:"user_message"`
	AgentResponse  string    `json:"agent_response"`
	Route          string    `json:"route"`
	Confidence     float64   `json:"confidence"`
	SentimentScore float64   `json:"sentiment_score"`
	SentimentLabel string    `json:"sentiment_label"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	Escalated      bool      `json:"escalated"`
	TicketID       string    `json:"ticket_id,omitempty"`
	PIIRedacted    bool      `json:"pii_redacted"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists the turn trail. It mirrors live history and is never read on the hot path.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}
