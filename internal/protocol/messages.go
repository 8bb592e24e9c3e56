package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatMessage   MessageType = "chat_message"
	TypeClientControl MessageType = "client_control"
	TypeChatReply     MessageType = "chat_reply"
	TypeSystemEvent   MessageType = "system_event"
	TypeErrorEvent    MessageType = "error_event"
)

// Client control actions.
const (
	ActionPing  = "ping"
	ActionReset = "reset"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ChatMessage struct {
	Type          MessageType `json:"type"`
	RequestID     string      `json:"request_id,omitempty"`
	SessionID     string      `json:"session_id,omitempty"`
	Message       string      `json:"message"`
	CustomerEmail string      `json:"customer_email,omitempty"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

type ChatReply struct {
	Type             MessageType `json:"type"`
	RequestID        string      `json:"request_id,omitempty"`
	SessionID        string      `json:"session_id"`
	Response         string      `json:"response"`
	Route            string      `json:"route"`
	Confidence       float64     `json:"confidence"`
	SentimentScore   float64     `json:"sentiment_score"`
	SentimentLabel   string      `json:"sentiment_label"`
	UrgencyScore     float64     `json:"urgency_score"`
	Escalated        bool        `json:"escalated"`
	EscalationReason string      `json:"escalation_reason,omitempty"`
	Priority         string      `json:"priority,omitempty"`
	TicketID         string      `json:"ticket_id,omitempty"`
	Suggestions      []string    `json:"suggestions,omitempty"`
	ResponseTimeMS   int64       `json:"response_time_ms"`
	Timestamp        time.Time   `json:"timestamp"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatMessage:
		var msg ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Message) == "" {
			return nil, errors.New("invalid chat_message: empty message")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case ActionPing, ActionReset:
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
