package history

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one recorded message within a session.
type Turn struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Route     string         `json:"route,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Summary describes a live session without its transcript.
type Summary struct {
	SessionID         string    `json:"session_id"`
	MessageCount      int       `json:"message_count"`
	UserMessages      int       `json:"user_messages"`
	AssistantMessages int       `json:"assistant_messages"`
	RoutesUsed        []string  `json:"routes_used"`
	StartedAt         time.Time `json:"started_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
}
