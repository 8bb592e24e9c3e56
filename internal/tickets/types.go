package tickets

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/ent0n29/switchboard/internal/escalation"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var ErrInvalidStatus = errors.New("invalid ticket status")

// ParseStatus accepts any of the four status names. Transitions between them are not restricted.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Ticket is a support case handed to a human agent.
type Ticket struct {
	ID            string              `json:"ticket_id"`
	SessionID     string              `json:"session_id"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	IssueType     string              `json:"issue_type"`
	Description   string              `json:"description"`
	Priority      escalation.Priority `json:"priority"`
	Status        Status              `json:"status"`
	Resolution    string              `json:"resolution,omitempty"`
	AssignedAgent string              `json:"assigned_agent,omitempty"`
	Metadata      map[string]any      `json:"metadata,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (t Ticket) Clone() Ticket {
	out := t
	out.Metadata = maps.Clone(t.Metadata)
	return out
}

type CreateRequest struct {
	SessionID     string              `json:"session_id"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	IssueType     string              `json:"issue_type"`
	Description   string              `json:"description"`
	Priority      escalation.Priority `json:"priority"`
	Metadata      map[string]any      `json:"metadata,omitempty"`
}

// UpdateRequest carries only the fields to change; nil means leave as is.
type UpdateRequest struct {
	Status        *Status              `json:"status,omitempty"`
	Resolution    *string              `json:"resolution,omitempty"`
	AssignedAgent *string              `json:"assigned_agent,omitempty"`
	Priority      *escalation.Priority `json:"priority,omitempty"`
}

func (r UpdateRequest) Empty() bool {
	return r.Status == nil && r.Resolution == nil && r.AssignedAgent == nil && r.Priority == nil
}
