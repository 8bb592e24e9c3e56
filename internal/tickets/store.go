package tickets

import (
	"context"
	"errors"
)

var ErrStoreNotFound = errors.New("ticket not found in store")

// Store persists tickets. SaveTicket is an upsert keyed by ticket id, so retries are safe.
type Store interface {
	SaveTicket(ctx context.Context, ticket Ticket) error
	GetTicket(ctx context.Context, ticketID string) (Ticket, error)
	ListTicketsBySession(ctx context.Context, sessionID string, limit int) ([]Ticket, error)
	Close() error
}
