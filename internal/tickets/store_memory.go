package tickets

import (
	"context"
	"sort"
	"sync"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]Ticket
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tickets: make(map[string]Ticket)}
}

func (s *InMemoryStore) SaveTicket(_ context.Context, ticket Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (s *InMemoryStore) GetTicket(_ context.Context, ticketID string) (Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return Ticket{}, ErrStoreNotFound
	}
	return t.Clone(), nil
}

func (s *InMemoryStore) ListTicketsBySession(_ context.Context, sessionID string, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	out := make([]Ticket, 0, 4)
	for _, t := range s.tickets {
		if t.SessionID == sessionID {
			out = append(out, t.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
