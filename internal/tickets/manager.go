package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/switchboard/internal/escalation"
	"github.com/ent0n29/switchboard/internal/reliability"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrInvalidRequest = errors.New("invalid ticket request")
)

const (
	idPrefix     = "TKT-"
	maxIDRetries = 5
)

// Manager owns ticket creation and updates. Writes go to the store synchronously
// and are retried on transient failure. mu only guards id reservation and the
// per-ticket lock table; store writes for different tickets run in parallel.
type Manager struct {
	mu       sync.Mutex
	reserved map[string]struct{}
	locks    map[string]*ticketLock
	store    Store
	logger   *slog.Logger
	retry    reliability.RetryPolicy
	onCreate func(Ticket)
	onUpdate func(Ticket)

	now   func() time.Time
	newID func() string
}

// NewManager uses an in-memory store when store is nil.
func NewManager(store Store, logger *slog.Logger) *Manager {
	if store == nil {
		store = NewInMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		reserved: make(map[string]struct{}),
		locks:    make(map[string]*ticketLock),
		store:    store,
		logger:   logger,
		retry:    reliability.DefaultStoreRetry,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    newTicketID,
	}
}

// SetCreateHook registers a callback run after a ticket is durably created.
func (m *Manager) SetCreateHook(hook func(Ticket)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreate = hook
}

func (m *Manager) SetUpdateHook(hook func(Ticket)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = hook
}

func (m *Manager) Create(ctx context.Context, req CreateRequest) (Ticket, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.IssueType = strings.TrimSpace(req.IssueType)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if req.SessionID == "" {
		return Ticket{}, fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	if req.IssueType == "" {
		return Ticket{}, fmt.Errorf("%w: issue_type is required", ErrInvalidRequest)
	}
	if req.Priority == "" {
		req.Priority = escalation.PriorityMedium
	}
	p, err := escalation.ParsePriority(string(req.Priority))
	if err != nil {
		return Ticket{}, err
	}
	req.Priority = p

	id, err := m.reserveID(ctx)
	if err != nil {
		return Ticket{}, err
	}
	defer m.release(id)

	now := m.now()
	t := Ticket{
		ID:            id,
		SessionID:     req.SessionID,
		CustomerEmail: req.CustomerEmail,
		IssueType:     req.IssueType,
		Description:   req.Description,
		Priority:      req.Priority,
		Status:        StatusOpen,
		Metadata:      maps.Clone(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.save(ctx, t); err != nil {
		m.logger.Error("ticket create failed", "session_id", t.SessionID, "error", err)
		return Ticket{}, fmt.Errorf("create ticket: %w", err)
	}
	m.logger.Info("ticket created", "ticket_id", t.ID, "session_id", t.SessionID, "priority", t.Priority, "issue_type", t.IssueType)
	if hook := m.createHook(); hook != nil {
		hook(t.Clone())
	}
	return t.Clone(), nil
}

func (m *Manager) Get(ctx context.Context, ticketID string) (Ticket, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return Ticket{}, fmt.Errorf("%w: ticket_id is required", ErrInvalidRequest)
	}
	t, err := m.store.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return Ticket{}, ErrTicketNotFound
		}
		return Ticket{}, err
	}
	return t, nil
}

// ListBySession returns the session's tickets, newest first.
func (m *Manager) ListBySession(ctx context.Context, sessionID string, limit int) ([]Ticket, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return []Ticket{}, nil
	}
	return m.store.ListTicketsBySession(ctx, sessionID, limit)
}

// Update applies the provided fields. The returned bool reports whether anything
// changed; UpdatedAt only moves when it did. Unknown ids are logged and return
// ErrTicketNotFound.
func (m *Manager) Update(ctx context.Context, ticketID string, req UpdateRequest) (Ticket, bool, error) {
	ticketID = strings.TrimSpace(ticketID)
	if req.Status != nil {
		st, err := ParseStatus(string(*req.Status))
		if err != nil {
			return Ticket{}, false, err
		}
		req.Status = &st
	}
	if req.Priority != nil {
		p, err := escalation.ParsePriority(string(*req.Priority))
		if err != nil {
			return Ticket{}, false, err
		}
		req.Priority = &p
	}

	unlock := m.lockTicket(ticketID)
	defer unlock()

	t, err := m.store.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			m.logger.Warn("ticket update ignored, unknown ticket", "ticket_id", ticketID)
			return Ticket{}, false, ErrTicketNotFound
		}
		return Ticket{}, false, err
	}

	changed := false
	if req.Status != nil && *req.Status != t.Status {
		t.Status = *req.Status
		changed = true
	}
	if req.Resolution != nil && *req.Resolution != t.Resolution {
		t.Resolution = *req.Resolution
		changed = true
	}
	if req.AssignedAgent != nil && *req.AssignedAgent != t.AssignedAgent {
		t.AssignedAgent = *req.AssignedAgent
		changed = true
	}
	if req.Priority != nil && *req.Priority != t.Priority {
		t.Priority = *req.Priority
		changed = true
	}
	if !changed {
		return t, false, nil
	}

	t.UpdatedAt = m.now()
	if err := m.save(ctx, t); err != nil {
		m.logger.Error("ticket update failed", "ticket_id", ticketID, "error", err)
		return Ticket{}, false, fmt.Errorf("update ticket: %w", err)
	}
	m.logger.Info("ticket updated", "ticket_id", t.ID, "status", t.Status)
	if hook := m.updateHook(); hook != nil {
		hook(t.Clone())
	}
	return t, true, nil
}

func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) save(ctx context.Context, t Ticket) error {
	return reliability.Retry(ctx, m.retry, func(ctx context.Context) error {
		return m.store.SaveTicket(ctx, t)
	})
}

func (m *Manager) createHook() func(Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onCreate
}

func (m *Manager) updateHook() func(Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onUpdate
}

// reserveID picks an id that is neither stored nor held by an in-flight Create.
// The reservation is dropped by release once the ticket is saved or abandoned.
func (m *Manager) reserveID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < maxIDRetries; i++ {
		id := m.newID()
		if _, held := m.reserved[id]; held {
			m.logger.Warn("ticket id collision, regenerating", "ticket_id", id)
			continue
		}
		_, err := m.store.GetTicket(ctx, id)
		if errors.Is(err, ErrStoreNotFound) {
			m.reserved[id] = struct{}{}
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check ticket id: %w", err)
		}
		m.logger.Warn("ticket id collision, regenerating", "ticket_id", id)
	}
	return "", fmt.Errorf("could not allocate a unique ticket id after %d attempts", maxIDRetries)
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	delete(m.reserved, id)
	m.mu.Unlock()
}

type ticketLock struct {
	mu   sync.Mutex
	refs int
}

// lockTicket serializes updates to one ticket and returns the unlock func.
// Entries are dropped from the table once no caller holds or waits on them.
func (m *Manager) lockTicket(id string) func() {
	m.mu.Lock()
	l := m.locks[id]
	if l == nil {
		l = &ticketLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// newTicketID is "TKT-" followed by the first 8 hex digits of a random UUID, upper-cased.
func newTicketID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return idPrefix + strings.ToUpper(raw[:8])
}
