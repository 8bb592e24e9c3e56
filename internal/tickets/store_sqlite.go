package tickets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/ent0n29/switchboard/internal/escalation"
)

// SQLiteStore keeps tickets in a local sqlite file opened by database.OpenSQLite.
type SQLiteStore struct {
	db *sql.DB
}

var lsq = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var sqliteTicketColumns = []string{
	"id", "session_id", "customer_email", "issue_type", "description", "priority", "status",
	"resolution", "assigned_agent", "metadata", "created_at", "updated_at",
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) SaveTicket(ctx context.Context, t Ticket) error {
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("encode ticket metadata: %w", err)
	}
	query, args, err := lsq.Insert("support_tickets").
		Columns(sqliteTicketColumns...).
		Values(
			t.ID, t.SessionID, t.CustomerEmail, t.IssueType, t.Description, string(t.Priority), string(t.Status),
			t.Resolution, t.AssignedAgent, string(metadata), t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			session_id=excluded.session_id,
			customer_email=excluded.customer_email,
			issue_type=excluded.issue_type,
			description=excluded.description,
			priority=excluded.priority,
			status=excluded.status,
			resolution=excluded.resolution,
			assigned_agent=excluded.assigned_agent,
			metadata=excluded.metadata,
			updated_at=excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ticket upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert ticket: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTicket(ctx context.Context, ticketID string) (Ticket, error) {
	query, args, err := lsq.Select(sqliteTicketColumns...).
		From("support_tickets").
		Where(sq.Eq{"id": ticketID}).
		ToSql()
	if err != nil {
		return Ticket{}, fmt.Errorf("build ticket select: %w", err)
	}
	t, err := scanSQLiteTicket(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Ticket{}, ErrStoreNotFound
		}
		return Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTicketsBySession(ctx context.Context, sessionID string, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args, err := lsq.Select(sqliteTicketColumns...).
		From("support_tickets").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ticket list: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	out := make([]Ticket, 0, 4)
	for rows.Next() {
		t, err := scanSQLiteTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket rows: %w", err)
	}
	return out, nil
}

// Close is a no-op; the database handle is owned by the caller.
func (s *SQLiteStore) Close() error { return nil }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTicket(row rowScanner) (Ticket, error) {
	var (
		t        Ticket
		priority string
		status   string
		metadata string
	)
	if err := row.Scan(
		&t.ID,
		&t.SessionID,
		&t.CustomerEmail,
		&t.IssueType,
		&t.Description,
		&priority,
		&status,
		&t.Resolution,
		&t.AssignedAgent,
		&metadata,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return Ticket{}, err
	}
	if metadata != "" && metadata != "null" {
		if err := json.Unmarshal([]byte(metadata), &t.Metadata); err != nil {
			return Ticket{}, fmt.Errorf("decode ticket metadata: %w", err)
		}
	}
	t.Priority = escalation.Priority(priority)
	t.Status = Status(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}
