package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ent0n29/switchboard/internal/escalation"
)

// PostgresStore keeps tickets in the support_tickets table. The schema is owned by
// the database package migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const ticketColumns = `id, session_id, customer_email, issue_type, description, priority, status,
	resolution, assigned_agent, metadata, created_at, updated_at`

func (s *PostgresStore) SaveTicket(ctx context.Context, t Ticket) error {
	metadata := t.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO support_tickets (`+ticketColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			session_id=EXCLUDED.session_id,
			customer_email=EXCLUDED.customer_email,
			issue_type=EXCLUDED.issue_type,
			description=EXCLUDED.description,
			priority=EXCLUDED.priority,
			status=EXCLUDED.status,
			resolution=EXCLUDED.resolution,
			assigned_agent=EXCLUDED.assigned_agent,
			metadata=EXCLUDED.metadata,
			updated_at=EXCLUDED.updated_at`,
		t.ID,
		t.SessionID,
		t.CustomerEmail,
		t.IssueType,
		t.Description,
		string(t.Priority),
		string(t.Status),
		t.Resolution,
		t.AssignedAgent,
		metadata,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert ticket: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTicket(ctx context.Context, ticketID string) (Ticket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE id=$1`, ticketID)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, ErrStoreNotFound
		}
		return Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListTicketsBySession(ctx context.Context, sessionID string, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+ticketColumns+` FROM support_tickets
		  WHERE session_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	out := make([]Ticket, 0, 4)
	for rows.Next() {
		t, err := scanTicket(rows)
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

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

func scanTicket(row pgx.Row) (Ticket, error) {
	var (
		t        Ticket
		priority string
		status   string
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
		&t.Metadata,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return Ticket{}, err
	}
	t.Priority = escalation.Priority(priority)
	t.Status = Status(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}
