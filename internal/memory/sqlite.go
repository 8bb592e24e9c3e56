package memory

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var lsq = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var turnColumns = []string{
	"id", "session_id", "user_message", "agent_response", "route", "confidence", "sentiment_score",
	"sentiment_label", "response_time_ms", "escalated", "ticket_id", "pii_redacted", "created_at",
}

// SQLiteStore persists the turn trail in a local sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) SaveTurn(ctx context.Context, r TurnRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	query, args, err := lsq.Insert("conversation_turns").
		Columns(turnColumns...).
		Values(r.ID, r.SessionID, r.UserMessage, r.AgentResponse, r.Route, r.Confidence, r.SentimentScore,
			r.SentimentLabel, r.ResponseTimeMS, r.Escalated, r.TicketID, r.PIIRedacted, r.CreatedAt.UTC()).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build turn insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := lsq.Select(turnColumns...).
		From("conversation_turns").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build turn select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	items := make([]TurnRecord, 0, limit)
	for rows.Next() {
		var r TurnRecord
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.UserMessage, &r.AgentResponse, &r.Route, &r.Confidence, &r.SentimentScore,
			&r.SentimentLabel, &r.ResponseTimeMS, &r.Escalated, &r.TicketID, &r.PIIRedacted, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	slices.Reverse(items)
	return items, nil
}

func (s *SQLiteStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := lsq.Delete("conversation_turns").
		Where(sq.Lt{"created_at": cutoff.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build turn purge: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge turns: %w", err)
	}
	return res.RowsAffected()
}

// Close is a no-op; the database handle is owned by the caller.
func (s *SQLiteStore) Close() error { return nil }
