// Package analytics reports on the durable turn trail and collects customer feedback.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ent0n29/switchboard/internal/database"
)

var ErrInvalidFeedback = errors.New("invalid feedback")

const (
	defaultDays = 7
	maxDays     = 365
)

type RouteStat struct {
	Route             string  `json:"route"`
	Count             int64   `json:"count"`
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
	AvgConfidence     float64 `json:"avg_confidence"`
	EscalationRate    float64 `json:"escalation_rate"`
}

type ConversationStats struct {
	Sessions     int64   `json:"sessions"`
	Messages     int64   `json:"messages"`
	Escalations  int64   `json:"escalations"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

type FeedbackStats struct {
	Count       int64   `json:"count"`
	AvgRating   float64 `json:"avg_rating"`
	HelpfulRate float64 `json:"helpful_rate"`
}

// Report is the combined dashboard payload.
type Report struct {
	Days         int               `json:"days"`
	Since        time.Time         `json:"since"`
	Routes       []RouteStat       `json:"routes"`
	Conversation ConversationStats `json:"conversation"`
	Feedback     FeedbackStats     `json:"feedback"`
}

type Feedback struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"feedback_text,omitempty"`
	Helpful   bool      `json:"helpful"`
	Route     string    `json:"route,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Service runs portable SQL over either backend; only the placeholder style differs.
type Service struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

func New(db *sql.DB, dialect database.Dialect) *Service {
	var format sq.PlaceholderFormat = sq.Question
	if dialect == database.DialectPostgres {
		format = sq.Dollar
	}
	return &Service{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(format),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ClampDays maps a requested reporting window into [1, 365], defaulting to 7.
func ClampDays(days int) int {
	if days <= 0 {
		return defaultDays
	}
	if days > maxDays {
		return maxDays
	}
	return days
}

func (s *Service) since(days int) time.Time {
	return s.now().AddDate(0, 0, -ClampDays(days))
}

// RouteSummary aggregates turns per route, busiest first.
func (s *Service) RouteSummary(ctx context.Context, days int) ([]RouteStat, error) {
	query, args, err := s.sb.Select(
		"route",
		"COUNT(*) AS total",
		"COALESCE(AVG(response_time_ms), 0)",
		"COALESCE(AVG(confidence), 0)",
		"COALESCE(AVG(CASE WHEN escalated THEN 1.0 ELSE 0.0 END), 0)",
	).
		From("conversation_turns").
		Where(sq.GtOrEq{"created_at": s.since(days)}).
		GroupBy("route").
		OrderBy("total DESC", "route").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building route summary: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying route summary: %w", err)
	}
	defer rows.Close()

	out := []RouteStat{}
	for rows.Next() {
		var r RouteStat
		if err := rows.Scan(&r.Route, &r.Count, &r.AvgResponseTimeMS, &r.AvgConfidence, &r.EscalationRate); err != nil {
			return nil, fmt.Errorf("scanning route summary: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating route summary: %w", err)
	}
	return out, nil
}

func (s *Service) ConversationStats(ctx context.Context, days int) (ConversationStats, error) {
	query, args, err := s.sb.Select(
		"COUNT(DISTINCT session_id)",
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN escalated THEN 1 ELSE 0 END), 0)",
		"COALESCE(AVG(sentiment_score), 0)",
	).
		From("conversation_turns").
		Where(sq.GtOrEq{"created_at": s.since(days)}).
		ToSql()
	if err != nil {
		return ConversationStats{}, fmt.Errorf("building conversation stats: %w", err)
	}
	var c ConversationStats
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&c.Sessions, &c.Messages, &c.Escalations, &c.AvgSentiment); err != nil {
		return ConversationStats{}, fmt.Errorf("querying conversation stats: %w", err)
	}
	return c, nil
}

func (s *Service) FeedbackStats(ctx context.Context, days int) (FeedbackStats, error) {
	query, args, err := s.sb.Select(
		"COUNT(*)",
		"COALESCE(AVG(rating), 0)",
		"COALESCE(AVG(CASE WHEN helpful THEN 1.0 ELSE 0.0 END), 0)",
	).
		From("feedback").
		Where(sq.GtOrEq{"created_at": s.since(days)}).
		ToSql()
	if err != nil {
		return FeedbackStats{}, fmt.Errorf("building feedback stats: %w", err)
	}
	var f FeedbackStats
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&f.Count, &f.AvgRating, &f.HelpfulRate); err != nil {
		return FeedbackStats{}, fmt.Errorf("querying feedback stats: %w", err)
	}
	return f, nil
}

// Report runs the three aggregations concurrently.
func (s *Service) Report(ctx context.Context, days int) (Report, error) {
	days = ClampDays(days)
	rep := Report{Days: days, Since: s.since(days)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		routes, err := s.RouteSummary(gctx, days)
		rep.Routes = routes
		return err
	})
	g.Go(func() error {
		conv, err := s.ConversationStats(gctx, days)
		rep.Conversation = conv
		return err
	})
	g.Go(func() error {
		fb, err := s.FeedbackStats(gctx, days)
		rep.Feedback = fb
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return rep, nil
}

// RecordFeedback validates and stores one rating.
func (s *Service) RecordFeedback(ctx context.Context, fb Feedback) (Feedback, error) {
	if fb.SessionID == "" {
		return Feedback{}, fmt.Errorf("%w: session_id is required", ErrInvalidFeedback)
	}
	if fb.Rating < 1 || fb.Rating > 5 {
		return Feedback{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidFeedback)
	}
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}

	query, args, err := s.sb.Insert("feedback").
		Columns("id", "session_id", "rating", "feedback_text", "helpful", "route", "created_at").
		Values(fb.ID, fb.SessionID, fb.Rating, fb.Text, fb.Helpful, fb.Route, fb.CreatedAt).
		ToSql()
	if err != nil {
		return Feedback{}, fmt.Errorf("building feedback insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return Feedback{}, fmt.Errorf("inserting feedback: %w", err)
	}
	return fb, nil
}
