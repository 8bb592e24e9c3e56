package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS support_tickets (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	customer_email TEXT NOT NULL DEFAULT '',
	issue_type     TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	priority       TEXT NOT NULL DEFAULT 'medium',
	status         TEXT NOT NULL DEFAULT 'open',
	resolution     TEXT NOT NULL DEFAULT '',
	assigned_agent TEXT NOT NULL DEFAULT '',
	metadata       TEXT NOT NULL DEFAULT '{}',
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_support_tickets_session_created ON support_tickets(session_id, created_at);

CREATE TABLE IF NOT EXISTS conversation_turns (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	user_message     TEXT NOT NULL,
	agent_response   TEXT NOT NULL,
	route            TEXT NOT NULL,
	confidence       REAL NOT NULL DEFAULT 0,
	sentiment_score  REAL NOT NULL DEFAULT 0,
	sentiment_label  TEXT NOT NULL DEFAULT 'neutral',
	response_time_ms INTEGER NOT NULL DEFAULT 0,
	escalated        BOOLEAN NOT NULL DEFAULT 0,
	ticket_id        TEXT NOT NULL DEFAULT '',
	pii_redacted     BOOLEAN NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_turns_session_created ON conversation_turns(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_conversation_turns_created ON conversation_turns(created_at);

CREATE TABLE IF NOT EXISTS feedback (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	rating        INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	feedback_text TEXT NOT NULL DEFAULT '',
	helpful       BOOLEAN NOT NULL DEFAULT 1,
	route         TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);
`

// OpenSQLite opens (creating if needed) a sqlite file and applies the schema.
func OpenSQLite(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer at a time.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &DB{Dialect: DialectSQLite, SQL: db}, nil
}
