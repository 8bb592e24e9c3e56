// Package database opens the durable stores: postgres (pgx pool plus a database/sql
// handle for migrations and query building) or a local sqlite file.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB bundles the handles a backend exposes. Pool is nil for sqlite.
type DB struct {
	Dialect Dialect
	Pool    *pgxpool.Pool
	SQL     *sql.DB
}

// OpenPostgres connects, pings and migrates.
func OpenPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*DB, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sqlDB, err := OpenSQL(ctx, databaseURL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := Migrate(sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, err
	}
	return &DB{Dialect: DialectPostgres, Pool: pool, SQL: sqlDB}, nil
}

// OpenSQL returns a database/sql handle to postgres through lib/pq, used for
// migrations and by tooling that does not need the pgx pool.
func OpenSQL(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (d *DB) Ping(ctx context.Context) error {
	if d.Pool != nil {
		return d.Pool.Ping(ctx)
	}
	return d.SQL.PingContext(ctx)
}

func (d *DB) Close() error {
	if d == nil {
		return nil
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.SQL != nil {
		return d.SQL.Close()
	}
	return nil
}
