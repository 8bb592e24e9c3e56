package memory

import "github.com/ent0n29/switchboard/internal/database"

// NewStore creates a database-backed store when one is open, otherwise in-memory.
func NewStore(db *database.DB) Store {
	if db == nil {
		return NewInMemoryStore()
	}
	switch db.Dialect {
	case database.DialectPostgres:
		return NewPostgresStore(db.Pool)
	case database.DialectSQLite:
		return NewSQLiteStore(db.SQL)
	default:
		return NewInMemoryStore()
	}
}
