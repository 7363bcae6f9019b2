package db

import (
	"database/sql"
	"io"
	"log/slog"
)

// NewTestDB wraps an existing pool (typically sqlmock) in a DB with a
// discarded logger, for tests that exercise code paths taking a *DB.
func NewTestDB(pool *sql.DB) *DB {
	return &DB{
		DB:     pool,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
