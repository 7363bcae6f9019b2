// Package repository provides data access layer implementations for the
// transactional core.
package repository

import (
	"context"
	"database/sql"
)

// Querier is the subset of database/sql methods shared by *sql.DB, *sql.Tx
// and db.DB. Repositories are constructed over a Querier so the same code
// runs against the pool or inside an open transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
