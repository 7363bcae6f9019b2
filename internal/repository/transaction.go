package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/voxline/core/internal/models"
)

// TransactionRepository defines the interface for the append-only ledger.
// There are deliberately no update or delete methods: ledger entries are
// immutable once written.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, key string, direction models.TransactionDirection) (*models.Transaction, error)
	FindByExternalRef(ctx context.Context, externalRef string) (*models.Transaction, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Transaction, error)
	SumDeltas(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type transactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(q Querier) TransactionRepository {
	return &transactionRepository{q: q}
}

const transactionColumns = `
	id, tenant_id, type, direction, amount_cents,
	balance_before_cents, balance_after_cents,
	description, idempotency_key, external_ref, created_at
`

// Create appends a ledger entry. A unique index on
// (idempotency_key, direction) maps replays to ErrDuplicateTransaction so
// callers can resolve to the original entry.
func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transactions (
			id, tenant_id, type, direction, amount_cents,
			balance_before_cents, balance_after_cents,
			description, idempotency_key, external_ref, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		txn.ID,
		txn.TenantID,
		txn.Type,
		txn.Direction,
		txn.AmountCents,
		txn.BalanceBeforeCents,
		txn.BalanceAfterCents,
		txn.Description,
		txn.IdempotencyKey,
		txn.ExternalRef,
		txn.CreatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return models.ErrDuplicateTransaction
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// FindByID retrieves a ledger entry by its UUID
func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.scanTransaction(r.q.QueryRowContext(ctx, query, id))
}

// FindByIdempotencyKey retrieves the ledger entry previously written for the
// given idempotency key and direction, if any.
func (r *transactionRepository) FindByIdempotencyKey(ctx context.Context, key string, direction models.TransactionDirection) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1 AND direction = $2`
	return r.scanTransaction(r.q.QueryRowContext(ctx, query, key, direction))
}

// FindByExternalRef retrieves the ledger entry referencing an external event
func (r *transactionRepository) FindByExternalRef(ctx context.Context, externalRef string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_ref = $1`
	return r.scanTransaction(r.q.QueryRowContext(ctx, query, externalRef))
}

// ListByTenant returns the most recent ledger entries for a tenant
func (r *transactionRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}

// SumDeltas returns the signed sum of all committed entries for a tenant.
// The committed wallet balance must always equal this sum.
func (r *transactionRepository) SumDeltas(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE direction WHEN 'DEBIT' THEN -amount_cents ELSE amount_cents END), 0)
		FROM transactions
		WHERE tenant_id = $1
	`

	var sum int64
	if err := r.q.QueryRowContext(ctx, query, tenantID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transaction deltas: %w", err)
	}

	return sum, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *transactionRepository) scanTransaction(row *sql.Row) (*models.Transaction, error) {
	txn, err := scanTransactionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return txn, err
}

func scanTransactionRow(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.TenantID,
		&txn.Type,
		&txn.Direction,
		&txn.AmountCents,
		&txn.BalanceBeforeCents,
		&txn.BalanceAfterCents,
		&txn.Description,
		&txn.IdempotencyKey,
		&txn.ExternalRef,
		&txn.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &txn, nil
}
