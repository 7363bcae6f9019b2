package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/voxline/core/internal/models"
)

// TenantRepository defines the interface for tenant wallet data access
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	SetBalance(ctx context.Context, tenantID uuid.UUID, balanceCents int64) error
}

// tenantRepository implements TenantRepository
type tenantRepository struct {
	q Querier
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(q Querier) TenantRepository {
	return &tenantRepository{q: q}
}

const tenantColumns = `
	id, name, wallet_balance_cents, debt_limit_cents,
	auto_recharge_enabled, auto_recharge_threshold_cents, auto_recharge_amount_cents,
	created_at, updated_at
`

// FindByID retrieves a tenant by its UUID
func (r *tenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanTenant(r.q.QueryRowContext(ctx, query, id))
}

// FindByIDForUpdate retrieves a tenant with a row-level lock. Two concurrent
// debits on the same tenant serialize on this lock, so the read-check-write
// sequence in the ledger never races. Must be called inside a transaction.
func (r *tenantRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1 FOR UPDATE`
	return r.scanTenant(r.q.QueryRowContext(ctx, query, id))
}

// SetBalance writes the new wallet balance for a tenant
func (r *tenantRepository) SetBalance(ctx context.Context, tenantID uuid.UUID, balanceCents int64) error {
	query := `
		UPDATE tenants
		SET wallet_balance_cents = $2,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, tenantID, balanceCents)
	if err != nil {
		return fmt.Errorf("failed to set tenant balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *tenantRepository) scanTenant(row *sql.Row) (*models.Tenant, error) {
	var tenant models.Tenant
	err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.WalletBalanceCents,
		&tenant.DebtLimitCents,
		&tenant.AutoRechargeEnabled,
		&tenant.AutoRechargeThresholdCents,
		&tenant.AutoRechargeAmountCents,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tenant: %w", err)
	}

	return &tenant, nil
}
