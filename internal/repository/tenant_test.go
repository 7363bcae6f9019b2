package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxline/core/internal/models"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return db, mock
}

func tenantRows(id uuid.UUID, balance, debtLimit int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "wallet_balance_cents", "debt_limit_cents",
		"auto_recharge_enabled", "auto_recharge_threshold_cents", "auto_recharge_amount_cents",
		"created_at", "updated_at",
	}).AddRow(id, "acme-dental", balance, debtLimit, false, int64(0), int64(0), now, now)
}

func TestTenantFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tenants WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(tenantRows(id, 10_000, 500))

	tenant, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, tenant.ID)
	assert.Equal(t, int64(10_000), tenant.WalletBalanceCents)
	assert.Equal(t, int64(10_500), tenant.AvailableCents())
}

func TestTenantFindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tenants WHERE id = $1`)).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTenantFindByIDForUpdate_LocksRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tenants WHERE id = $1 FOR UPDATE`)).
		WithArgs(id).
		WillReturnRows(tenantRows(id, 0, 0))

	tenant, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, tenant.ID)
}

func TestTenantSetBalance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tenants`)).
		WithArgs(id, int64(7_500)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetBalance(context.Background(), id, 7_500))
}

func TestTenantSetBalance_MissingTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTenantRepository(db)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tenants`)).
		WithArgs(id, int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.SetBalance(context.Background(), id, 100), models.ErrNotFound)
}
