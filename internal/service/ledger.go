package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/voxline/core/internal/db"
	"github.com/voxline/core/internal/models"
	"github.com/voxline/core/internal/repository"
)

// LedgerService owns the tenant wallet: the balance gate, atomic debits and
// idempotent compensating credits. Every balance mutation appends exactly
// one Transaction row in the same database transaction.
type LedgerService struct {
	db       *db.DB
	notifier Notifier
	logger   *slog.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(database *db.DB, notifier Notifier, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		db:       database,
		notifier: notifier,
		logger:   logger,
	}
}

// AuthorizationResult is the outcome of a balance gate check
type AuthorizationResult struct {
	Authorized   bool
	BalanceCents int64
	// RequiredCents is the exact shortfall when not authorized, so a client
	// can prompt for a top-up of precisely that amount.
	RequiredCents int64
}

// LedgerRequest describes one debit or credit
type LedgerRequest struct {
	TenantID       uuid.UUID
	AmountCents    int64
	Type           models.TransactionType
	Description    string
	IdempotencyKey string
	ExternalRef    string
}

// Authorize is the read-only balance gate consumed before any billable
// action. It never calls out to external systems and never takes locks, so
// one tenant's slow request cannot stall another tenant's check.
func (s *LedgerService) Authorize(ctx context.Context, tenantID uuid.UUID, amountCents int64) (*AuthorizationResult, error) {
	if err := ValidateAmount(amountCents); err != nil {
		return nil, &ServiceError{Code: ErrCodeValidation, Message: err.Error()}
	}

	tenant, err := repository.NewTenantRepository(s.db).FindByID(ctx, tenantID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{Code: ErrCodeTenantNotFound, Message: "tenant not found"}
	}
	if err != nil {
		return nil, &ServiceError{Code: ErrCodeInternalError, Message: fmt.Sprintf("failed to load tenant: %v", err)}
	}

	result := &AuthorizationResult{
		Authorized:   amountCents <= tenant.AvailableCents(),
		BalanceCents: tenant.WalletBalanceCents,
	}
	if !result.Authorized {
		result.RequiredCents = amountCents - tenant.AvailableCents()
	}

	return result, nil
}

// Debit atomically charges a tenant wallet. The debit serializes on a row
// lock with all other debits and credits for the tenant, verifies the
// debt-limit invariant, writes the new balance and appends the ledger entry
// all-or-nothing. Replays of the same idempotency key return the original
// entry without moving money again.
func (s *LedgerService) Debit(ctx context.Context, req LedgerRequest) (*models.Transaction, error) {
	return s.applyEntry(ctx, req, models.DirectionDebit)
}

// Credit is the symmetric reversal path, used for top-ups and for refunding
// a debit whose downstream billable action failed.
func (s *LedgerService) Credit(ctx context.Context, req LedgerRequest) (*models.Transaction, error) {
	return s.applyEntry(ctx, req, models.DirectionCredit)
}

// Balance returns the current wallet state for a tenant
func (s *LedgerService) Balance(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	tenant, err := repository.NewTenantRepository(s.db).FindByID(ctx, tenantID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{Code: ErrCodeTenantNotFound, Message: "tenant not found"}
	}
	if err != nil {
		return nil, &ServiceError{Code: ErrCodeInternalError, Message: fmt.Sprintf("failed to load tenant: %v", err)}
	}
	return tenant, nil
}

func (s *LedgerService) applyEntry(ctx context.Context, req LedgerRequest, direction models.TransactionDirection) (*models.Transaction, error) {
	if err := ValidateAmount(req.AmountCents); err != nil {
		return nil, &ServiceError{Code: ErrCodeValidation, Message: err.Error()}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeTransientInfra,
			Message: fmt.Sprintf("failed to start transaction: %v", err),
		}
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback error is not critical in defer
	}()

	txn, err := s.performEntry(ctx, repository.NewTenantRepository(tx), repository.NewTransactionRepository(tx), req, direction)
	if errors.Is(err, models.ErrDuplicateTransaction) {
		// Lost a replay race to a concurrent writer of the same key; the
		// committed entry is the result.
		_ = tx.Rollback() //nolint:errcheck
		return repository.NewTransactionRepository(s.db).FindByIdempotencyKey(ctx, req.IdempotencyKey, direction)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeTransientInfra,
			Message: fmt.Sprintf("failed to commit transaction: %v", err),
		}
	}

	s.checkAutoRecharge(ctx, txn)

	return txn, nil
}

// performEntry contains the core ledger business logic, operating on
// repositories already bound to an open transaction. The webhook event
// processor shares this path so event effects and their idempotency markers
// commit atomically.
func (s *LedgerService) performEntry(
	ctx context.Context,
	tenants repository.TenantRepository,
	txns repository.TransactionRepository,
	req LedgerRequest,
	direction models.TransactionDirection,
) (*models.Transaction, error) {
	if req.IdempotencyKey != "" {
		existing, err := txns.FindByIdempotencyKey(ctx, req.IdempotencyKey, direction)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to check idempotency key: %v", err), Err: err}
		}
	}

	tenant, err := tenants.FindByIDForUpdate(ctx, req.TenantID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{Code: ErrCodeTenantNotFound, Message: "tenant not found"}
	}
	if err != nil {
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to lock tenant: %v", err), Err: err}
	}

	delta := req.AmountCents
	if direction == models.DirectionDebit {
		delta = -delta
	}
	newBalance := tenant.WalletBalanceCents + delta

	if newBalance < -tenant.DebtLimitCents {
		return nil, &ServiceError{
			Code:    ErrCodeInsufficientFunds,
			Message: "insufficient funds",
			Details: map[string]any{
				"current_balance":  tenant.WalletBalanceCents,
				"required_balance": req.AmountCents - tenant.AvailableCents(),
			},
		}
	}

	txn := &models.Transaction{
		ID:                 uuid.New(),
		TenantID:           tenant.ID,
		Type:               req.Type,
		Direction:          direction,
		AmountCents:        req.AmountCents,
		BalanceBeforeCents: tenant.WalletBalanceCents,
		BalanceAfterCents:  newBalance,
		Description:        req.Description,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		txn.IdempotencyKey = &key
	}
	if req.ExternalRef != "" {
		ref := req.ExternalRef
		txn.ExternalRef = &ref
	}

	if err := txns.Create(ctx, txn); err != nil {
		if errors.Is(err, models.ErrDuplicateTransaction) {
			return nil, err
		}
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to append ledger entry: %v", err), Err: err}
	}

	if err := tenants.SetBalance(ctx, tenant.ID, newBalance); err != nil {
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to update balance: %v", err), Err: err}
	}

	return txn, nil
}

// checkAutoRecharge asks the notifier for a top-up when a committed debit
// leaves the wallet under the tenant's threshold. Runs after commit and
// never affects the transaction outcome.
func (s *LedgerService) checkAutoRecharge(ctx context.Context, txn *models.Transaction) {
	if txn.Direction != models.DirectionDebit {
		return
	}

	tenant, err := repository.NewTenantRepository(s.db).FindByID(ctx, txn.TenantID)
	if err != nil {
		s.logger.Warn("auto-recharge check skipped", "tenant_id", txn.TenantID, "error", err)
		return
	}
	if !tenant.AutoRechargeEnabled || tenant.WalletBalanceCents >= tenant.AutoRechargeThresholdCents {
		return
	}

	if err := s.notifier.Notify(ctx, Notification{
		Kind:     NotificationAutoRecharge,
		TenantID: tenant.ID,
		Payload: map[string]any{
			"balance_cents":  tenant.WalletBalanceCents,
			"recharge_cents": tenant.AutoRechargeAmountCents,
		},
	}); err != nil {
		s.logger.Error("auto-recharge notification failed", "tenant_id", tenant.ID, "error", err)
	}
}
