package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents a billing tenant (an organization using the platform)
// with its wallet balance and debt allowance.
//
// Balances are stored in minor currency units (cents) to avoid floating
// point rounding on money.
type Tenant struct {
	CreatedAt                  time.Time `db:"created_at"`
	UpdatedAt                  time.Time `db:"updated_at"`
	Name                       string    `db:"name"`
	WalletBalanceCents         int64     `db:"wallet_balance_cents"`
	DebtLimitCents             int64     `db:"debt_limit_cents"`
	AutoRechargeThresholdCents int64     `db:"auto_recharge_threshold_cents"`
	AutoRechargeAmountCents    int64     `db:"auto_recharge_amount_cents"`
	AutoRechargeEnabled        bool      `db:"auto_recharge_enabled"`
	ID                         uuid.UUID `db:"id"`
}

// AvailableCents is the total spendable amount: wallet balance plus the
// debt allowance. The ledger invariant wallet_balance >= -debt_limit is
// equivalent to AvailableCents() >= 0 after every committed mutation.
func (t *Tenant) AvailableCents() int64 {
	return t.WalletBalanceCents + t.DebtLimitCents
}
