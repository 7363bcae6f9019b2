package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies what a ledger entry paid for.
type TransactionType string

const (
	TransactionTypeCallCharge      TransactionType = "CALL_CHARGE"
	TransactionTypeMessageCharge   TransactionType = "MESSAGE_CHARGE"
	TransactionTypeNumberProvision TransactionType = "NUMBER_PROVISION"
	TransactionTypeTopUp           TransactionType = "TOP_UP"
	TransactionTypeRefund          TransactionType = "REFUND"
	TransactionTypeAdjustment      TransactionType = "ADJUSTMENT"
)

// TransactionDirection indicates whether the entry moved money out of or
// into the tenant wallet.
type TransactionDirection string

const (
	DirectionDebit  TransactionDirection = "DEBIT"
	DirectionCredit TransactionDirection = "CREDIT"
)

// Transaction is one append-only ledger entry. Rows are created exactly once
// per balance mutation and are never updated or deleted.
//
// BalanceBeforeCents/BalanceAfterCents snapshot the wallet around the
// mutation so the log alone can prove the running balance.
type Transaction struct {
	CreatedAt          time.Time            `db:"created_at"`
	IdempotencyKey     *string              `db:"idempotency_key"`
	ExternalRef        *string              `db:"external_ref"`
	Description        string               `db:"description"`
	Type               TransactionType      `db:"type"`
	Direction          TransactionDirection `db:"direction"`
	AmountCents        int64                `db:"amount_cents"`
	BalanceBeforeCents int64                `db:"balance_before_cents"`
	BalanceAfterCents  int64                `db:"balance_after_cents"`
	ID                 uuid.UUID            `db:"id"`
	TenantID           uuid.UUID            `db:"tenant_id"`
}

// DeltaCents is the signed effect of this entry on the wallet balance.
func (t *Transaction) DeltaCents() int64 {
	if t.Direction == DirectionDebit {
		return -t.AmountCents
	}
	return t.AmountCents
}

// IdempotencyKey tracks processed HTTP requests to prevent duplicate
// transactions when a client retries a mutating call.
type IdempotencyKey struct {
	CreatedAt      time.Time `db:"created_at"`
	Key            string    `db:"key"`
	RequestPath    string    `db:"request_path"`
	ResponseBody   string    `db:"response_body"`
	ResponseStatus int       `db:"response_status"`
}
