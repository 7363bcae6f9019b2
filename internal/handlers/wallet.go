package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/voxline/core/internal/models"
	"github.com/voxline/core/internal/service"
)

type ledgerEntryRequest struct {
	TenantID       string `json:"tenant_id"`
	AmountCents    int64  `json:"amount_cents"`
	Type           string `json:"type"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
	ExternalRef    string `json:"external_ref"`
}

type transactionResponse struct {
	TransactionID      string    `json:"transaction_id"`
	TenantID           string    `json:"tenant_id"`
	Type               string    `json:"type"`
	Direction          string    `json:"direction"`
	AmountCents        int64     `json:"amount_cents"`
	BalanceBeforeCents int64     `json:"balance_before_cents"`
	BalanceAfterCents  int64     `json:"balance_after_cents"`
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"created_at"`
}

type balanceResponse struct {
	TenantID       string `json:"tenant_id"`
	BalanceCents   int64  `json:"balance_cents"`
	DebtLimitCents int64  `json:"debt_limit_cents"`
	AvailableCents int64  `json:"available_cents"`
}

func toTransactionResponse(txn *models.Transaction) transactionResponse {
	return transactionResponse{
		TransactionID:      formatTransactionID(txn.ID),
		TenantID:           txn.TenantID.String(),
		Type:               string(txn.Type),
		Direction:          string(txn.Direction),
		AmountCents:        txn.AmountCents,
		BalanceBeforeCents: txn.BalanceBeforeCents,
		BalanceAfterCents:  txn.BalanceAfterCents,
		Description:        txn.Description,
		CreatedAt:          txn.CreatedAt,
	}
}

// CreateDebit handles POST /api/v1/wallet/debits
func (h *Handler) CreateDebit(w http.ResponseWriter, r *http.Request) {
	h.applyLedgerEntry(w, r, models.TransactionTypeCallCharge, h.ledgerService.Debit)
}

// CreateCredit handles POST /api/v1/wallet/credits
func (h *Handler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	h.applyLedgerEntry(w, r, models.TransactionTypeTopUp, h.ledgerService.Credit)
}

func (h *Handler) applyLedgerEntry(
	w http.ResponseWriter,
	r *http.Request,
	defaultType models.TransactionType,
	apply func(ctx context.Context, req service.LedgerRequest) (*models.Transaction, error),
) {
	var req ledgerEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, err.Error(), nil)
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid tenant_id", nil)
		return
	}

	entryType := defaultType
	if req.Type != "" {
		entryType = models.TransactionType(req.Type)
	}

	// The middleware replays cached responses keyed on the header; the
	// ledger-level key here protects against retries that bypass the cache.
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = req.IdempotencyKey
	}

	txn, err := apply(r.Context(), service.LedgerRequest{
		TenantID:       tenantID,
		AmountCents:    req.AmountCents,
		Type:           entryType,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey,
		ExternalRef:    req.ExternalRef,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(txn))
}

// GetBalance handles GET /api/v1/tenants/{tenantId}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.PathValue("tenantId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid tenant_id", nil)
		return
	}

	tenant, err := h.ledgerService.Balance(r.Context(), tenantID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		TenantID:       tenant.ID.String(),
		BalanceCents:   tenant.WalletBalanceCents,
		DebtLimitCents: tenant.DebtLimitCents,
		AvailableCents: tenant.AvailableCents(),
	})
}
