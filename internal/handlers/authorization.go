package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/voxline/core/internal/service"
)

type createAuthorizationRequest struct {
	TenantID    string `json:"tenant_id"`
	AmountCents int64  `json:"amount_cents"`
}

type authorizationResponse struct {
	Authorized   bool  `json:"authorized"`
	BalanceCents int64 `json:"balance_cents"`
	// RequiredCents is the exact shortfall when not authorized, zero otherwise.
	RequiredCents int64 `json:"required_cents"`
}

// CreateAuthorization handles POST /api/v1/authorizations. The check is
// read-only; it reserves nothing and a later debit can still fail.
func (h *Handler) CreateAuthorization(w http.ResponseWriter, r *http.Request) {
	var req createAuthorizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, err.Error(), nil)
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid tenant_id", nil)
		return
	}

	result, err := h.ledgerService.Authorize(r.Context(), tenantID, req.AmountCents)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authorizationResponse{
		Authorized:    result.Authorized,
		BalanceCents:  result.BalanceCents,
		RequiredCents: result.RequiredCents,
	})
}
