package handlers

import (
	"net/http"

	"github.com/voxline/core/internal/service"
)

// signatureHeader carries the provider's HMAC of the raw request body.
const signatureHeader = "X-Webhook-Signature"

type webhookAckResponse struct {
	ExternalEventID string `json:"external_event_id"`
	Duplicate       bool   `json:"duplicate"`
}

// ReceiveWebhook handles POST /api/v1/webhooks/{provider}. A 202 means the
// event is durably queued; processing happens asynchronously and the
// provider must not infer anything about the business outcome.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, err.Error(), nil)
		return
	}

	result, err := h.ingestService.Ingest(r.Context(), provider, body, r.Header.Get(signatureHeader))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, webhookAckResponse{
		ExternalEventID: result.ExternalEventID,
		Duplicate:       result.Duplicate,
	})
}
