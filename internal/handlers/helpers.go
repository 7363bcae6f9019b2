package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/voxline/core/internal/service"
)

// maxBodyBytes bounds request bodies so a misbehaving client cannot hold a
// connection open streaming an unbounded payload.
const maxBodyBytes = 1 << 20

// ID prefixes for API responses
const (
	PrefixBooking     = "bk_"
	PrefixTransaction = "txn_"
)

type errorResponse struct {
	Details map[string]any `json:"details,omitempty"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
}

func formatBookingID(id uuid.UUID) string {
	return PrefixBooking + id.String()
}

func formatTransactionID(id uuid.UUID) string {
	return PrefixTransaction + id.String()
}

func parseBookingID(id string) (uuid.UUID, error) {
	return parseIDWithPrefix(id, PrefixBooking, "booking")
}

func parseIDWithPrefix(id, prefix, typeName string) (uuid.UUID, error) {
	if !strings.HasPrefix(id, prefix) {
		return uuid.Nil, fmt.Errorf("invalid %s ID format: missing %s prefix", typeName, prefix)
	}

	uuidStr := strings.TrimPrefix(id, prefix)
	parsed, err := uuid.Parse(uuidStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID format: %w", typeName, err)
	}

	return parsed, nil
}

// decodeJSON reads and decodes a bounded request body, rejecting unknown
// fields so typos in a client payload fail loudly instead of silently.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: unexpected trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Best effort response writing
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, errorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
}

// respondServiceError maps a service error to its HTTP status. Unknown
// errors are logged and surfaced as an opaque 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var svcErr *service.ServiceError
	if !errors.As(err, &svcErr) {
		h.logger.Error("unexpected error", "error", err)
		writeError(w, http.StatusInternalServerError, service.ErrCodeInternalError, "internal error", nil)
		return
	}

	writeError(w, statusForCode(svcErr.Code), svcErr.Code, svcErr.Message, svcErr.Details)
}

func statusForCode(code string) int {
	switch code {
	case service.ErrCodeValidation:
		return http.StatusBadRequest
	case service.ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	case service.ErrCodeSignatureInvalid:
		return http.StatusUnauthorized
	case service.ErrCodeTenantNotFound, service.ErrCodeBookingNotFound:
		return http.StatusNotFound
	case service.ErrCodeSlotUnavailable, service.ErrCodeSlotContended:
		return http.StatusConflict
	case service.ErrCodeTransientInfra:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// readBody consumes a bounded raw body, used by the webhook endpoint where
// the exact bytes are needed for signature verification.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}
