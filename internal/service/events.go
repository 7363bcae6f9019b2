package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Provider event types the pipeline knows how to apply. Anything else is
// acknowledged, logged and ignored; it is never coerced into a known
// handler.
const (
	EventPaymentSucceeded      = "payment.succeeded"
	EventPaymentFailed         = "payment.failed"
	EventCallCompleted         = "call.completed"
	EventNumberProvisioned     = "number.provisioned"
	EventNumberProvisionFailed = "number.provision_failed"
)

// EventEnvelope is the outer shape every provider event must carry.
type EventEnvelope struct {
	CreatedAt time.Time       `json:"created_at"`
	ID        string          `json:"id" validate:"required"`
	Type      string          `json:"type" validate:"required"`
	Data      json.RawMessage `json:"data" validate:"required"`
}

// PaymentSucceededData reports a confirmed payment to credit a wallet.
type PaymentSucceededData struct {
	TenantID    uuid.UUID `json:"tenant_id" validate:"required"`
	Provider    string    `json:"provider"`
	ProviderRef string    `json:"provider_ref"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
}

// PaymentFailedData reports a failed payment attempt. No ledger effect.
type PaymentFailedData struct {
	TenantID    uuid.UUID `json:"tenant_id" validate:"required"`
	Provider    string    `json:"provider"`
	ProviderRef string    `json:"provider_ref"`
	AmountCents int64     `json:"amount_cents"`
}

// CallCompletedData reports a finished billable call.
type CallCompletedData struct {
	TenantID        uuid.UUID `json:"tenant_id" validate:"required"`
	CallID          string    `json:"call_id" validate:"required"`
	DurationSeconds int       `json:"duration_seconds" validate:"gte=0"`
}

// NumberProvisionedData confirms a number purchase that was already charged.
type NumberProvisionedData struct {
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`
	Number   string    `json:"number" validate:"required"`
}

// NumberProvisionFailedData reports a provisioning failure after the charge
// succeeded; it triggers the compensating refund.
type NumberProvisionFailedData struct {
	TenantID    uuid.UUID `json:"tenant_id" validate:"required"`
	Number      string    `json:"number"`
	ChargeRef   string    `json:"charge_ref" validate:"required"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
}

// KnownEventType reports whether the pipeline has a handler for the type.
func KnownEventType(eventType string) bool {
	switch eventType {
	case EventPaymentSucceeded, EventPaymentFailed, EventCallCompleted,
		EventNumberProvisioned, EventNumberProvisionFailed:
		return true
	}
	return false
}

// decodeEventData unmarshals and schema-validates raw event data into dst.
// Failures are permanent: retrying cannot fix malformed data.
func decodeEventData(validate *validator.Validate, raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return Permanent(fmt.Errorf("malformed event data: %w", err))
	}
	if err := validate.Struct(dst); err != nil {
		return Permanent(fmt.Errorf("event data failed validation: %w", err))
	}
	return nil
}

// CallCharge prices a completed call: whole minutes, rounded up, at the
// per-minute rate. Zero-duration calls cost nothing.
func CallCharge(durationSeconds int, rateCentsPerMinute int64) int64 {
	if durationSeconds <= 0 {
		return 0
	}
	minutes := int64((durationSeconds + 59) / 60)
	return minutes * rateCentsPerMinute
}
