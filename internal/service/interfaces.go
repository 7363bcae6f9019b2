package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/voxline/core/internal/models"
)

// HealthChecker validates system health.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Ledger exposes the tenant wallet: the balance gate and atomic
// debit/credit with idempotency keys.
type Ledger interface {
	Authorize(ctx context.Context, tenantID uuid.UUID, amountCents int64) (*AuthorizationResult, error)
	Debit(ctx context.Context, req LedgerRequest) (*models.Transaction, error)
	Credit(ctx context.Context, req LedgerRequest) (*models.Transaction, error)
	Balance(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
}

// Booker handles conflict-checked slot reservations
type Booker interface {
	Book(ctx context.Context, req BookingRequest) (*models.Appointment, error)
	Cancel(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Appointment, error)
	Reschedule(ctx context.Context, tenantID, bookingID uuid.UUID, newTime time.Time) (*models.Appointment, error)
	GetBooking(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Appointment, error)
}

// Ingestor durably enqueues verified webhook events
type Ingestor interface {
	Ingest(ctx context.Context, provider string, body []byte, signature string) (*IngestResult, error)
}

// Notification kinds dispatched to the Notifier after commit.
const (
	NotificationBookingConfirmed = "booking.confirmed"
	NotificationBookingCancelled = "booking.cancelled"
	NotificationAutoRecharge     = "wallet.auto_recharge"
	NotificationPaymentReceived  = "wallet.payment_received"
)

// Notification is a committed business event handed to the dispatcher.
type Notification struct {
	Payload  map[string]any
	Kind     string
	TenantID uuid.UUID
}

// Notifier delivers fire-and-forget notifications for committed events.
// Implementations must never block on the caller's transaction; a delivery
// failure is logged and dropped, never propagated.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// CredentialVault decrypts per-tenant provider secrets. It is consumed only
// by downstream side effects (calendar sync, SMS), never by the core
// transaction path.
type CredentialVault interface {
	Decrypt(ctx context.Context, tenantID uuid.UUID, provider string) (string, error)
}

// Ensure concrete types implement interfaces
var (
	_ Ledger   = (*LedgerService)(nil)
	_ Booker   = (*BookingService)(nil)
	_ Ingestor = (*IngestService)(nil)
)
