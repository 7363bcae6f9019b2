package models

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the lifecycle state of a booked slot.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Contact identifies the caller an appointment belongs to. Fields are
// stored in canonical form (title-cased name, E.164 phone, lowercase email)
// so differing spellings of the same caller resolve to one identity.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Appointment is one reserved slot for a tenant. At most one row per
// (tenant_id, scheduled_at) may be confirmed; a partial unique index
// enforces this at the storage layer.
type Appointment struct {
	CreatedAt       time.Time         `db:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at"`
	ScheduledAt     time.Time         `db:"scheduled_at"`
	CancelledAt     *time.Time        `db:"cancelled_at"`
	ContactName     string            `db:"contact_name"`
	ContactPhone    string            `db:"contact_phone"`
	ContactEmail    string            `db:"contact_email"`
	ServiceType     string            `db:"service_type"`
	Status          AppointmentStatus `db:"status"`
	DurationMinutes int               `db:"duration_minutes"`
	ID              uuid.UUID         `db:"id"`
	TenantID        uuid.UUID         `db:"tenant_id"`
}

// AuditEntry is an append-only record of a booking mutation, written in the
// same transaction as the mutation itself.
type AuditEntry struct {
	CreatedAt time.Time      `db:"created_at"`
	Kind      string         `db:"kind"`
	Detail    map[string]any `db:"detail"`
	ID        uuid.UUID      `db:"id"`
	TenantID  uuid.UUID      `db:"tenant_id"`
	RefID     uuid.UUID      `db:"ref_id"`
}

// Audit kinds recorded by the booking engine.
const (
	AuditKindBooked      = "appointment.booked"
	AuditKindCancelled   = "appointment.cancelled"
	AuditKindRescheduled = "appointment.rescheduled"
)
