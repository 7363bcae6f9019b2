package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/voxline/core/internal/models"
)

// AppointmentRepository defines the interface for slot and appointment
// data access, including the per-slot advisory lock.
type AppointmentRepository interface {
	// TryLockSlot attempts a non-blocking, transaction-scoped advisory lock
	// on the (tenant, slot) pair. Returns false immediately when another
	// transaction holds the lock. Must be called inside a transaction; the
	// lock is released automatically at commit or abort.
	TryLockSlot(ctx context.Context, tenantID uuid.UUID, scheduledAt time.Time) (bool, error)
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	FindConfirmedAt(ctx context.Context, tenantID uuid.UUID, scheduledAt time.Time) (*models.Appointment, error)
	ListConfirmedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]time.Time, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.AppointmentStatus) error
}

type appointmentRepository struct {
	q Querier
}

// NewAppointmentRepository creates a new AppointmentRepository
func NewAppointmentRepository(q Querier) AppointmentRepository {
	return &appointmentRepository{q: q}
}

// SlotLockKey derives the deterministic 64-bit advisory lock key for a
// (tenant, slot) pair. Timestamps are normalized to UTC at minute precision
// so equivalent representations of the same slot hash identically.
func SlotLockKey(tenantID uuid.UUID, scheduledAt time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(tenantID.String()))       //nolint:errcheck // fnv never fails
	h.Write([]byte(":"))                     //nolint:errcheck
	h.Write([]byte(NormalizeSlot(scheduledAt).Format(time.RFC3339))) //nolint:errcheck
	return int64(h.Sum64())
}

// NormalizeSlot converts a slot timestamp to its canonical form: UTC,
// truncated to the minute.
func NormalizeSlot(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

func (r *appointmentRepository) TryLockSlot(ctx context.Context, tenantID uuid.UUID, scheduledAt time.Time) (bool, error) {
	var acquired bool
	err := r.q.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock($1)`, SlotLockKey(tenantID, scheduledAt)).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	return acquired, nil
}

const appointmentColumns = `
	id, tenant_id, scheduled_at, duration_minutes, status, service_type,
	contact_name, contact_phone, contact_email,
	cancelled_at, created_at, updated_at
`

// Create inserts a new appointment row. A partial unique index on
// (tenant_id, scheduled_at) WHERE status = 'confirmed' is the second line
// of defense behind the advisory lock; violations map to ErrSlotTaken.
func (r *appointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	appt.ScheduledAt = NormalizeSlot(appt.ScheduledAt)

	query := `
		INSERT INTO appointments (
			id, tenant_id, scheduled_at, duration_minutes, status, service_type,
			contact_name, contact_phone, contact_email, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		appt.ID,
		appt.TenantID,
		appt.ScheduledAt,
		appt.DurationMinutes,
		appt.Status,
		appt.ServiceType,
		appt.ContactName,
		appt.ContactPhone,
		appt.ContactEmail,
		appt.CreatedAt,
		appt.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return models.ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

func (r *appointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return r.scanAppointment(r.q.QueryRowContext(ctx, query, id))
}

func (r *appointmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
	return r.scanAppointment(r.q.QueryRowContext(ctx, query, id))
}

// FindConfirmedAt returns the confirmed appointment occupying the exact
// slot, or ErrNotFound when the slot is free.
func (r *appointmentRepository) FindConfirmedAt(ctx context.Context, tenantID uuid.UUID, scheduledAt time.Time) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE tenant_id = $1 AND scheduled_at = $2 AND status = 'confirmed'`
	return r.scanAppointment(r.q.QueryRowContext(ctx, query, tenantID, NormalizeSlot(scheduledAt)))
}

// ListConfirmedBetween returns the scheduled times of confirmed
// appointments in [from, to), used to compute alternative slots.
func (r *appointmentRepository) ListConfirmedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT scheduled_at
		FROM appointments
		WHERE tenant_id = $1 AND status = 'confirmed' AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at
	`

	rows, err := r.q.QueryContext(ctx, query, tenantID, NormalizeSlot(from), NormalizeSlot(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed appointments: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled_at: %w", err)
		}
		times = append(times, t.UTC())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}

	return times, nil
}

// UpdateStatus transitions an appointment to a new lifecycle state.
// Cancellations record the cancellation time.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $2,
		    cancelled_at = CASE WHEN $2 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *appointmentRepository) scanAppointment(row *sql.Row) (*models.Appointment, error) {
	var appt models.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.TenantID,
		&appt.ScheduledAt,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.ServiceType,
		&appt.ContactName,
		&appt.ContactPhone,
		&appt.ContactEmail,
		&appt.CancelledAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan appointment: %w", err)
	}

	appt.ScheduledAt = appt.ScheduledAt.UTC()
	return &appt, nil
}
