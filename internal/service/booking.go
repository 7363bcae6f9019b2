package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/voxline/core/internal/db"
	"github.com/voxline/core/internal/models"
	"github.com/voxline/core/internal/repository"
)

// alternativeSlotCount is how many free slots a conflict response offers.
const alternativeSlotCount = 3

// BookingService reserves appointment slots under per-slot mutual
// exclusion. A booking either wins its slot or fails fast with alternative
// times; it never queues behind another booking.
type BookingService struct {
	db            *db.DB
	notifier      Notifier
	logger        *slog.Logger
	defaultRegion string
}

// NewBookingService creates a new BookingService
func NewBookingService(database *db.DB, notifier Notifier, defaultRegion string, logger *slog.Logger) *BookingService {
	return &BookingService{
		db:            database,
		notifier:      notifier,
		logger:        logger,
		defaultRegion: defaultRegion,
	}
}

// BookingRequest describes one slot reservation
type BookingRequest struct {
	ScheduledAt     time.Time
	Contact         models.Contact
	ServiceType     string
	DurationMinutes int
	TenantID        uuid.UUID
}

// Book reserves the requested slot. The critical section is one database
// transaction: advisory lock, conflict re-check, insert, audit. External
// side effects run only after commit, so a slow third party can never
// extend lock hold time.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (*models.Appointment, error) {
	if err := ValidateSlot(req.ScheduledAt, req.DurationMinutes, time.Now()); err != nil {
		return nil, &ServiceError{Code: ErrCodeValidation, Message: err.Error()}
	}

	contact, err := NormalizeContact(req.Contact, s.defaultRegion)
	if err != nil {
		return nil, &ServiceError{Code: ErrCodeValidation, Message: err.Error()}
	}
	req.Contact = contact
	req.ScheduledAt = repository.NormalizeSlot(req.ScheduledAt)

	appt, err := s.withTx(ctx, func(appts repository.AppointmentRepository, audits repository.AuditRepository) (*models.Appointment, error) {
		return s.performBook(ctx, appts, audits, req)
	})
	if err != nil {
		return nil, s.withAlternatives(ctx, err, req.TenantID, req.ScheduledAt, req.DurationMinutes)
	}

	s.notify(ctx, NotificationBookingConfirmed, appt)
	return appt, nil
}

// Cancel releases a confirmed booking
func (s *BookingService) Cancel(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Appointment, error) {
	appt, err := s.withTx(ctx, func(appts repository.AppointmentRepository, audits repository.AuditRepository) (*models.Appointment, error) {
		return s.performCancel(ctx, appts, audits, tenantID, bookingID)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, NotificationBookingCancelled, appt)
	return appt, nil
}

// Reschedule moves a confirmed booking to a new slot as one atomic
// cancel-old-plus-book-new operation. A crash can never leave neither slot
// held or both held.
func (s *BookingService) Reschedule(ctx context.Context, tenantID, bookingID uuid.UUID, newTime time.Time) (*models.Appointment, error) {
	newTime = repository.NormalizeSlot(newTime)

	// Suggested alternatives must use the booking's real duration, which is
	// only known once the row is loaded inside the transaction.
	durationMinutes := 60
	appt, err := s.withTx(ctx, func(appts repository.AppointmentRepository, audits repository.AuditRepository) (*models.Appointment, error) {
		replacement, loadedDuration, err := s.performReschedule(ctx, appts, audits, tenantID, bookingID, newTime)
		if loadedDuration > 0 {
			durationMinutes = loadedDuration
		}
		return replacement, err
	})
	if err != nil {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) && svcErr.Code != ErrCodeBookingNotFound {
			return nil, s.withAlternatives(ctx, err, tenantID, newTime, durationMinutes)
		}
		return nil, err
	}

	s.notify(ctx, NotificationBookingConfirmed, appt)
	return appt, nil
}

// GetBooking retrieves a booking scoped to its tenant
func (s *BookingService) GetBooking(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Appointment, error) {
	appt, err := repository.NewAppointmentRepository(s.db).FindByID(ctx, bookingID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{Code: ErrCodeBookingNotFound, Message: "booking not found"}
	}
	if err != nil {
		return nil, &ServiceError{Code: ErrCodeInternalError, Message: fmt.Sprintf("failed to load booking: %v", err)}
	}
	if appt.TenantID != tenantID {
		return nil, &ServiceError{Code: ErrCodeBookingNotFound, Message: "booking not found"}
	}
	return appt, nil
}

func (s *BookingService) withTx(ctx context.Context, fn func(repository.AppointmentRepository, repository.AuditRepository) (*models.Appointment, error)) (*models.Appointment, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeTransientInfra,
			Message: fmt.Sprintf("failed to start transaction: %v", err),
		}
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback error is not critical in defer
	}()

	appt, err := fn(repository.NewAppointmentRepository(tx), repository.NewAuditRepository(tx))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeTransientInfra,
			Message: fmt.Sprintf("failed to commit transaction: %v", err),
		}
	}

	return appt, nil
}

// performBook contains the critical section of a booking
func (s *BookingService) performBook(
	ctx context.Context,
	appts repository.AppointmentRepository,
	audits repository.AuditRepository,
	req BookingRequest,
) (*models.Appointment, error) {
	acquired, err := appts.TryLockSlot(ctx, req.TenantID, req.ScheduledAt)
	if err != nil {
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to acquire slot lock: %v", err), Err: err}
	}
	if !acquired {
		return nil, &ServiceError{Code: ErrCodeSlotContended, Message: "slot is being booked by another request"}
	}

	// Defense in depth beyond the lock: re-check the slot before inserting.
	_, err = appts.FindConfirmedAt(ctx, req.TenantID, req.ScheduledAt)
	if err == nil {
		return nil, &ServiceError{Code: ErrCodeSlotUnavailable, Message: "slot is already booked"}
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to check slot: %v", err), Err: err}
	}

	appt := &models.Appointment{
		ID:              uuid.New(),
		TenantID:        req.TenantID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Status:          models.AppointmentStatusConfirmed,
		ServiceType:     req.ServiceType,
		ContactName:     req.Contact.Name,
		ContactPhone:    req.Contact.Phone,
		ContactEmail:    req.Contact.Email,
	}

	if err := appts.Create(ctx, appt); err != nil {
		if errors.Is(err, models.ErrSlotTaken) {
			return nil, &ServiceError{Code: ErrCodeSlotUnavailable, Message: "slot is already booked"}
		}
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to create booking: %v", err), Err: err}
	}

	if err := audits.Append(ctx, &models.AuditEntry{
		TenantID: req.TenantID,
		Kind:     models.AuditKindBooked,
		RefID:    appt.ID,
		Detail: map[string]any{
			"scheduled_at":     appt.ScheduledAt.Format(time.RFC3339),
			"duration_minutes": appt.DurationMinutes,
			"contact_phone":    appt.ContactPhone,
		},
	}); err != nil {
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to append audit entry: %v", err), Err: err}
	}

	return appt, nil
}

func (s *BookingService) performCancel(
	ctx context.Context,
	appts repository.AppointmentRepository,
	audits repository.AuditRepository,
	tenantID, bookingID uuid.UUID,
) (*models.Appointment, error) {
	appt, err := appts.FindByIDForUpdate(ctx, bookingID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{Code: ErrCodeBookingNotFound, Message: "booking not found"}
	}
	if err != nil {
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to load booking: %v", err), Err: err}
	}
	if appt.TenantID != tenantID {
		return nil, &ServiceError{Code: ErrCodeBookingNotFound, Message: "booking not found"}
	}
	if appt.Status != models.AppointmentStatusConfirmed {
		return nil, &ServiceError{Code: ErrCodeValidation, Message: fmt.Sprintf("booking is %s, only confirmed bookings can be cancelled", appt.Status)}
	}

	if err := appts.UpdateStatus(ctx, appt.ID, models.AppointmentStatusCancelled); err != nil {
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to cancel booking: %v", err), Err: err}
	}
	appt.Status = models.AppointmentStatusCancelled

	if err := audits.Append(ctx, &models.AuditEntry{
		TenantID: tenantID,
		Kind:     models.AuditKindCancelled,
		RefID:    appt.ID,
		Detail: map[string]any{
			"scheduled_at": appt.ScheduledAt.Format(time.RFC3339),
		},
	}); err != nil {
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to append audit entry: %v", err), Err: err}
	}

	return appt, nil
}

// performReschedule returns the replacement booking and the duration of the
// booking being moved, so the caller can suggest alternatives on the right
// grid. Duration is zero when the failure happened before the row was loaded.
func (s *BookingService) performReschedule(
	ctx context.Context,
	appts repository.AppointmentRepository,
	audits repository.AuditRepository,
	tenantID, bookingID uuid.UUID,
	newTime time.Time,
) (*models.Appointment, int, error) {
	old, err := appts.FindByIDForUpdate(ctx, bookingID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, 0, &ServiceError{Code: ErrCodeBookingNotFound, Message: "booking not found"}
	}
	if err != nil {
		return nil, 0, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to load booking: %v", err), Err: err}
	}
	if old.TenantID != tenantID {
		return nil, 0, &ServiceError{Code: ErrCodeBookingNotFound, Message: "booking not found"}
	}
	if old.Status != models.AppointmentStatusConfirmed {
		return nil, old.DurationMinutes, &ServiceError{Code: ErrCodeValidation, Message: fmt.Sprintf("booking is %s, only confirmed bookings can be rescheduled", old.Status)}
	}
	if err := ValidateSlot(newTime, old.DurationMinutes, time.Now()); err != nil {
		return nil, old.DurationMinutes, &ServiceError{Code: ErrCodeValidation, Message: err.Error()}
	}

	acquired, err := appts.TryLockSlot(ctx, tenantID, newTime)
	if err != nil {
		return nil, old.DurationMinutes, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to acquire slot lock: %v", err), Err: err}
	}
	if !acquired {
		return nil, old.DurationMinutes, &ServiceError{Code: ErrCodeSlotContended, Message: "slot is being booked by another request"}
	}

	_, err = appts.FindConfirmedAt(ctx, tenantID, newTime)
	if err == nil {
		return nil, old.DurationMinutes, &ServiceError{Code: ErrCodeSlotUnavailable, Message: "slot is already booked"}
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, old.DurationMinutes, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to check slot: %v", err), Err: err}
	}

	if err := appts.UpdateStatus(ctx, old.ID, models.AppointmentStatusCancelled); err != nil {
		return nil, old.DurationMinutes, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to cancel old booking: %v", err), Err: err}
	}

	replacement := &models.Appointment{
		ID:              uuid.New(),
		TenantID:        tenantID,
		ScheduledAt:     newTime,
		DurationMinutes: old.DurationMinutes,
		Status:          models.AppointmentStatusConfirmed,
		ServiceType:     old.ServiceType,
		ContactName:     old.ContactName,
		ContactPhone:    old.ContactPhone,
		ContactEmail:    old.ContactEmail,
	}

	if err := appts.Create(ctx, replacement); err != nil {
		if errors.Is(err, models.ErrSlotTaken) {
			return nil, old.DurationMinutes, &ServiceError{Code: ErrCodeSlotUnavailable, Message: "slot is already booked"}
		}
		return nil, old.DurationMinutes, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to create booking: %v", err), Err: err}
	}

	if err := audits.Append(ctx, &models.AuditEntry{
		TenantID: tenantID,
		Kind:     models.AuditKindRescheduled,
		RefID:    replacement.ID,
		Detail: map[string]any{
			"previous_booking_id": old.ID.String(),
			"previous_slot":       old.ScheduledAt.Format(time.RFC3339),
			"new_slot":            newTime.Format(time.RFC3339),
		},
	}); err != nil {
		return nil, old.DurationMinutes, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to append audit entry: %v", err), Err: err}
	}

	return replacement, old.DurationMinutes, nil
}

// withAlternatives attaches suggested free slots to conflict errors so a
// caller gets alternative times rather than a bare rejection.
func (s *BookingService) withAlternatives(ctx context.Context, err error, tenantID uuid.UUID, around time.Time, durationMinutes int) error {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return err
	}
	if svcErr.Code != ErrCodeSlotUnavailable && svcErr.Code != ErrCodeSlotContended {
		return err
	}

	alternatives, altErr := s.alternatives(ctx, tenantID, around, durationMinutes)
	if altErr != nil {
		s.logger.Warn("failed to compute alternative slots", "tenant_id", tenantID, "error", altErr)
		return err
	}

	if svcErr.Details == nil {
		svcErr.Details = map[string]any{}
	}
	svcErr.Details["alternative_slots"] = alternatives
	return svcErr
}

// alternatives scans the grid of same-duration slots after the requested
// time and returns the first free ones. Runs outside the booking
// transaction, on the pool, so it never extends lock hold time.
func (s *BookingService) alternatives(ctx context.Context, tenantID uuid.UUID, around time.Time, durationMinutes int) ([]time.Time, error) {
	step := time.Duration(durationMinutes) * time.Minute
	horizon := around.Add(step * 16)

	taken, err := repository.NewAppointmentRepository(s.db).ListConfirmedBetween(ctx, tenantID, around, horizon)
	if err != nil {
		return nil, err
	}

	occupied := make(map[time.Time]bool, len(taken))
	for _, t := range taken {
		occupied[t.UTC()] = true
	}

	now := time.Now()
	var free []time.Time
	for candidate := around.Add(step); candidate.Before(horizon) && len(free) < alternativeSlotCount; candidate = candidate.Add(step) {
		if candidate.Before(now) || occupied[candidate.UTC()] {
			continue
		}
		free = append(free, candidate)
	}

	return free, nil
}

func (s *BookingService) notify(ctx context.Context, kind string, appt *models.Appointment) {
	if err := s.notifier.Notify(ctx, Notification{
		Kind:     kind,
		TenantID: appt.TenantID,
		Payload: map[string]any{
			"booking_id":   appt.ID.String(),
			"scheduled_at": appt.ScheduledAt.Format(time.RFC3339),
		},
	}); err != nil {
		s.logger.Error("booking notification failed", "booking_id", appt.ID, "error", err)
	}
}
