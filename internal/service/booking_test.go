package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/voxline/core/internal/models"
	"github.com/voxline/core/internal/repository"
	"github.com/voxline/core/internal/repository/mocks"
)

func newTestBooking() *BookingService {
	logger := discardLogger()
	return NewBookingService(nil, NewLogNotifier(logger), "US", logger)
}

func futureSlot() time.Time {
	return repository.NormalizeSlot(time.Now().Add(48 * time.Hour))
}

func testBookingRequest(tenantID uuid.UUID, slot time.Time) BookingRequest {
	return BookingRequest{
		TenantID:        tenantID,
		ScheduledAt:     slot,
		DurationMinutes: 30,
		ServiceType:     "cleaning",
		Contact: models.Contact{
			Name:  "John Doe",
			Phone: "+14155552671",
			Email: "john@example.com",
		},
	}
}

func TestPerformBook_Success(t *testing.T) {
	svc := newTestBooking()
	tenantID := uuid.New()
	slot := futureSlot()

	appts := mocks.NewMockAppointmentRepository(t)
	audits := mocks.NewMockAuditRepository(t)

	appts.On("TryLockSlot", mock.Anything, tenantID, slot).Return(true, nil)
	appts.On("FindConfirmedAt", mock.Anything, tenantID, slot).Return(nil, models.ErrNotFound)
	appts.On("Create", mock.Anything, mock.AnythingOfType("*models.Appointment")).Return(nil)
	audits.On("Append", mock.Anything, mock.MatchedBy(func(e *models.AuditEntry) bool {
		return e.Kind == models.AuditKindBooked && e.TenantID == tenantID
	})).Return(nil)

	appt, err := svc.performBook(context.Background(), appts, audits, testBookingRequest(tenantID, slot))
	require.NoError(t, err)

	assert.Equal(t, models.AppointmentStatusConfirmed, appt.Status)
	assert.Equal(t, slot, appt.ScheduledAt)
	assert.Equal(t, tenantID, appt.TenantID)
	assert.NotEqual(t, uuid.Nil, appt.ID)
}

func TestPerformBook_SlotContended(t *testing.T) {
	svc := newTestBooking()
	tenantID := uuid.New()
	slot := futureSlot()

	appts := mocks.NewMockAppointmentRepository(t)
	audits := mocks.NewMockAuditRepository(t)

	appts.On("TryLockSlot", mock.Anything, tenantID, slot).Return(false, nil)

	_, err := svc.performBook(context.Background(), appts, audits, testBookingRequest(tenantID, slot))

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrCodeSlotContended, svcErr.Code)

	appts.AssertNotCalled(t, "Create")
}

func TestPerformBook_SlotAlreadyBooked(t *testing.T) {
	svc := newTestBooking()
	tenantID := uuid.New()
	slot := futureSlot()

	appts := mocks.NewMockAppointmentRepository(t)
	audits := mocks.NewMockAuditRepository(t)

	appts.On("TryLockSlot", mock.Anything, tenantID, slot).Return(true, nil)
	appts.On("FindConfirmedAt", mock.Anything, tenantID, slot).
		Return(&models.Appointment{ID: uuid.New(), TenantID: tenantID, ScheduledAt: slot}, nil)

	_, err := svc.performBook(context.Background(), appts, audits, testBookingRequest(tenantID, slot))

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrCodeSlotUnavailable, svcErr.Code)

	appts.AssertNotCalled(t, "Create")
}

func TestPerformBook_UniqueIndexRace(t *testing.T) {
	svc := newTestBooking()
	tenantID := uuid.New()
	slot := futureSlot()

	appts := mocks.NewMockAppointmentRepository(t)
	audits := mocks.NewMockAuditRepository(t)

	appts.On("TryLockSlot", mock.Anything, tenantID, slot).Return(true, nil)
	appts.On("FindConfirmedAt", mock.Anything, tenantID, slot).Return(nil, models.ErrNotFound)
	appts.On("Create", mock.Anything, mock.AnythingOfType("*models.Appointment")).
		Return(models.ErrSlotTaken)

	_, err := svc.performBook(context.Background(), appts, audits, testBookingRequest(tenantID, slot))

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrCodeSlotUnavailable, svcErr.Code)
}

func TestPerformCancel_Success(t *testing.T) {
	svc := newTestBooking()
	tenantID := uuid.New()
	bookingID := uuid.New()

	appts := mocks.NewMockAppointmentRepository(t)
	audits := mocks.NewMockAuditRepository(t)

	appts.On("FindByIDForUpdate", mock.Anything, bookingID).Return(&models.Appointment{
		ID:          bookingID,
		TenantID:    tenantID,
		ScheduledAt: futureSlot(),
		Status:      models.AppointmentStatusConfirmed,
	}, nil)
	appts.On("UpdateStatus", mock.Anything, bookingID, models.AppointmentStatusCancelled).Return(nil)
	audits.On("Append", mock.Anything, mock.MatchedBy(func(e *models.AuditEntry) bool {
		return e.Kind == models.AuditKindCancelled && e.RefID == bookingID
	})).Return(nil)

	appt, err := svc.performCancel(context.Background(), appts, audits, tenantID, bookingID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, appt.Status)
}

func TestPerformCancel_WrongTenantIsNotFound(t *testing.T) {
	svc := newTestBooking()
	bookingID := uuid.New()

	appts := mocks.NewMockAppointmentRepository(t)
	audits := mocks.NewMockAuditRepository(t)

	appts.On("FindByIDForUpdate", mock.Anything, bookingID).Return(&models.Appointment{
		ID:       bookingID,
		TenantID: uuid.New(),
		Status:   models.AppointmentStatusConfirmed,
	}, nil)

	_, err := svc.performCancel(context.Background(), appts, audits, uuid.New(), bookingID)

	// Cross-tenant probes must be indistinguishable from missing bookings.
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrCodeBookingNotFound, svcErr.Code)
}

func TestPerformCancel_AlreadyCancelled(t *testing.T) {
	svc := newTestBooking()
	tenantID := uuid.New()
	bookingID := uuid.New()

	appts := mocks.NewMockAppointmentRepository(t)
	audits := mocks.NewMockAuditRepository(t)

	appts.On("FindByIDForUpdate", mock.Anything, bookingID).Return(&models.Appointment{
		ID:       bookingID,
		TenantID: tenantID,
		Status:   models.AppointmentStatusCancelled,
	}, nil)

	_, err := svc.performCancel(context.Background(), appts, audits, tenantID, bookingID)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrCodeValidation, svcErr.Code)
}

func TestPerformReschedule_Success(t *testing.T) {
	svc := newTestBooking()
	tenantID := uuid.New()
	bookingID := uuid.New()
	oldSlot := futureSlot()
	newSlot := oldSlot.Add(2 * time.Hour)

	appts := mocks.NewMockAppointmentRepository(t)
	audits := mocks.NewMockAuditRepository(t)

	appts.On("FindByIDForUpdate", mock.Anything, bookingID).Return(&models.Appointment{
		ID:              bookingID,
		TenantID:        tenantID,
		ScheduledAt:     oldSlot,
		DurationMinutes: 30,
		Status:          models.AppointmentStatusConfirmed,
		ServiceType:     "cleaning",
		ContactName:     "John Doe",
		ContactPhone:    "+14155552671",
	}, nil)
	appts.On("TryLockSlot", mock.Anything, tenantID, newSlot).Return(true, nil)
	appts.On("FindConfirmedAt", mock.Anything, tenantID, newSlot).Return(nil, models.ErrNotFound)
	appts.On("UpdateStatus", mock.Anything, bookingID, models.AppointmentStatusCancelled).Return(nil)
	appts.On("Create", mock.Anything, mock.AnythingOfType("*models.Appointment")).Return(nil)
	audits.On("Append", mock.Anything, mock.MatchedBy(func(e *models.AuditEntry) bool {
		return e.Kind == models.AuditKindRescheduled
	})).Return(nil)

	replacement, durationMinutes, err := svc.performReschedule(context.Background(), appts, audits, tenantID, bookingID, newSlot)
	require.NoError(t, err)

	assert.NotEqual(t, bookingID, replacement.ID, "reschedule creates a new booking")
	assert.Equal(t, newSlot, replacement.ScheduledAt)
	assert.Equal(t, "John Doe", replacement.ContactName)
	assert.Equal(t, 30, replacement.DurationMinutes)
	assert.Equal(t, 30, durationMinutes)
}

func TestPerformReschedule_NewSlotTakenLeavesOriginal(t *testing.T) {
	svc := newTestBooking()
	tenantID := uuid.New()
	bookingID := uuid.New()
	newSlot := futureSlot().Add(2 * time.Hour)

	appts := mocks.NewMockAppointmentRepository(t)
	audits := mocks.NewMockAuditRepository(t)

	appts.On("FindByIDForUpdate", mock.Anything, bookingID).Return(&models.Appointment{
		ID:              bookingID,
		TenantID:        tenantID,
		ScheduledAt:     futureSlot(),
		DurationMinutes: 30,
		Status:          models.AppointmentStatusConfirmed,
	}, nil)
	appts.On("TryLockSlot", mock.Anything, tenantID, newSlot).Return(true, nil)
	appts.On("FindConfirmedAt", mock.Anything, tenantID, newSlot).
		Return(&models.Appointment{ID: uuid.New()}, nil)

	_, durationMinutes, err := svc.performReschedule(context.Background(), appts, audits, tenantID, bookingID, newSlot)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrCodeSlotUnavailable, svcErr.Code)

	// Conflicts report the moved booking's own duration so alternatives are
	// suggested on its grid, not a default one.
	assert.Equal(t, 30, durationMinutes)

	// The old booking is never touched when the new slot cannot be taken.
	appts.AssertNotCalled(t, "UpdateStatus")
	appts.AssertNotCalled(t, "Create")
}

func TestBook_RejectsPastSlot(t *testing.T) {
	svc := newTestBooking()

	_, err := svc.Book(context.Background(), testBookingRequest(uuid.New(), time.Now().Add(-time.Hour)))

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrCodeValidation, svcErr.Code)
}

func TestBook_RejectsInvalidContact(t *testing.T) {
	svc := newTestBooking()

	req := testBookingRequest(uuid.New(), futureSlot())
	req.Contact.Phone = "not-a-number"

	_, err := svc.Book(context.Background(), req)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrCodeValidation, svcErr.Code)
}
