package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/voxline/core/internal/models"
	"github.com/voxline/core/internal/service"
)

type createBookingRequest struct {
	TenantID        string         `json:"tenant_id"`
	ScheduledAt     time.Time      `json:"scheduled_at"`
	DurationMinutes int            `json:"duration_minutes"`
	ServiceType     string         `json:"service_type"`
	Contact         models.Contact `json:"contact"`
}

type cancelBookingRequest struct {
	TenantID string `json:"tenant_id"`
}

type rescheduleBookingRequest struct {
	TenantID    string    `json:"tenant_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type bookingResponse struct {
	BookingID       string         `json:"booking_id"`
	TenantID        string         `json:"tenant_id"`
	ScheduledAt     time.Time      `json:"scheduled_at"`
	DurationMinutes int            `json:"duration_minutes"`
	ServiceType     string         `json:"service_type"`
	Status          string         `json:"status"`
	Contact         models.Contact `json:"contact"`
	CreatedAt       time.Time      `json:"created_at"`
}

func toBookingResponse(appt *models.Appointment) bookingResponse {
	return bookingResponse{
		BookingID:       formatBookingID(appt.ID),
		TenantID:        appt.TenantID.String(),
		ScheduledAt:     appt.ScheduledAt,
		DurationMinutes: appt.DurationMinutes,
		ServiceType:     appt.ServiceType,
		Status:          string(appt.Status),
		Contact: models.Contact{
			Name:  appt.ContactName,
			Phone: appt.ContactPhone,
			Email: appt.ContactEmail,
		},
		CreatedAt: appt.CreatedAt,
	}
}

// CreateBooking handles POST /api/v1/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, err.Error(), nil)
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid tenant_id", nil)
		return
	}

	appt, err := h.bookingService.Book(r.Context(), service.BookingRequest{
		TenantID:        tenantID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		ServiceType:     req.ServiceType,
		Contact:         req.Contact,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(appt))
}

// GetBooking handles GET /api/v1/bookings/{bookingId}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseBookingID(r.PathValue("bookingId"))
	if err != nil {
		writeError(w, http.StatusNotFound, service.ErrCodeBookingNotFound, "booking not found", nil)
		return
	}

	tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid tenant_id", nil)
		return
	}

	appt, err := h.bookingService.GetBooking(r.Context(), tenantID, bookingID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(appt))
}

// CancelBooking handles POST /api/v1/bookings/{bookingId}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseBookingID(r.PathValue("bookingId"))
	if err != nil {
		writeError(w, http.StatusNotFound, service.ErrCodeBookingNotFound, "booking not found", nil)
		return
	}

	var req cancelBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, err.Error(), nil)
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid tenant_id", nil)
		return
	}

	appt, err := h.bookingService.Cancel(r.Context(), tenantID, bookingID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(appt))
}

// RescheduleBooking handles POST /api/v1/bookings/{bookingId}/reschedule
func (h *Handler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := parseBookingID(r.PathValue("bookingId"))
	if err != nil {
		writeError(w, http.StatusNotFound, service.ErrCodeBookingNotFound, "booking not found", nil)
		return
	}

	var req rescheduleBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, err.Error(), nil)
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid tenant_id", nil)
		return
	}

	appt, err := h.bookingService.Reschedule(r.Context(), tenantID, bookingID, req.ScheduledAt)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(appt))
}
