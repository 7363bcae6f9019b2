// Package handlers implements HTTP handlers for the API.
package handlers

import (
	"log/slog"

	"github.com/voxline/core/internal/service"
)

// Handler holds the service dependencies for all endpoints
type Handler struct {
	bookingService service.Booker
	ledgerService  service.Ledger
	ingestService  service.Ingestor
	healthChecker  service.HealthChecker
	logger         *slog.Logger
}

// NewHandler creates a new Handler with injected service dependencies.
func NewHandler(
	bookingService service.Booker,
	ledgerService service.Ledger,
	ingestService service.Ingestor,
	healthChecker service.HealthChecker,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		bookingService: bookingService,
		ledgerService:  ledgerService,
		ingestService:  ingestService,
		healthChecker:  healthChecker,
		logger:         logger,
	}
}
