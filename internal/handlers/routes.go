package handlers

import (
	"log/slog"
	"net/http"

	"github.com/voxline/core/internal/api"
	"github.com/voxline/core/internal/cache"
	"github.com/voxline/core/internal/config"
	"github.com/voxline/core/internal/db"
	"github.com/voxline/core/internal/middleware"
	"github.com/voxline/core/internal/repository"
	"github.com/voxline/core/internal/service"
)

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(
	database *db.DB,
	dedupeCache *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) http.Handler {
	notifier := service.NewLogNotifier(logger)
	ledgerService := service.NewLedgerService(database, notifier, logger)
	bookingService := service.NewBookingService(database, notifier, cfg.App.DefaultRegion, logger)
	ingestService := service.NewIngestService(database, dedupeCache, cfg.Webhook, logger)

	handler := NewHandler(bookingService, ledgerService, ingestService, database, logger)

	mux := http.NewServeMux()
	api.RegisterDocsRoutes(mux)

	mux.HandleFunc("GET /health", handler.GetHealth)

	mux.HandleFunc("POST /api/v1/bookings", handler.CreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{bookingId}", handler.GetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{bookingId}/cancel", handler.CancelBooking)
	mux.HandleFunc("POST /api/v1/bookings/{bookingId}/reschedule", handler.RescheduleBooking)

	mux.HandleFunc("POST /api/v1/authorizations", handler.CreateAuthorization)
	mux.HandleFunc("POST /api/v1/wallet/debits", handler.CreateDebit)
	mux.HandleFunc("POST /api/v1/wallet/credits", handler.CreateCredit)
	mux.HandleFunc("GET /api/v1/tenants/{tenantId}/balance", handler.GetBalance)

	mux.HandleFunc("POST /api/v1/webhooks/{provider}", handler.ReceiveWebhook)

	var finalHandler http.Handler = mux

	idempotencyRepo := repository.NewIdempotencyRepository(database)
	finalHandler = middleware.Idempotency(idempotencyRepo, logger)(finalHandler)

	finalHandler = middleware.RequestLog(logger)(finalHandler)

	return finalHandler
}
