package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/voxline/core/internal/cache"
	"github.com/voxline/core/internal/config"
	"github.com/voxline/core/internal/db"
	"github.com/voxline/core/internal/models"
	"github.com/voxline/core/internal/repository"
)

// IngestService verifies and durably enqueues inbound provider events. The
// endpoint acknowledges once the event row is committed; processing runs
// later on the internal queue, so ingestion latency is decoupled from
// processing latency.
type IngestService struct {
	db       *db.DB
	cache    *cache.Cache
	validate *validator.Validate
	logger   *slog.Logger
	cfg      config.WebhookConfig
}

// NewIngestService creates a new IngestService
func NewIngestService(database *db.DB, dedupeCache *cache.Cache, cfg config.WebhookConfig, logger *slog.Logger) *IngestService {
	return &IngestService{
		db:       database,
		cache:    dedupeCache,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
	}
}

// IngestResult reports what receipt did with an event
type IngestResult struct {
	ExternalEventID string
	EventID         uuid.UUID
	Duplicate       bool
}

// Ingest verifies the signature, dedupes and enqueues one event.
// Verification is unconditional: there is no environment where it is
// skipped, because an unverified event on this pipeline could grant
// arbitrary balance.
func (s *IngestService) Ingest(ctx context.Context, provider string, body []byte, signature string) (*IngestResult, error) {
	if !VerifySignature(s.cfg.SigningSecret, body, signature) {
		s.logger.Warn("webhook signature verification failed", "provider", provider)
		return nil, &ServiceError{Code: ErrCodeSignatureInvalid, Message: "invalid webhook signature"}
	}

	var envelope EventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &ServiceError{Code: ErrCodeValidation, Message: fmt.Sprintf("malformed event envelope: %v", err)}
	}
	if err := s.validate.Struct(&envelope); err != nil {
		return nil, &ServiceError{Code: ErrCodeValidation, Message: fmt.Sprintf("invalid event envelope: %v", err)}
	}

	if !KnownEventType(envelope.Type) {
		s.logger.Warn("unknown webhook event type received",
			"provider", provider,
			"type", envelope.Type,
			"external_event_id", envelope.ID,
		)
	}

	// Fast-path dedupe is read-only before the insert; the unique constraint
	// on external_event_id stays authoritative if Redis is cold or
	// unavailable.
	seen, err := s.cache.IsEventSeen(ctx, envelope.ID)
	if err != nil {
		s.logger.Warn("dedupe cache unavailable, falling back to database", "error", err)
	} else if seen {
		return &IngestResult{ExternalEventID: envelope.ID, Duplicate: true}, nil
	}

	ev := &models.WebhookEvent{
		ExternalEventID: envelope.ID,
		Provider:        provider,
		Type:            envelope.Type,
		Payload:         envelope.Data,
		MaxAttempts:     s.cfg.MaxAttempts,
	}

	inserted, err := repository.NewWebhookEventRepository(s.db).Enqueue(ctx, ev)
	if err != nil {
		return nil, &ServiceError{Code: ErrCodeTransientInfra, Message: fmt.Sprintf("failed to enqueue event: %v", err), Err: err}
	}

	// Mark only once the row is durable. A key set before a failed insert
	// would make the provider's redelivery look like a duplicate and the
	// event would never be applied.
	if _, err := s.cache.MarkEventSeen(ctx, envelope.ID); err != nil {
		s.logger.Warn("failed to record event in dedupe cache", "error", err)
	}

	if !inserted {
		return &IngestResult{ExternalEventID: envelope.ID, Duplicate: true}, nil
	}

	s.logger.Info("webhook event enqueued",
		"provider", provider,
		"type", envelope.Type,
		"external_event_id", envelope.ID,
	)

	return &IngestResult{ExternalEventID: envelope.ID, EventID: ev.ID}, nil
}
