package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookEventStatus tracks an inbound event through the durable retry queue.
type WebhookEventStatus string

const (
	WebhookStatusPending    WebhookEventStatus = "pending"
	WebhookStatusProcessing WebhookEventStatus = "processing"
	WebhookStatusCompleted  WebhookEventStatus = "completed"
	WebhookStatusFailed     WebhookEventStatus = "failed"
	WebhookStatusDeadLetter WebhookEventStatus = "dead_letter"
)

// WebhookEvent is a durably enqueued provider event. The receiving endpoint
// acknowledges as soon as the row is committed; processing and retries are
// driven entirely by the internal queue.
//
// dead_letter rows are kept for manual review and are never retried
// automatically.
type WebhookEvent struct {
	CreatedAt       time.Time          `db:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at"`
	NextAttemptAt   time.Time          `db:"next_attempt_at"`
	LastAttemptAt   *time.Time         `db:"last_attempt_at"`
	LastError       *string            `db:"last_error"`
	ExternalEventID string             `db:"external_event_id"`
	Provider        string             `db:"provider"`
	Type            string             `db:"type"`
	Payload         json.RawMessage    `db:"payload"`
	Status          WebhookEventStatus `db:"status"`
	Attempts        int                `db:"attempts"`
	MaxAttempts     int                `db:"max_attempts"`
	ID              uuid.UUID          `db:"id"`
}

// ProcessedEventMarker is the short-term idempotency guard for webhook
// effects. The marker is written in the same transaction as the event's
// business effect and pruned after a fixed retention window.
type ProcessedEventMarker struct {
	ProcessedAt     time.Time `db:"processed_at"`
	ExternalEventID string    `db:"external_event_id"`
}
