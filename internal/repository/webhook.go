package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxline/core/internal/models"
)

// WebhookEventRepository defines the interface for the durable webhook
// retry queue.
type WebhookEventRepository interface {
	// Enqueue durably stores an inbound event. Returns false without error
	// when an event with the same external_event_id was already enqueued.
	Enqueue(ctx context.Context, ev *models.WebhookEvent) (bool, error)
	// ClaimDue atomically claims up to limit due events for processing,
	// skipping rows locked by other workers.
	ClaimDue(ctx context.Context, limit int) ([]*models.WebhookEvent, error)
	FindByExternalID(ctx context.Context, externalEventID string) (*models.WebhookEvent, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	// Reschedule returns a transiently failed event to the queue with the
	// given next attempt time.
	Reschedule(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, lastError string) error
	// MarkFailed terminates an event after a permanent failure. Never retried.
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	// MarkDeadLetter parks an event whose retry budget is exhausted for
	// manual review.
	MarkDeadLetter(ctx context.Context, id uuid.UUID, lastError string) error
	// RequeueStuck returns events stuck in processing longer than maxAge to
	// pending, recovering work lost to crashed workers.
	RequeueStuck(ctx context.Context, maxAge time.Duration) (int64, error)
}

type webhookEventRepository struct {
	q Querier
}

// NewWebhookEventRepository creates a new WebhookEventRepository
func NewWebhookEventRepository(q Querier) WebhookEventRepository {
	return &webhookEventRepository{q: q}
}

const webhookColumns = `
	id, external_event_id, provider, type, payload, status,
	attempts, max_attempts, next_attempt_at, last_attempt_at, last_error,
	created_at, updated_at
`

func (r *webhookEventRepository) Enqueue(ctx context.Context, ev *models.WebhookEvent) (bool, error) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	if ev.NextAttemptAt.IsZero() {
		ev.NextAttemptAt = now
	}
	if ev.Status == "" {
		ev.Status = models.WebhookStatusPending
	}

	query := `
		INSERT INTO webhook_events (
			id, external_event_id, provider, type, payload, status,
			attempts, max_attempts, next_attempt_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (external_event_id) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		ev.ID,
		ev.ExternalEventID,
		ev.Provider,
		ev.Type,
		[]byte(ev.Payload),
		ev.Status,
		ev.Attempts,
		ev.MaxAttempts,
		ev.NextAttemptAt,
		ev.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue webhook event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *webhookEventRepository) ClaimDue(ctx context.Context, limit int) ([]*models.WebhookEvent, error) {
	query := `
		UPDATE webhook_events
		SET status = 'processing',
		    attempts = attempts + 1,
		    last_attempt_at = NOW(),
		    updated_at = NOW()
		WHERE id IN (
			SELECT id FROM webhook_events
			WHERE status = 'pending' AND next_attempt_at <= NOW()
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + webhookColumns

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due webhook events: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var events []*models.WebhookEvent
	for rows.Next() {
		ev, err := scanWebhookEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claimed events: %w", err)
	}

	return events, nil
}

func (r *webhookEventRepository) FindByExternalID(ctx context.Context, externalEventID string) (*models.WebhookEvent, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_events WHERE external_event_id = $1`

	ev, err := scanWebhookEventRow(r.q.QueryRowContext(ctx, query, externalEventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return ev, err
}

func (r *webhookEventRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.setTerminal(ctx, id, models.WebhookStatusCompleted, nil)
}

func (r *webhookEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.setTerminal(ctx, id, models.WebhookStatusFailed, &lastError)
}

func (r *webhookEventRepository) MarkDeadLetter(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.setTerminal(ctx, id, models.WebhookStatusDeadLetter, &lastError)
}

func (r *webhookEventRepository) Reschedule(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, lastError string) error {
	query := `
		UPDATE webhook_events
		SET status = 'pending',
		    next_attempt_at = $2,
		    last_error = $3,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, id, nextAttemptAt, lastError)
	if err != nil {
		return fmt.Errorf("failed to reschedule webhook event: %w", err)
	}
	return checkAffected(result)
}

func (r *webhookEventRepository) RequeueStuck(ctx context.Context, maxAge time.Duration) (int64, error) {
	query := `
		UPDATE webhook_events
		SET status = 'pending',
		    next_attempt_at = NOW(),
		    updated_at = NOW()
		WHERE status = 'processing' AND last_attempt_at < NOW() - ($1 * INTERVAL '1 second')
	`

	result, err := r.q.ExecContext(ctx, query, int64(maxAge.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stuck webhook events: %w", err)
	}

	return result.RowsAffected()
}

func (r *webhookEventRepository) setTerminal(ctx context.Context, id uuid.UUID, status models.WebhookEventStatus, lastError *string) error {
	query := `
		UPDATE webhook_events
		SET status = $2,
		    last_error = COALESCE($3, last_error),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, id, status, lastError)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event %s: %w", status, err)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanWebhookEventRow(row rowScanner) (*models.WebhookEvent, error) {
	var ev models.WebhookEvent
	var payload []byte
	err := row.Scan(
		&ev.ID,
		&ev.ExternalEventID,
		&ev.Provider,
		&ev.Type,
		&payload,
		&ev.Status,
		&ev.Attempts,
		&ev.MaxAttempts,
		&ev.NextAttemptAt,
		&ev.LastAttemptAt,
		&ev.LastError,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan webhook event: %w", err)
	}

	ev.Payload = payload
	return &ev, nil
}
