package repository

import (
	"context"
	"fmt"
	"time"
)

// MarkerRepository manages processed-event markers, the short-term
// idempotency guard for webhook effects. A marker is inserted in the same
// transaction as the effect it guards.
type MarkerRepository interface {
	// Insert writes a marker for the event. Returns false without error when
	// the marker already exists, meaning the effect was already applied.
	Insert(ctx context.Context, externalEventID string) (bool, error)
	Exists(ctx context.Context, externalEventID string) (bool, error)
	// PruneOlderThan deletes markers past their retention window.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type markerRepository struct {
	q Querier
}

// NewMarkerRepository creates a new MarkerRepository
func NewMarkerRepository(q Querier) MarkerRepository {
	return &markerRepository{q: q}
}

func (r *markerRepository) Insert(ctx context.Context, externalEventID string) (bool, error) {
	query := `
		INSERT INTO processed_event_markers (external_event_id, processed_at)
		VALUES ($1, NOW())
		ON CONFLICT (external_event_id) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query, externalEventID)
	if err != nil {
		return false, fmt.Errorf("failed to insert processed event marker: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *markerRepository) Exists(ctx context.Context, externalEventID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM processed_event_markers WHERE external_event_id = $1)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, externalEventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check processed event marker: %w", err)
	}

	return exists, nil
}

func (r *markerRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM processed_event_markers WHERE processed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune processed event markers: %w", err)
	}

	return result.RowsAffected()
}
