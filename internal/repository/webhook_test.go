package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxline/core/internal/models"
)

func TestWebhookEnqueue_FirstDelivery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookEventRepository(db)

	ev := &models.WebhookEvent{
		ExternalEventID: "evt_1",
		Provider:        "stripe",
		Type:            "payment.succeeded",
		Payload:         []byte(`{"amount_cents":5000}`),
		MaxAttempts:     3,
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO webhook_events`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.Enqueue(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, models.WebhookStatusPending, ev.Status)
	assert.False(t, ev.NextAttemptAt.IsZero(), "new events are due immediately")
}

func TestWebhookEnqueue_DuplicateDelivery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookEventRepository(db)

	ev := &models.WebhookEvent{
		ExternalEventID: "evt_1",
		Provider:        "stripe",
		Type:            "payment.succeeded",
		Payload:         []byte(`{}`),
	}

	// ON CONFLICT DO NOTHING affects zero rows on a replay.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO webhook_events`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Enqueue(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestWebhookReschedule(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookEventRepository(db)

	id := uuid.New()
	next := time.Now().Add(4 * time.Second)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE webhook_events`)).
		WithArgs(id, next, "connection refused").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Reschedule(context.Background(), id, next, "connection refused"))
}

func TestWebhookMarkCompleted_MissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookEventRepository(db)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE webhook_events`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.MarkCompleted(context.Background(), id), models.ErrNotFound)
}

func TestMarkerInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMarkerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO processed_event_markers`)).
		WithArgs("evt_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.Insert(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestMarkerInsert_AlreadyProcessed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMarkerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO processed_event_markers`)).
		WithArgs("evt_1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Insert(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.False(t, inserted, "existing marker means the effect was already applied")
}

func TestMarkerPruneOlderThan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMarkerRepository(db)

	cutoff := time.Now().Add(-24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM processed_event_markers`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	pruned, err := repo.PruneOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), pruned)
}
