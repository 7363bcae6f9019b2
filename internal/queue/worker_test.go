package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/voxline/core/internal/config"
	"github.com/voxline/core/internal/models"
	"github.com/voxline/core/internal/repository/mocks"
	"github.com/voxline/core/internal/service"
)

type processorFunc func(ctx context.Context, ev *models.WebhookEvent) error

func (f processorFunc) Process(ctx context.Context, ev *models.WebhookEvent) error {
	return f(ctx, ev)
}

func testWorker(t *testing.T, events *mocks.MockWebhookEventRepository, p Processor) *Worker {
	t.Helper()
	return &Worker{
		events:    events,
		markers:   mocks.NewMockMarkerRepository(t),
		processor: p,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg: config.WebhookConfig{
			MaxAttempts:  3,
			BackoffBase:  2 * time.Second,
			PollInterval: time.Second,
			ClaimBatch:   10,
		},
		stopCh: make(chan struct{}),
	}
}

func claimedEvent(attempts int) *models.WebhookEvent {
	return &models.WebhookEvent{
		ID:              uuid.New(),
		ExternalEventID: "evt_1",
		Type:            "call.completed",
		Status:          models.WebhookStatusProcessing,
		Attempts:        attempts,
		MaxAttempts:     3,
	}
}

func TestHandle_SuccessTouchesNothing(t *testing.T) {
	events := mocks.NewMockWebhookEventRepository(t)
	w := testWorker(t, events, processorFunc(func(context.Context, *models.WebhookEvent) error {
		return nil
	}))

	// The processor marks completion inside its own transaction; the worker
	// has nothing left to do.
	w.handle(context.Background(), claimedEvent(1))

	events.AssertNotCalled(t, "MarkCompleted")
	events.AssertNotCalled(t, "Reschedule")
}

func TestHandle_PermanentFailureMarksFailed(t *testing.T) {
	ev := claimedEvent(1)

	events := mocks.NewMockWebhookEventRepository(t)
	events.On("MarkFailed", mock.Anything, ev.ID, mock.AnythingOfType("string")).Return(nil)

	w := testWorker(t, events, processorFunc(func(context.Context, *models.WebhookEvent) error {
		return service.Permanent(errors.New("malformed payload"))
	}))

	w.handle(context.Background(), ev)

	events.AssertNotCalled(t, "Reschedule")
	events.AssertNotCalled(t, "MarkDeadLetter")
}

func TestHandle_TransientFailureReschedules(t *testing.T) {
	ev := claimedEvent(1)
	before := time.Now()

	events := mocks.NewMockWebhookEventRepository(t)
	events.On("Reschedule", mock.Anything, ev.ID, mock.MatchedBy(func(next time.Time) bool {
		// First failure retries after the base delay.
		return !next.Before(before.Add(2*time.Second)) && next.Before(before.Add(10*time.Second))
	}), "connection refused").Return(nil)

	w := testWorker(t, events, processorFunc(func(context.Context, *models.WebhookEvent) error {
		return errors.New("connection refused")
	}))

	w.handle(context.Background(), ev)
}

func TestHandle_ExhaustedRetriesDeadLetter(t *testing.T) {
	ev := claimedEvent(3)

	events := mocks.NewMockWebhookEventRepository(t)
	events.On("MarkDeadLetter", mock.Anything, ev.ID, "still failing").Return(nil)

	w := testWorker(t, events, processorFunc(func(context.Context, *models.WebhookEvent) error {
		return errors.New("still failing")
	}))

	w.handle(context.Background(), ev)

	events.AssertNotCalled(t, "Reschedule")
}

func TestHandle_ZeroMaxAttemptsFallsBackToConfig(t *testing.T) {
	ev := claimedEvent(3)
	ev.MaxAttempts = 0

	events := mocks.NewMockWebhookEventRepository(t)
	events.On("MarkDeadLetter", mock.Anything, ev.ID, mock.AnythingOfType("string")).Return(nil)

	w := testWorker(t, events, processorFunc(func(context.Context, *models.WebhookEvent) error {
		return errors.New("boom")
	}))

	w.handle(context.Background(), ev)
}

func TestBackoffDelay(t *testing.T) {
	base := 2 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{10, 1024 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BackoffDelay(base, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoffDelay_Capped(t *testing.T) {
	assert.Equal(t, maxBackoff, BackoffDelay(2*time.Second, 30))
	assert.Equal(t, maxBackoff, BackoffDelay(time.Hour, 5))
}

func TestStartStop_Idempotent(t *testing.T) {
	events := mocks.NewMockWebhookEventRepository(t)
	w := testWorker(t, events, processorFunc(func(context.Context, *models.WebhookEvent) error {
		return nil
	}))

	// Stop before Start is a no-op; double Stop must not close stopCh twice.
	w.Stop()
	w.Stop()
}
