// Package queue runs the durable webhook retry queue: a worker pool that
// claims due events from Postgres, dispatches them to a processor and
// applies the retry/backoff/dead-letter policy.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voxline/core/internal/config"
	"github.com/voxline/core/internal/db"
	"github.com/voxline/core/internal/models"
	"github.com/voxline/core/internal/repository"
	"github.com/voxline/core/internal/service"
)

// maxBackoff caps the delay between retries.
const maxBackoff = time.Hour

// janitorInterval is how often retention maintenance runs.
const janitorInterval = time.Minute

// Processor applies the business effect of one claimed event.
type Processor interface {
	Process(ctx context.Context, ev *models.WebhookEvent) error
}

// Worker drives webhook event processing. Retry state lives in the
// database, not in memory, so pending retries survive process restarts.
type Worker struct {
	db        *db.DB
	events    repository.WebhookEventRepository
	markers   repository.MarkerRepository
	processor Processor
	logger    *slog.Logger
	cfg       config.WebhookConfig
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// New creates a worker pool over the webhook event queue
func New(database *db.DB, processor Processor, cfg config.WebhookConfig, logger *slog.Logger) *Worker {
	return &Worker{
		db:        database,
		events:    repository.NewWebhookEventRepository(database),
		markers:   repository.NewMarkerRepository(database),
		processor: processor,
		logger:    logger,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the worker pool and the retention janitor
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true

	w.logger.Info("starting webhook workers",
		"workers", w.cfg.Workers,
		"poll_interval", w.cfg.PollInterval,
		"max_attempts", w.cfg.MaxAttempts,
	)

	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.run(i)
	}

	w.wg.Add(1)
	go w.janitor()
}

// Stop shuts the pool down and waits for in-flight events to finish
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false

	close(w.stopCh)
	w.wg.Wait()
	w.logger.Info("webhook workers stopped")
}

func (w *Worker) run(id int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.drain(id)
		}
	}
}

// drain claims and processes due events until the queue is momentarily empty
func (w *Worker) drain(id int) {
	ctx := context.Background()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		claimed, err := w.events.ClaimDue(ctx, w.cfg.ClaimBatch)
		if err != nil {
			w.logger.Error("failed to claim webhook events", "worker", id, "error", err)
			return
		}
		if len(claimed) == 0 {
			return
		}

		for _, ev := range claimed {
			w.handle(ctx, ev)
		}
	}
}

// handle runs one claimed event through the processor and applies the
// retry policy to the outcome. A nil processor result means the event
// marked itself completed inside its own transaction.
func (w *Worker) handle(ctx context.Context, ev *models.WebhookEvent) {
	err := w.processor.Process(ctx, ev)
	if err == nil {
		return
	}

	switch {
	case service.IsPermanent(err):
		w.logger.Warn("webhook event failed permanently",
			"external_event_id", ev.ExternalEventID,
			"type", ev.Type,
			"error", err,
		)
		if markErr := w.events.MarkFailed(ctx, ev.ID, err.Error()); markErr != nil {
			w.logger.Error("failed to mark event failed", "event_id", ev.ID, "error", markErr)
		}

	case ev.Attempts >= w.maxAttempts(ev):
		w.logger.Error("webhook event dead-lettered after exhausting retries",
			"external_event_id", ev.ExternalEventID,
			"type", ev.Type,
			"attempts", ev.Attempts,
			"error", err,
		)
		if markErr := w.events.MarkDeadLetter(ctx, ev.ID, err.Error()); markErr != nil {
			w.logger.Error("failed to dead-letter event", "event_id", ev.ID, "error", markErr)
		}

	default:
		delay := BackoffDelay(w.cfg.BackoffBase, ev.Attempts)
		w.logger.Warn("webhook event failed transiently, rescheduling",
			"external_event_id", ev.ExternalEventID,
			"attempt", ev.Attempts,
			"retry_in", delay,
			"error", err,
		)
		if markErr := w.events.Reschedule(ctx, ev.ID, time.Now().Add(delay), err.Error()); markErr != nil {
			w.logger.Error("failed to reschedule event", "event_id", ev.ID, "error", markErr)
		}
	}
}

func (w *Worker) maxAttempts(ev *models.WebhookEvent) int {
	if ev.MaxAttempts > 0 {
		return ev.MaxAttempts
	}
	return w.cfg.MaxAttempts
}

// BackoffDelay computes the exponential delay before the next attempt:
// base after the first failure, doubling each attempt after that.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// janitor periodically prunes expired dedupe markers and requeues events
// stuck in processing by a crashed worker
func (w *Worker) janitor() {
	defer w.wg.Done()

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx := context.Background()

			pruned, err := w.markers.PruneOlderThan(ctx, time.Now().Add(-w.cfg.MarkerRetention))
			if err != nil {
				w.logger.Error("failed to prune processed event markers", "error", err)
			} else if pruned > 0 {
				w.logger.Info("pruned processed event markers", "count", pruned)
			}

			requeued, err := w.events.RequeueStuck(ctx, w.cfg.StuckAge)
			if err != nil {
				w.logger.Error("failed to requeue stuck events", "error", err)
			} else if requeued > 0 {
				w.logger.Warn("requeued events stuck in processing", "count", requeued)
			}
		}
	}
}
