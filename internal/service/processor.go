package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/voxline/core/internal/db"
	"github.com/voxline/core/internal/models"
	"github.com/voxline/core/internal/repository"
)

// EventProcessor applies the business effect of a webhook event exactly
// once. The effect, the processed-event marker and the completed status are
// committed in one database transaction: never mark-before-commit, never
// commit-without-marking.
type EventProcessor struct {
	db                 *db.DB
	ledger             *LedgerService
	notifier           Notifier
	validate           *validator.Validate
	logger             *slog.Logger
	rateCentsPerMinute int64
}

// NewEventProcessor creates a new EventProcessor
func NewEventProcessor(database *db.DB, ledger *LedgerService, notifier Notifier, rateCentsPerMinute int64, logger *slog.Logger) *EventProcessor {
	return &EventProcessor{
		db:                 database,
		ledger:             ledger,
		notifier:           notifier,
		validate:           validator.New(),
		logger:             logger,
		rateCentsPerMinute: rateCentsPerMinute,
	}
}

// Process applies one claimed event. A nil return means the event is
// completed; a permanent error means it must never be retried; any other
// error is transient and the queue reschedules it.
func (p *EventProcessor) Process(ctx context.Context, ev *models.WebhookEvent) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback error is not critical in defer
	}()

	markers := repository.NewMarkerRepository(tx)
	events := repository.NewWebhookEventRepository(tx)

	inserted, err := markers.Insert(ctx, ev.ExternalEventID)
	if err != nil {
		return fmt.Errorf("failed to insert processed event marker: %w", err)
	}

	var notification *Notification
	if inserted {
		notification, err = p.applyEffect(ctx, tx, ev)
		if err != nil {
			return err
		}
	} else {
		p.logger.Info("event already processed, skipping effect",
			"external_event_id", ev.ExternalEventID,
		)
	}

	if err := events.MarkCompleted(ctx, ev.ID); err != nil {
		return fmt.Errorf("failed to mark event completed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event effect: %w", err)
	}

	if notification != nil {
		if err := p.notifier.Notify(ctx, *notification); err != nil {
			p.logger.Error("event notification failed",
				"external_event_id", ev.ExternalEventID,
				"error", err,
			)
		}
	}

	return nil
}

// applyEffect dispatches on the event type. tx is the open transaction the
// marker was written in; every ledger effect runs on it.
func (p *EventProcessor) applyEffect(ctx context.Context, tx *sql.Tx, ev *models.WebhookEvent) (*Notification, error) {
	tenants := repository.NewTenantRepository(tx)
	txns := repository.NewTransactionRepository(tx)

	switch ev.Type {
	case EventPaymentSucceeded:
		var data PaymentSucceededData
		if err := decodeEventData(p.validate, ev.Payload, &data); err != nil {
			return nil, err
		}
		_, err := p.ledger.performEntry(ctx, tenants, txns, LedgerRequest{
			TenantID:       data.TenantID,
			AmountCents:    data.AmountCents,
			Type:           models.TransactionTypeTopUp,
			Description:    fmt.Sprintf("payment via %s", data.Provider),
			IdempotencyKey: eventIdempotencyKey(ev.ExternalEventID),
			ExternalRef:    ev.ExternalEventID,
		}, models.DirectionCredit)
		if err != nil {
			if cerr := p.classifyLedgerError(err); cerr != nil {
				return nil, cerr
			}
			return nil, nil
		}
		return &Notification{
			Kind:     NotificationPaymentReceived,
			TenantID: data.TenantID,
			Payload:  map[string]any{"amount_cents": data.AmountCents},
		}, nil

	case EventPaymentFailed:
		var data PaymentFailedData
		if err := decodeEventData(p.validate, ev.Payload, &data); err != nil {
			return nil, err
		}
		p.logger.Warn("payment failed",
			"tenant_id", data.TenantID,
			"provider", data.Provider,
			"provider_ref", data.ProviderRef,
		)
		return nil, nil

	case EventCallCompleted:
		var data CallCompletedData
		if err := decodeEventData(p.validate, ev.Payload, &data); err != nil {
			return nil, err
		}
		amount := CallCharge(data.DurationSeconds, p.rateCentsPerMinute)
		if amount == 0 {
			return nil, nil
		}
		_, err := p.ledger.performEntry(ctx, tenants, txns, LedgerRequest{
			TenantID:       data.TenantID,
			AmountCents:    amount,
			Type:           models.TransactionTypeCallCharge,
			Description:    fmt.Sprintf("call %s (%ds)", data.CallID, data.DurationSeconds),
			IdempotencyKey: eventIdempotencyKey(ev.ExternalEventID),
			ExternalRef:    ev.ExternalEventID,
		}, models.DirectionDebit)
		if err != nil {
			if cerr := p.classifyLedgerError(err); cerr != nil {
				return nil, cerr
			}
		}
		return nil, nil

	case EventNumberProvisioned:
		var data NumberProvisionedData
		if err := decodeEventData(p.validate, ev.Payload, &data); err != nil {
			return nil, err
		}
		// The provisioning debit already happened; nothing to move.
		p.logger.Info("number provisioned", "tenant_id", data.TenantID, "number", data.Number)
		return nil, nil

	case EventNumberProvisionFailed:
		var data NumberProvisionFailedData
		if err := decodeEventData(p.validate, ev.Payload, &data); err != nil {
			return nil, err
		}
		// Charge succeeded, downstream action failed: always refund.
		_, err := p.ledger.performEntry(ctx, tenants, txns, LedgerRequest{
			TenantID:       data.TenantID,
			AmountCents:    data.AmountCents,
			Type:           models.TransactionTypeRefund,
			Description:    fmt.Sprintf("refund for failed provisioning of %s", data.Number),
			IdempotencyKey: "refund:" + data.ChargeRef,
			ExternalRef:    ev.ExternalEventID,
		}, models.DirectionCredit)
		if err != nil {
			if cerr := p.classifyLedgerError(err); cerr != nil {
				return nil, cerr
			}
		}
		return nil, nil

	default:
		p.logger.Warn("unknown event type, acknowledged and ignored",
			"type", ev.Type,
			"external_event_id", ev.ExternalEventID,
		)
		return nil, nil
	}
}

// classifyLedgerError decides whether a failed ledger effect is worth
// retrying. A duplicate entry means the effect was already applied under
// its idempotency key and resolves to success; business rejections cannot
// succeed on a retry seconds later; infrastructure failures can.
func (p *EventProcessor) classifyLedgerError(err error) error {
	if errors.Is(err, models.ErrDuplicateTransaction) {
		return nil
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Code {
		case ErrCodeTenantNotFound, ErrCodeValidation, ErrCodeInsufficientFunds:
			return Permanent(err)
		}
	}
	return err
}

func eventIdempotencyKey(externalEventID string) string {
	return "evt:" + externalEventID
}
