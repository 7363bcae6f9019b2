package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogNotifier is the default Notifier: it records the notification and does
// nothing else. Real dispatchers (SMS, email, calendar sync) plug in behind
// the same interface.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a Notifier that only logs
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, notification Notification) error {
	n.logger.Info("notification dispatched",
		"kind", notification.Kind,
		"tenant_id", notification.TenantID,
	)
	return nil
}

// StaticVault is a CredentialVault stub for environments without a real
// vault. It refuses every lookup.
type StaticVault struct{}

func (StaticVault) Decrypt(_ context.Context, tenantID uuid.UUID, provider string) (string, error) {
	return "", &ServiceError{
		Code:    ErrCodeInternalError,
		Message: "no credential configured for tenant " + tenantID.String() + " provider " + provider,
	}
}
