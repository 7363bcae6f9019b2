package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxline/core/internal/models"
)

// AuditRepository appends booking audit records. Entries are written in the
// same transaction as the mutation they describe and are never updated.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

type auditRepository struct {
	q Querier
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(q Querier) AuditRepository {
	return &auditRepository{q: q}
}

func (r *auditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal audit detail: %w", err)
	}

	query := `
		INSERT INTO audit_entries (id, tenant_id, kind, ref_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.q.ExecContext(ctx, query, entry.ID, entry.TenantID, entry.Kind, entry.RefID, detail, entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}
