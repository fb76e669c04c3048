package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amaxoft/portal-gateway/internal/domain"
)

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository returns a Postgres-backed implementation.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, ip_address, user_agent, metadata, created_at)
        VALUES ($1, $2::uuid, $3, $4, $5, $6, $7, $8, $9)`

	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.IPAddress,
		entry.UserAgent,
		metadata,
		entry.Timestamp,
	)
	return err
}
