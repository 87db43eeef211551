package postgres

import (
	"context"
	"fmt"

	"campus-store/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository. Rows are append-only.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create appends an audit entry. No transaction: the trail is best-effort
// and must not hold locks the money path is waiting on.
func (r *AuditRepo) Create(ctx context.Context, entry *domain.AuditEntry) error {
	details := entry.Details
	if details == "" {
		details = "{}"
	}
	query := `INSERT INTO audit_log (actor_id, action, resource, details, ip_address)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.pool.Exec(ctx, query,
		entry.ActorID, string(entry.Action), entry.Resource, details, entry.IPAddress,
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
