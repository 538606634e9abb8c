package port

import (
	"context"

	"github.com/arklim/admin-panel-api/internal/core/domain"
)

// AuditRecorder accepts security-relevant events. Implementations may fail;
// callers swallow the error after logging it.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	Action string
	Limit  int
	Offset int
}

// AuditLogRepository persists and queries the audit trail.
type AuditLogRepository interface {
	Insert(ctx context.Context, entry domain.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditLog, error)
	Count(ctx context.Context, filter AuditFilter) (int, error)
}
