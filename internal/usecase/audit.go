package usecase

import (
	"context"
	"fmt"

	"github.com/arklim/admin-panel-api/internal/core/domain"
	"github.com/arklim/admin-panel-api/internal/core/port"
)

// AuditService exposes read access over the audit trail.
type AuditService struct {
	logs port.AuditLogRepository
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(logs port.AuditLogRepository) *AuditService {
	return &AuditService{logs: logs}
}

// AuditPage is a paginated audit listing.
type AuditPage struct {
	Logs       []domain.AuditLog
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// List returns a page of audit entries, newest first, optionally filtered by action.
func (s *AuditService) List(ctx context.Context, page, limit int, action string) (*AuditPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := port.AuditFilter{
		Action: action,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	total, err := s.logs.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}

	logs, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}

	for i := range logs {
		if logs[i].Actor != nil {
			sanitized := logs[i].Actor.Sanitized()
			logs[i].Actor = &sanitized
		}
	}

	totalPages := (total + limit - 1) / limit

	return &AuditPage{
		Logs:       logs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}
