package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/admin-panel-api/internal/core/domain"
	"github.com/arklim/admin-panel-api/internal/core/port"
)

// StubPublisher logs audit events instead of sending them to Kafka. Useful
// for development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly audit publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// Record logs the entry at info level and always succeeds.
func (p *StubPublisher) Record(_ context.Context, entry domain.AuditEntry) error {
	at := entry.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	fields := []zap.Field{
		zap.String("action", entry.Action),
		zap.Time("timestamp", at.UTC()),
		zap.Any("details", entry.Details),
	}
	if entry.UserID != nil {
		fields = append(fields, zap.String("user_id", *entry.UserID))
	}

	p.logger.Info("Stub audit event published", fields...)
	return nil
}

var _ port.AuditRecorder = (*StubPublisher)(nil)
