package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/admin-panel-api/internal/core/domain"
	"github.com/arklim/admin-panel-api/internal/core/port"
	"github.com/arklim/admin-panel-api/internal/infra/config"
)

const schemaVersion = "1.0"

const auditEventType = "audit.events"

// AuditPublisher implements port.AuditRecorder using Kafka.
type AuditPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewAuditPublisher constructs a Kafka-backed audit event publisher.
func NewAuditPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *AuditPublisher {
	return &AuditPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// Record serializes the entry into a versioned envelope and hands it to the
// async producer. Delivery is fire-and-forget; broker errors surface on the
// producer error channel, not here.
func (p *AuditPublisher) Record(ctx context.Context, entry domain.AuditEntry) error {
	ts := entry.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	userID := ""
	if entry.UserID != nil {
		userID = *entry.UserID
	}

	payload := struct {
		Action    string         `json:"action"`
		UserID    *string        `json:"user_id,omitempty"`
		Details   map[string]any `json:"details,omitempty"`
		IPAddress *string        `json:"ip_address,omitempty"`
		UserAgent *string        `json:"user_agent,omitempty"`
	}{
		Action:    entry.Action,
		UserID:    entry.UserID,
		Details:   entry.Details,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: entry.Action,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: envelopeMetadata{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal audit envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(auditEventType),
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.AuditRecorder = (*AuditPublisher)(nil)
