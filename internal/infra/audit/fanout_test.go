package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/admin-panel-api/internal/core/domain"
)

type captureSink struct {
	entries []domain.AuditEntry
	err     error
}

func (s *captureSink) Record(_ context.Context, entry domain.AuditEntry) error {
	s.entries = append(s.entries, entry)
	return s.err
}

func TestFanOutDeliversToAllSinks(t *testing.T) {
	first := &captureSink{}
	second := &captureSink{}
	fanout := NewFanOut(first, second, nil)

	entry := domain.AuditEntry{
		ID:        "entry-1",
		Action:    domain.AuditActionUserLogin,
		CreatedAt: time.Now().UTC(),
	}

	if err := fanout.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if len(first.entries) != 1 || len(second.entries) != 1 {
		t.Fatalf("expected both sinks to receive the entry")
	}
	if first.entries[0].ID != "entry-1" {
		t.Fatalf("unexpected entry delivered: %+v", first.entries[0])
	}
}

func TestFanOutContinuesPastFailingSink(t *testing.T) {
	sinkErr := errors.New("broker unavailable")
	failing := &captureSink{err: sinkErr}
	healthy := &captureSink{}
	fanout := NewFanOut(failing, healthy)

	err := fanout.Record(context.Background(), domain.AuditEntry{Action: domain.AuditActionUserLogout})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error to surface, got %v", err)
	}

	if len(healthy.entries) != 1 {
		t.Fatalf("expected delivery to continue after a failing sink")
	}
}
