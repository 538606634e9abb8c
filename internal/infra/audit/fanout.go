package audit

import (
	"context"
	"errors"

	"github.com/arklim/admin-panel-api/internal/core/domain"
	"github.com/arklim/admin-panel-api/internal/core/port"
)

// FanOut delivers each entry to every configured sink. A failed sink does
// not stop delivery to the others; the combined error is returned so the
// caller can log it.
type FanOut struct {
	sinks []port.AuditRecorder
}

// NewFanOut builds a composite recorder over the provided sinks.
func NewFanOut(sinks ...port.AuditRecorder) *FanOut {
	return &FanOut{sinks: sinks}
}

// Record forwards the entry to all sinks and joins their errors.
func (f *FanOut) Record(ctx context.Context, entry domain.AuditEntry) error {
	var errs []error
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ port.AuditRecorder = (*FanOut)(nil)
