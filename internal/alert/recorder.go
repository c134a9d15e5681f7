package alert

import (
	"context"
	"fmt"

	"github.com/anshukrra07/CampusCare-sub001/internal/metrics"
	"github.com/anshukrra07/CampusCare-sub001/internal/observability"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

// Recorder persists an alert and then notifies. Both steps are attempted
// once; failures are logged and counted, never retried.
type Recorder struct {
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
}

// NewRecorder accepts a nil store or notifier to skip that step.
func NewRecorder(store Store, notifier Notifier, m *metrics.Metrics) *Recorder {
	return &Recorder{store: store, notifier: notifier, metrics: m}
}

// Record returns the first failure for callers that want it; the pipeline
// runs it in the background and ignores the result.
func (r *Recorder) Record(ctx context.Context, a *types.Alert) error {
	logger := observability.LoggerFromContext(ctx).With("alert_id", string(a.ID))
	var firstErr error

	if r.store != nil {
		if err := r.store.Append(ctx, a); err != nil {
			logger.Error("alert persistence failed", "error", err)
			r.metrics.RecordBackgroundFailure("alert_store")
			firstErr = fmt.Errorf("append alert: %w", err)
		} else {
			logger.Info("alert persisted")
		}
	}

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, a); err != nil {
			logger.Error("alert notification failed", "error", err)
			r.metrics.RecordBackgroundFailure("notify")
			if firstErr == nil {
				firstErr = fmt.Errorf("notify alert: %w", err)
			}
		}
	}
	return firstErr
}
