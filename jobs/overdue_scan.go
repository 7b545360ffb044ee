package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskOverdueScan flips issued invoices past their due date to overdue.
// Registered on a nightly cron; billing derivation stays the single source
// of truth, the job only picks the candidates.
const TaskOverdueScan = "billing:overdue_scan"

// OverdueScanPayload carries scheduling metadata.
type OverdueScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// OverdueMarker is implemented by the billing service.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// NewOverdueScanTask constructs an Asynq task for the overdue scan.
func NewOverdueScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(OverdueScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, body, asynq.Queue(QueueDefault)), nil
}

// NewOverdueScanHandler binds the billing service into an Asynq handler.
func NewOverdueScanHandler(logger *slog.Logger, marker OverdueMarker) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload OverdueScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		asOf := payload.ScheduledFor
		if asOf.IsZero() {
			asOf = time.Now()
		}
		changed, err := marker.MarkOverdue(ctx, asOf)
		if err != nil {
			return err
		}
		logger.Info("overdue scan finished",
			slog.Time("as_of", asOf),
			slog.Int("invoices_flipped", changed))
		return nil
	}
}
