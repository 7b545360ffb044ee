package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskDashboardRefresh invalidates and rebuilds the dashboard aggregates so
// the first morning page load hits a warm cache.
const TaskDashboardRefresh = "dashboard:refresh"

// DashboardRefreshPayload carries scheduling metadata.
type DashboardRefreshPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// DashboardRefresher is implemented by the dashboard service.
type DashboardRefresher interface {
	Invalidate(ctx context.Context) error
	Warm(ctx context.Context) error
}

// NewDashboardRefreshTask constructs an Asynq task for the cache refresh.
func NewDashboardRefreshTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(DashboardRefreshPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardRefresh, body, asynq.Queue(QueueDefault)), nil
}

// NewDashboardRefreshHandler binds the dashboard service into an Asynq handler.
func NewDashboardRefreshHandler(logger *slog.Logger, refresher DashboardRefresher) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DashboardRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := refresher.Invalidate(ctx); err != nil {
			return err
		}
		if err := refresher.Warm(ctx); err != nil {
			return err
		}
		logger.Info("dashboard cache refreshed")
		return nil
	}
}
