package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubMarker struct {
	asOf    time.Time
	changed int
	err     error
}

func (m *stubMarker) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	m.asOf = asOf
	return m.changed, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOverdueScanHandlerPassesScheduledTime(t *testing.T) {
	scheduled := time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC)
	task, err := NewOverdueScanTask(scheduled)
	require.NoError(t, err)
	require.Equal(t, TaskOverdueScan, task.Type())

	marker := &stubMarker{changed: 3}
	handler := NewOverdueScanHandler(discardLogger(), marker)

	require.NoError(t, handler(context.Background(), task))
	require.True(t, marker.asOf.Equal(scheduled))
}

func TestOverdueScanHandlerPropagatesMarkerError(t *testing.T) {
	task, err := NewOverdueScanTask(time.Now())
	require.NoError(t, err)

	boom := errors.New("db down")
	handler := NewOverdueScanHandler(discardLogger(), &stubMarker{err: boom})

	require.ErrorIs(t, handler(context.Background(), task), boom)
}

func TestOverdueScanHandlerSkipsRetryOnBadPayload(t *testing.T) {
	marker := &stubMarker{}
	handler := NewOverdueScanHandler(discardLogger(), marker)

	bad := asynq.NewTask(TaskOverdueScan, []byte("{not json"))
	err := handler(context.Background(), bad)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.True(t, marker.asOf.IsZero())
}
