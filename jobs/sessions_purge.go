package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/valhalla/console/internal/jobs"
)

// SessionPurger deletes audit rows of sessions that ended or expired before
// the cutoff.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionsPurgeHandler processes TaskSessionsPurge tasks.
type SessionsPurgeHandler struct {
	purger  SessionPurger
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewSessionsPurgeHandler constructs the handler. metrics may be nil.
func NewSessionsPurgeHandler(purger SessionPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionsPurgeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionsPurgeHandler{purger: purger, logger: logger, metrics: metrics, now: time.Now}
}

// Handle implements asynq.HandlerFunc.
func (h *SessionsPurgeHandler) Handle(ctx context.Context, t *asynq.Task) (err error) {
	tracker := h.metrics.Track(TaskSessionsPurge)
	defer func() { err = tracker.End(err) }()

	var payload SessionsPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode purge payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.RetentionSeconds <= 0 {
		return fmt.Errorf("purge retention must be positive: %w", asynq.SkipRetry)
	}
	cutoff := h.now().Add(-payload.Retention())
	rows, err := h.purger.PurgeExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	h.metrics.AddPurged(rows)
	h.logger.Info("purged console sessions", slog.Int64("rows", rows), slog.Time("cutoff", cutoff))
	return nil
}
