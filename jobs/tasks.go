package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurge removes expired console session audit rows.
	TaskSessionsPurge = "sessions:purge"
)

// SessionsPurgePayload carries the retention window of a purge run.
type SessionsPurgePayload struct {
	RetentionSeconds int64 `json:"retention_seconds"`
}

// Retention returns the payload window as a duration.
func (p SessionsPurgePayload) Retention() time.Duration {
	return time.Duration(p.RetentionSeconds) * time.Second
}

// NewSessionsPurgeTask constructs the purge task for the given retention.
func NewSessionsPurgeTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(SessionsPurgePayload{RetentionSeconds: int64(retention / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPurge, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
