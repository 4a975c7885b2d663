package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueReports carries statement regeneration work.
	QueueReports = "reports"

	// TaskReportsRegenerate rebuilds and persists statement runs.
	TaskReportsRegenerate = "reports:regenerate"
	// TaskReportsInvalidate drops cached statements after ledger changes.
	TaskReportsInvalidate = "reports:invalidate"
)

// RegeneratePayload scopes a regeneration. Empty fields fall back to the job
// defaults: configured companies, every report kind, the year to date.
type RegeneratePayload struct {
	CompanyIDs []int64  `json:"company_ids,omitempty"`
	Kinds      []string `json:"kinds,omitempty"`
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
}

// NewRegenerateTask constructs a regeneration task. Identical payloads are
// deduplicated while one is still queued.
func NewRegenerateTask(payload RegeneratePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsRegenerate, body,
		asynq.Queue(QueueReports),
		asynq.MaxRetry(3),
		asynq.Unique(10*time.Minute),
	), nil
}

// NewInvalidateTask constructs a cache invalidation task.
func NewInvalidateTask() *asynq.Task {
	return asynq.NewTask(TaskReportsInvalidate, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
}
