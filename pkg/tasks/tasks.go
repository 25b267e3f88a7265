package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TypeSyncCategory = "category:sync"

// SyncCategoryTaskPayload overrides the worker's configuration for one run.
// Zero values keep the configured setting.
type SyncCategoryTaskPayload struct {
	Category string `json:"category,omitempty"`
	Cap      int    `json:"cap,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

func NewSyncCategoryTask(p SyncCategoryTaskPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSyncCategory, payload), nil
}

// ParseSyncCategoryPayload decodes a task payload. An empty payload is valid.
func ParseSyncCategoryPayload(t *asynq.Task) (SyncCategoryTaskPayload, error) {
	var p SyncCategoryTaskPayload
	if len(t.Payload()) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal %s payload: %w", TypeSyncCategory, err)
	}
	return p, nil
}

// EnqueueSyncCategory builds and enqueues a one-off sync task.
func EnqueueSyncCategory(e TaskEnqueuer, p SyncCategoryTaskPayload, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	task, err := NewSyncCategoryTask(p)
	if err != nil {
		return nil, err
	}
	info, err := e.Enqueue(task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", TypeSyncCategory, err)
	}
	return info, nil
}
