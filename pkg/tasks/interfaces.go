package tasks

import "github.com/hibiken/asynq"

// TaskEnqueuer is implemented by asynq.Client and faked in tests.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
