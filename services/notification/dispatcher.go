package notification

import (
	"context"

	"homeserve/models"
	"homeserve/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer is the part of *asynq.Client used here.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher hands notices to the asynq notification queue.
type QueueDispatcher struct {
	queue  Enqueuer
	logger *zap.Logger
}

func NewQueueDispatcher(queue Enqueuer, logger *zap.Logger) *QueueDispatcher {
	return &QueueDispatcher{queue: queue, logger: logger}
}

// Notify enqueues the notice; failures are logged and dropped.
func (d *QueueDispatcher) Notify(ctx context.Context, notice models.Notice) {
	if notice.RecipientID == "" {
		return
	}
	task, opts, err := tasks.NewNotificationTask(notice)
	if err != nil {
		d.logger.Warn("notification: could not build task", zap.Error(err))
		return
	}
	if _, err := d.queue.EnqueueContext(ctx, task, opts...); err != nil {
		d.logger.Warn("notification: enqueue failed",
			zap.String("recipient", notice.RecipientID),
			zap.String("title", notice.Title),
			zap.Error(err))
	}
}

// NotifyAll dispatches each notice independently in the background, detached
// from the caller's cancellation.
func NotifyAll(ctx context.Context, d Dispatcher, notices ...models.Notice) {
	if d == nil || len(notices) == 0 {
		return
	}
	bg := context.WithoutCancel(ctx)
	for _, n := range notices {
		go d.Notify(bg, n)
	}
}
