package tasks

import (
	"encoding/json"
	"time"

	"homeserve/models"

	"github.com/hibiken/asynq"
)

const TypeNotificationSend = "notification:send"

// NewNotificationTask wraps a notice for the push worker.
func NewNotificationTask(notice models.Notice) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(notice)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeNotificationSend, b)
	opts := []asynq.Option{asynq.MaxRetry(3), asynq.Timeout(30 * time.Second)}
	return task, opts, nil
}

// NewReminderTask schedules a notice for delivery at fireAt. The booking id
// doubles as task id so a reminder is queued at most once.
func NewReminderTask(notice models.Notice, bookingID string, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	task, opts, err := NewNotificationTask(notice)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, asynq.ProcessAt(fireAt), asynq.TaskID("reminder:"+bookingID))
	return task, opts, nil
}

// DecodeNotice reads the notice back out of a task payload.
func DecodeNotice(task *asynq.Task) (models.Notice, error) {
	var n models.Notice
	err := json.Unmarshal(task.Payload(), &n)
	return n, err
}
