package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	"homeserve/models"
	"homeserve/services/notification"
	"homeserve/services/tasks"
	"homeserve/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ReminderSweep queues one "starting soon" push per confirmed booking.
type ReminderSweep struct {
	Repo     bookingRepo.BookingRepository
	Queue    notification.Enqueuer
	Logger   *zap.Logger
	Location *time.Location
	// Lead is how long before the slot the reminder fires.
	Lead time.Duration
	// Lookahead is how far past Lead to look; main derives it from the
	// sweep spec so no booking falls between two runs.
	Lookahead time.Duration
	Now       func() time.Time
}

func (r *ReminderSweep) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Sweep returns how many reminders were queued.
func (r *ReminderSweep) Sweep(ctx context.Context) (int, error) {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	now := r.now().In(loc)
	horizon := now.Add(r.Lead + r.Lookahead)

	dates := []string{now.Format(utils.DateLayout)}
	if d := horizon.Format(utils.DateLayout); d != dates[0] {
		dates = append(dates, d)
	}
	candidates, err := r.Repo.ListReminderCandidates(ctx, dates)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, b := range candidates {
		start, err := utils.ParseSlotStart(b.Date, b.SlotTime, loc)
		if err != nil {
			r.Logger.Warn("reminder: unreadable slot", zap.String("bookingId", b.ID), zap.Error(err))
			continue
		}
		if !start.After(now) || start.After(horizon) {
			continue
		}
		fireAt := start.Add(-r.Lead)
		if fireAt.Before(now) {
			fireAt = now
		}
		task, opts, err := tasks.NewReminderTask(models.Notice{
			RecipientID: b.CustomerID,
			Role:        models.RecipientCustomer,
			Title:       "Upcoming booking",
			Body:        fmt.Sprintf("Your booking starts at %s on %s.", b.SlotTime, start.Format("Mon 2 Jan")),
			Data:        map[string]string{"bookingId": b.ID, "type": "reminder"},
		}, b.ID, fireAt)
		if err != nil {
			return sent, err
		}

		// The marker is only set once the task is queued; the task id keeps a
		// retried enqueue from producing a second reminder.
		_, err = r.Queue.EnqueueContext(ctx, task, opts...)
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			r.Logger.Warn("reminder: enqueue failed, will retry next sweep", zap.String("bookingId", b.ID), zap.Error(err))
			continue
		}
		won, err := r.Repo.MarkReminderSent(ctx, b.ID)
		if err != nil {
			return sent, err
		}
		if !won {
			continue
		}
		sent++
	}
	if sent > 0 {
		r.Logger.Info("reminders queued", zap.Int("count", sent))
	}
	return sent, nil
}

// Task adapts Sweep for the scheduler.
func (r *ReminderSweep) Task() TaskFunc {
	return func(ctx context.Context) (Counts, error) {
		n, err := r.Sweep(ctx)
		return Counts{"sent": int64(n)}, err
	}
}
