package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homeserve/services/notification"
	"homeserve/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker consumes the notification queue and pushes each notice through FCM.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	ping   *redis.Client
	logger *zap.Logger
	stop   context.CancelFunc
}

// NewWorker builds the asynq server on the queue database.
func NewWorker(opts asynq.RedisClientOpt, notifSvc notification.NotificationService, logger *zap.Logger) *Worker {
	srv := asynq.NewServer(
		opts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeNotificationSend, handleNotificationTask(notifSvc, logger))

	return &Worker{
		srv:    srv,
		mux:    mux,
		ping:   redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}),
		logger: logger,
	}
}

// Start launches the worker in the background, retrying startup with backoff.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.stop = cancel

	go w.monitorRedisConnection(ctx)

	go func() {
		w.logger.Info("notification worker starting")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("notification worker failed to start",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Error("notification worker giving up; pushes stay queued")
				return
			}
			select {
			case <-time.After(time.Duration(attempts*2) * time.Second):
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown waits for in-flight pushes and stops the worker.
func (w *Worker) Shutdown() {
	if w.stop != nil {
		w.stop()
	}
	w.srv.Shutdown()
	_ = w.ping.Close()
}

func handleNotificationTask(notifSvc notification.NotificationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		notice, err := tasks.DecodeNotice(task)
		if err != nil {
			logger.Warn("notification task: invalid payload", zap.Error(err))
			return fmt.Errorf("decode notice: %v: %w", err, asynq.SkipRetry)
		}

		err = notifSvc.SendPushNotification(ctx, notice)
		switch {
		case errors.Is(err, notification.ErrNoDevices):
			logger.Debug("notification task: recipient has no devices",
				zap.String("recipient", notice.RecipientID), zap.String("role", string(notice.Role)))
			return nil
		case err != nil:
			logger.Warn("notification task: push failed",
				zap.String("recipient", notice.RecipientID), zap.String("title", notice.Title), zap.Error(err))
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings the queue database to surface outages in logs.
func (w *Worker) monitorRedisConnection(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ping.Ping(ctx).Err(); err != nil && ctx.Err() == nil {
				w.logger.Warn("notification worker: Redis connection lost", zap.Error(err))
			}
		}
	}
}
