package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"homeserve/models"
	"homeserve/services/notification"
	"homeserve/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type stubPush struct {
	err error
	got []models.Notice
}

func (s *stubPush) SendPushNotification(_ context.Context, n models.Notice) error {
	s.got = append(s.got, n)
	return s.err
}

func TestNotificationTaskHandler(t *testing.T) {
	notice := models.Notice{RecipientID: "c1", Role: models.RecipientCustomer, Title: "Reminder"}
	task, _, err := tasks.NewNotificationTask(notice)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name      string
		sendErr   error
		wantErr   bool
		wantRetry bool
	}{
		{"delivered", nil, false, false},
		{"no devices", fmt.Errorf("wrapped: %w", notification.ErrNoDevices), false, false},
		{"fcm failure", errors.New("fcm unavailable"), true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			push := &stubPush{err: tc.sendErr}
			err := handleNotificationTask(push, zap.NewNop())(context.Background(), task)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantRetry && errors.Is(err, asynq.SkipRetry) {
				t.Fatalf("transient failure must be retried")
			}
			if len(push.got) != 1 || push.got[0].RecipientID != "c1" {
				t.Fatalf("pushed %+v", push.got)
			}
		})
	}
}

func TestNotificationTaskHandlerBadPayload(t *testing.T) {
	push := &stubPush{}
	err := handleNotificationTask(push, zap.NewNop())(context.Background(), asynq.NewTask(tasks.TypeNotificationSend, []byte("{not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("got %v, want SkipRetry", err)
	}
	if len(push.got) != 0 {
		t.Fatal("nothing should be pushed")
	}
}
