package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"homeserve/models"
	"homeserve/services/tasks"

	"firebase.google.com/go/v4/messaging"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type staticTokens map[string][]string

func (s staticTokens) TokensForUser(_ context.Context, userID string) ([]string, error) {
	return s[userID], nil
}

type fakePush struct {
	mu   sync.Mutex
	sent []*messaging.Message
	fail map[string]bool
}

func (f *fakePush) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[m.Token] {
		return "", errors.New("unregistered")
	}
	f.sent = append(f.sent, m)
	return "msg-" + m.Token, nil
}

type captureQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *captureQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestSendPushNotificationNoDevices(t *testing.T) {
	svc, err := NewDefaultNotificationService(staticTokens{}, &fakePush{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	err = svc.SendPushNotification(context.Background(), models.Notice{RecipientID: "u1", Role: models.RecipientCustomer})
	if !errors.Is(err, ErrNoDevices) {
		t.Fatalf("got %v, want ErrNoDevices", err)
	}
}

func TestSendPushNotificationPartialDelivery(t *testing.T) {
	push := &fakePush{fail: map[string]bool{"dead": true}}
	svc, _ := NewDefaultNotificationService(staticTokens{"u1": {"dead", "live"}}, push, zap.NewNop())

	notice := models.Notice{RecipientID: "u1", Role: models.RecipientStaff, Title: "New job", Data: map[string]string{"bookingId": "b1"}}
	if err := svc.SendPushNotification(context.Background(), notice); err != nil {
		t.Fatalf("one device received it, got %v", err)
	}
	if len(push.sent) != 1 || push.sent[0].Token != "live" {
		t.Fatalf("sent = %+v", push.sent)
	}
	if push.sent[0].Data["role"] != "staff" || push.sent[0].Data["bookingId"] != "b1" {
		t.Fatalf("data = %v", push.sent[0].Data)
	}
}

func TestSendPushNotificationAllFail(t *testing.T) {
	push := &fakePush{fail: map[string]bool{"a": true, "b": true}}
	svc, _ := NewDefaultNotificationService(staticTokens{"u1": {"a", "b"}}, push, zap.NewNop())
	err := svc.SendPushNotification(context.Background(), models.Notice{RecipientID: "u1"})
	if err == nil || errors.Is(err, ErrNoDevices) {
		t.Fatalf("got %v, want delivery error", err)
	}
}

func TestNewDefaultNotificationServiceRequiresDeps(t *testing.T) {
	if _, err := NewDefaultNotificationService(nil, &fakePush{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for nil token directory")
	}
}

func TestQueueDispatcherEnqueues(t *testing.T) {
	q := &captureQueue{}
	d := NewQueueDispatcher(q, zap.NewNop())

	d.Notify(context.Background(), models.Notice{RecipientID: "p1", Role: models.RecipientProvider, Title: "Booked"})
	d.Notify(context.Background(), models.Notice{Title: "no recipient"})

	if len(q.tasks) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(q.tasks))
	}
	if q.tasks[0].Type() != tasks.TypeNotificationSend {
		t.Fatalf("task type = %q", q.tasks[0].Type())
	}
	n, err := tasks.DecodeNotice(q.tasks[0])
	if err != nil || n.RecipientID != "p1" || n.Title != "Booked" {
		t.Fatalf("decoded %+v, %v", n, err)
	}
}

func TestQueueDispatcherSwallowsEnqueueErrors(t *testing.T) {
	d := NewQueueDispatcher(&captureQueue{err: errors.New("redis down")}, zap.NewNop())
	d.Notify(context.Background(), models.Notice{RecipientID: "p1"})
}
