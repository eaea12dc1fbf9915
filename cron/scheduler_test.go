package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

func TestRunNowRecordsStatus(t *testing.T) {
	s := NewScheduler(&memLocker{}, zap.NewNop(), time.UTC)
	calls := 0
	if err := s.Add("expiry", "@every 30s", time.Second, func(context.Context) (Counts, error) {
		calls++
		return Counts{"reclaimed": 2}, nil
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.RunNow("expiry"); err != nil {
		t.Fatalf("run: %v", err)
	}
	st := s.Status()
	if len(st) != 1 || st[0].Runs != 1 || st[0].LastCounts["reclaimed"] != 2 || st[0].LastRun == nil {
		t.Fatalf("status %+v", st)
	}
	if calls != 1 {
		t.Fatalf("task ran %d times", calls)
	}
}

func TestRunNowSkipsWhileLockedElsewhere(t *testing.T) {
	locker := &memLocker{}
	s := NewScheduler(locker, zap.NewNop(), time.UTC)
	ran := false
	_ = s.Add("reminder", "@every 5m", time.Second, func(context.Context) (Counts, error) {
		ran = true
		return nil, nil
	})

	release, ok, _ := locker.Acquire(context.Background(), "lock:sweep:reminder", time.Minute)
	if !ok {
		t.Fatal("could not pre-acquire lock")
	}
	if err := s.RunNow("reminder"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ran {
		t.Fatal("task ran while another instance held the lock")
	}
	if st := s.Status(); st[0].Skipped != 1 || st[0].Runs != 0 {
		t.Fatalf("status %+v", st[0])
	}

	release()
	if err := s.RunNow("reminder"); err != nil || !ran {
		t.Fatalf("run after release: ran=%v err=%v", ran, err)
	}
}

func TestTaskErrorsAreRecorded(t *testing.T) {
	s := NewScheduler(nil, zap.NewNop(), time.UTC)
	boom := errors.New("database unavailable")
	_ = s.Add("expiry", "@every 30s", time.Second, func(context.Context) (Counts, error) { return nil, boom })

	if err := s.RunNow("expiry"); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if st := s.Status(); st[0].LastError != boom.Error() {
		t.Fatalf("status %+v", st[0])
	}
}

func TestAddRejectsBadSpecAndDuplicates(t *testing.T) {
	s := NewScheduler(nil, zap.NewNop(), time.UTC)
	noop := func(context.Context) (Counts, error) { return nil, nil }
	if err := s.Add("bad", "every now and then", time.Second, noop); err == nil {
		t.Fatal("bad spec accepted")
	}
	if err := s.Add("ok", "@every 1m", time.Second, noop); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add("ok", "@every 1m", time.Second, noop); err == nil {
		t.Fatal("duplicate accepted")
	}
	if err := s.RunNow("missing"); !errors.Is(err, ErrUnknownTask) {
		t.Fatal("unknown task ran")
	}
	if len(s.Status()) != 1 {
		t.Fatalf("status %+v", s.Status())
	}
}

func TestSpecInterval(t *testing.T) {
	from := time.Date(2024, 4, 30, 10, 2, 0, 0, time.UTC)
	cases := []struct {
		spec string
		want time.Duration
	}{
		{"@every 5m", 5 * time.Minute},
		{"*/10 * * * *", 10 * time.Minute},
		{"0,30 9-17 * * *", 15*time.Hour + 30*time.Minute},
	}
	for _, tc := range cases {
		got, err := SpecInterval(tc.spec, from)
		if err != nil {
			t.Fatalf("%s: %v", tc.spec, err)
		}
		if got != tc.want {
			t.Errorf("%s: interval %v, want %v", tc.spec, got, tc.want)
		}
	}
	if _, err := SpecInterval("every so often", from); err == nil {
		t.Fatal("bad spec accepted")
	}
}
