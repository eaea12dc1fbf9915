package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrUnknownTask is returned by RunNow for a name that was never added.
var ErrUnknownTask = errors.New("unknown task")

// Counts is what one task run reports, e.g. {"reclaimed": 3}.
type Counts map[string]int64

// TaskFunc is one idempotent sweep.
type TaskFunc func(ctx context.Context) (Counts, error)

// TaskStatus is the last known outcome of a scheduled task.
type TaskStatus struct {
	Name         string        `json:"name"`
	Spec         string        `json:"spec"`
	Runs         int64         `json:"runs"`
	Skipped      int64         `json:"skipped"`
	LastRun      *time.Time    `json:"lastRun,omitempty"`
	LastDuration time.Duration `json:"lastDurationNs"`
	LastError    string        `json:"lastError,omitempty"`
	LastCounts   Counts        `json:"lastCounts,omitempty"`
}

type task struct {
	name    string
	timeout time.Duration
	fn      TaskFunc
}

// Scheduler owns the periodic background sweeps.
type Scheduler struct {
	cron   *robfig.Cron
	locker Locker
	logger *zap.Logger

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tasks  map[string]task
	status map[string]*TaskStatus
}

// NewScheduler builds a stopped scheduler. locker may be nil for a single instance.
func NewScheduler(locker Locker, logger *zap.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{logger.Sugar()}
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: robfig.New(
			robfig.WithLocation(loc),
			robfig.WithLogger(cl),
			robfig.WithChain(robfig.Recover(cl), robfig.SkipIfStillRunning(cl)),
		),
		locker: locker,
		logger: logger,
		base:   base,
		cancel: cancel,
		tasks:  map[string]task{},
		status: map[string]*TaskStatus{},
	}
}

// Add registers fn under name on a cron spec such as "@every 30s". timeout
// bounds one run and is also the lock TTL.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, fn TaskFunc) error {
	s.mu.Lock()
	if _, dup := s.tasks[name]; dup {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: task %q already registered", name)
	}
	s.tasks[name] = task{name: name, timeout: timeout, fn: fn}
	s.status[name] = &TaskStatus{Name: name, Spec: spec}
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunNow(name) }); err != nil {
		s.mu.Lock()
		delete(s.tasks, name)
		delete(s.status, name)
		s.mu.Unlock()
		return fmt.Errorf("scheduler: bad spec for %s: %w", name, err)
	}
	return nil
}

// SpecInterval returns the longest gap between consecutive runs of spec
// over its next activations from from, in from's location.
func SpecInterval(spec string, from time.Time) (time.Duration, error) {
	sched, err := robfig.ParseStandard(spec)
	if err != nil {
		return 0, fmt.Errorf("scheduler: bad spec %q: %w", spec, err)
	}
	var longest time.Duration
	prev := sched.Next(from)
	for i := 0; i < 64 && !prev.IsZero(); i++ {
		next := sched.Next(prev)
		if next.IsZero() {
			break
		}
		if gap := next.Sub(prev); gap > longest {
			longest = gap
		}
		prev = next
	}
	if longest <= 0 {
		return 0, fmt.Errorf("scheduler: spec %q never repeats", spec)
	}
	return longest, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("tasks", len(s.tasks)))
}

// Stop prevents new runs, cancels running ones and waits for them or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler: gave up waiting for running tasks")
	}
}

// RunNow runs the named task once, subject to the same lock as scheduled runs.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: %w %q", ErrUnknownTask, name)
	}

	ctx, cancel := context.WithTimeout(s.base, t.timeout)
	defer cancel()

	if s.locker != nil {
		release, acquired, err := s.locker.Acquire(ctx, "lock:sweep:"+name, t.timeout)
		if err != nil {
			s.logger.Warn("scheduler: lock unavailable, will retry next tick", zap.String("task", name), zap.Error(err))
			s.skip(name)
			return err
		}
		if !acquired {
			s.logger.Debug("scheduler: task running elsewhere", zap.String("task", name))
			s.skip(name)
			return nil
		}
		defer release()
	}

	started := time.Now()
	counts, err := t.fn(ctx)
	elapsed := time.Since(started)

	s.mu.Lock()
	st := s.status[name]
	st.Runs++
	st.LastRun = &started
	st.LastDuration = elapsed
	st.LastCounts = counts
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled task failed", zap.String("task", name), zap.Duration("took", elapsed), zap.Error(err))
		return err
	}
	s.logger.Debug("scheduled task done", zap.String("task", name), zap.Duration("took", elapsed), zap.Any("counts", counts))
	return nil
}

func (s *Scheduler) skip(name string) {
	s.mu.Lock()
	s.status[name].Skipped++
	s.mu.Unlock()
}

// Status returns a copy of every task's last outcome, ordered by name.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStatus, 0, len(s.status))
	for _, st := range s.status {
		cp := *st
		if st.LastCounts != nil {
			cp.LastCounts = make(Counts, len(st.LastCounts))
			for k, v := range st.LastCounts {
				cp.LastCounts[k] = v
			}
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// cronLogger adapts zap to robfig's logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
