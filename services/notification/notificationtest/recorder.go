// Package notificationtest records dispatched notices for assertions.
package notificationtest

import (
	"context"
	"sync"
	"time"

	"homeserve/models"
)

// Recorder implements notification.Dispatcher.
type Recorder struct {
	mu      sync.Mutex
	notices []models.Notice
	changed chan struct{}
}

func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{}, 1)}
}

func (r *Recorder) Notify(_ context.Context, n models.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Wait blocks until at least n notices arrived or the timeout passes, and
// returns what was recorded.
func (r *Recorder) Wait(n int, timeout time.Duration) []models.Notice {
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		if len(r.notices) >= n {
			out := append([]models.Notice(nil), r.notices...)
			r.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		select {
		case <-r.changed:
		case <-deadline:
			r.mu.Lock()
			defer r.mu.Unlock()
			return append([]models.Notice(nil), r.notices...)
		}
	}
}
