package recordsRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"homeserve/models"

	"github.com/google/uuid"
)

// MemoryEventLog is an in-process EventLogRepository used by tests.
type MemoryEventLog struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{}
}

func (m *MemoryEventLog) Append(_ context.Context, event models.BookingEvent) (string, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if _, err := event.Payload(); err != nil {
		return "", fmt.Errorf("append event: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return event.ID, nil
}

func (m *MemoryEventLog) GetByID(_ context.Context, id string) (*models.BookingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			cp := e
			return &cp, nil
		}
	}
	return nil, ErrEventNotFound
}

func (m *MemoryEventLog) ListByBooking(_ context.Context, bookingID string) ([]models.BookingEvent, error) {
	return m.filter(func(e models.BookingEvent) bool {
		for _, id := range e.BookingIDs {
			if id == bookingID {
				return true
			}
		}
		return false
	}, 0, false), nil
}

func (m *MemoryEventLog) ListByKind(_ context.Context, kind models.EventKind, limit int64) ([]models.BookingEvent, error) {
	return m.filter(func(e models.BookingEvent) bool { return e.Kind == kind }, limit, true), nil
}

func (m *MemoryEventLog) filter(match func(models.BookingEvent) bool, limit int64, newestFirst bool) []models.BookingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BookingEvent
	for _, e := range m.events {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

// Kinds returns the kinds of every appended event in order.
func (m *MemoryEventLog) Kinds() []models.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]models.EventKind, len(m.events))
	for i, e := range m.events {
		kinds[i] = e.Kind
	}
	return kinds
}
