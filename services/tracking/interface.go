package tracking

import (
	"context"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/notification"

	"go.uber.org/zap"
)

// Tracker assigns staff to bookings and moves field progress forward.
type Tracker interface {
	Assign(ctx context.Context, req models.AssignRequest) (*models.StaffAssignment, error)
	Respond(ctx context.Context, staffID, bookingID string, accept bool) (*models.StaffAssignment, error)
	UpdateTrackingStatus(ctx context.Context, upd models.TrackingUpdate) (*models.Booking, error)
}

// DefaultTracker implements Tracker.
type DefaultTracker struct {
	Repo         bookingRepo.BookingRepository
	Events       recordsRepo.EventLogRepository
	Notification notification.Dispatcher
	Logger       *zap.Logger
	Location     *time.Location
	// EarlyStartWindow is how long before the slot a visit may start without a reason.
	EarlyStartWindow time.Duration

	Now func() time.Time
}

func (t *DefaultTracker) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}
