package cancellation

import (
	"context"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/notification"
	"homeserve/services/payment"

	"go.uber.org/zap"
)

// Engine cancels bookings and tracks the resulting refunds.
type Engine interface {
	// Quote computes the fee breakdown without changing anything.
	Quote(ctx context.Context, bookingID, requesterID string) (*models.CancellationQuote, error)
	// Cancel is idempotent per booking.
	Cancel(ctx context.Context, req models.CancelRequest) (*models.CancelResult, error)
	// ReconcileRefund applies a later gateway status to the refund it belongs to.
	ReconcileRefund(ctx context.Context, refundRef, gatewayStatus string) (*models.Cancellation, error)
}

// DefaultEngine implements Engine.
type DefaultEngine struct {
	Repo         bookingRepo.BookingRepository
	Gateway      payment.Gateway
	Events       recordsRepo.EventLogRepository
	Notification notification.Dispatcher
	Logger       *zap.Logger
	Location     *time.Location

	Now func() time.Time
}
