package settlement

import (
	"context"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/cart"
	"homeserve/services/notification"
	"homeserve/services/payment"

	"go.uber.org/zap"
)

// Coordinator applies asynchronously delivered payment outcomes.
// Every method is safe to call again with the same event.
type Coordinator interface {
	Settle(ctx context.Context, ev models.GatewayEvent) (*Result, error)
	MarkFailed(ctx context.Context, ev models.GatewayEvent) (*Result, error)
}

// Result describes what an event did.
type Result struct {
	PaymentID  string   `json:"paymentId"`
	BookingIDs []string `json:"bookingIds,omitempty"`
	Duplicate  bool     `json:"duplicate"`
	Ignored    bool     `json:"ignored"`
}

// DefaultCoordinator implements Coordinator.
type DefaultCoordinator struct {
	Repo         bookingRepo.BookingRepository
	Commission   payment.CommissionSource
	Cart         cart.Store
	Events       recordsRepo.EventLogRepository
	Notification notification.Dispatcher
	Logger       *zap.Logger

	Now func() time.Time
}
