package booking

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

// MaxItemsPerReservation bounds one checkout.
const MaxItemsPerReservation = 20

// ReservationManager places time-boxed holds and opens checkout for them.
type ReservationManager interface {
	// Reserve resolves the customer's cart items and reserves them.
	Reserve(ctx context.Context, req models.ReserveRequest) (*models.Reservation, error)
	// ReserveItems holds every item or none of them.
	ReserveItems(ctx context.Context, customerID, addressID string, items []models.ReservationItem) (*models.Reservation, error)
}

// Options are the reservation rules.
type Options struct {
	HoldDuration time.Duration
	MinAmount    int64
	Currency     string
	Location     *time.Location
}

// DefaultReservationManager implements ReservationManager.
type DefaultReservationManager struct {
	Repo         bookingRepo.BookingRepository
	Ledger       SlotLedger
	Cart         cart.Store
	Gateway      payment.Gateway
	Events       recordsRepo.EventLogRepository
	Notification notification.Dispatcher
	Logger       *zap.Logger
	Options      Options

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}
