package booking

import (
	"context"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	"homeserve/models"
	"homeserve/utils"
)

// SlotLedger decides whether one more booking fits a (service, slot, date).
// Admit must run on the transaction that inserts the booking.
type SlotLedger struct{}

// Admit counts confirmed bookings and live holds for key and rejects with
// ErrSlotFull once the service's capacity is reached.
func (SlotLedger) Admit(ctx context.Context, tx bookingRepo.BookingRepository, svc *models.Service, key models.SlotKey, now time.Time) error {
	if svc.Unlimited() {
		return nil
	}
	taken, err := tx.CountSlotOccupancy(ctx, key, now)
	if err != nil {
		return err
	}
	if taken >= int64(svc.TotalBookingAllow) {
		return utils.ErrSlotFull
	}
	return nil
}
