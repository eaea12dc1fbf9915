package settlement

import (
	"context"
	"errors"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/notification"

	"go.uber.org/zap"
)

// MarkFailed records a failed payment attempt. Bookings stay held until the
// reaper reclaims them, so the payer may retry within the hold.
func (c *DefaultCoordinator) MarkFailed(ctx context.Context, ev models.GatewayEvent) (*Result, error) {
	if ev.PaymentID == "" {
		return &Result{Ignored: true}, nil
	}

	var (
		rec     *models.PaymentRecord
		ignored bool
		dup     bool
	)
	err := c.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		ignored, dup = false, false
		var err error
		rec, err = tx.LockPayment(ctx, ev.PaymentID)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			ignored = true
			return nil
		}
		if err != nil {
			return err
		}
		switch rec.Status {
		case models.PaymentRecordFailed:
			dup = true
			return nil
		case models.PaymentRecordPaid:
			// a failed attempt reported after a later attempt succeeded
			ignored = true
			return nil
		}
		rec.Status = models.PaymentRecordFailed
		if ev.PaymentIntentID != "" {
			pi := ev.PaymentIntentID
			rec.GatewayPaymentIntentID = &pi
		}
		return tx.SavePayment(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	if ignored {
		return &Result{PaymentID: ev.PaymentID, Ignored: true}, nil
	}
	if dup {
		return &Result{PaymentID: ev.PaymentID, BookingIDs: rec.BookingIDs, Duplicate: true}, nil
	}

	recordsRepo.Record(ctx, c.Events, c.Logger, rec.CustomerID, rec.BookingIDs, models.PaymentFailed{
		PaymentID:       rec.ID,
		PaymentIntentID: ev.PaymentIntentID,
	})
	notification.NotifyAll(ctx, c.Notification, models.Notice{
		RecipientID: rec.CustomerID,
		Role:        models.RecipientCustomer,
		Title:       "Payment failed",
		Body:        "Your payment did not go through. You can retry before your hold expires.",
		Data:        map[string]string{"paymentId": rec.ID},
	})
	c.Logger.Info("payment failed", zap.String("paymentId", rec.ID))
	return &Result{PaymentID: rec.ID, BookingIDs: rec.BookingIDs}, nil
}
