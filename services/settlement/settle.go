package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/notification"
	"homeserve/services/payment"
	"homeserve/utils"

	"go.uber.org/zap"
)

func (c *DefaultCoordinator) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// Settle confirms the bookings paid for by ev. A payment already applied is
// reported as a duplicate; a hold that lapsed first is rejected with
// ErrHoldExpired and left for the reaper.
func (c *DefaultCoordinator) Settle(ctx context.Context, ev models.GatewayEvent) (*Result, error) {
	if ev.PaymentID == "" {
		return nil, utils.ErrInvalidInput.With("settlement event carries no payment reference", nil)
	}

	rec, err := c.Repo.GetPayment(ctx, ev.PaymentID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, c.reject(ctx, ev, nil, utils.ErrHoldExpired)
	}
	if err != nil {
		return nil, err
	}
	if rec.Status == models.PaymentRecordPaid {
		return c.duplicate(ev, rec.BookingIDs), nil
	}

	// Read before the transaction; the gateway may be consulted.
	rate, err := c.Commission.Rate(ctx, rec.BusinessID)
	if err != nil {
		return nil, err
	}

	now := c.now()
	var (
		confirmed []models.Booking
		dup       bool
		fees      int64
	)
	err = c.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		confirmed, dup, fees = nil, false, 0

		locked, err := tx.LockPayment(ctx, ev.PaymentID)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return utils.ErrHoldExpired
		}
		if err != nil {
			return err
		}
		if locked.Status == models.PaymentRecordPaid {
			dup = true
			return nil
		}

		bookings := make([]*models.Booking, 0, len(locked.BookingIDs))
		for _, id := range locked.BookingIDs {
			b, err := tx.LockBooking(ctx, id)
			if errors.Is(err, bookingRepo.ErrNotFound) {
				return utils.ErrHoldExpired.With("", fmt.Errorf("booking %s was reclaimed", id))
			}
			if err != nil {
				return err
			}
			if b.Settled() {
				dup = true
				return nil
			}
			bookings = append(bookings, b)
		}

		for _, b := range bookings {
			if b.BookingStatus != models.BookingPendingPayment {
				return utils.ErrInvalidState.With("", fmt.Errorf("booking %s is %s", b.ID, b.BookingStatus))
			}
			if !b.HoldActive(now) {
				return utils.ErrHoldExpired.With("", fmt.Errorf("booking %s hold expired", b.ID))
			}
		}
		if !locked.Status.CanTransitionTo(models.PaymentRecordPaid) {
			return utils.ErrInvalidState.With("", fmt.Errorf("payment %s is %s", locked.ID, locked.Status))
		}

		for _, b := range bookings {
			fee := payment.PlatformFee(b.TotalAmount, rate)
			b.PlatformFee = fee
			b.ProviderEarnings = b.TotalAmount - fee
			b.BookingStatus = models.BookingConfirmed
			b.PaymentStatus = models.PaymentPaid
			b.HoldExpiresAt = nil
			b.CheckoutURL = nil
			if err := tx.SaveBooking(ctx, b); err != nil {
				return err
			}
			fees += fee
			confirmed = append(confirmed, *b)
		}

		locked.Status = models.PaymentRecordPaid
		if ev.PaymentIntentID != "" {
			pi := ev.PaymentIntentID
			locked.GatewayPaymentIntentID = &pi
		}
		if ev.SessionID != "" && locked.GatewaySessionID == nil {
			sid := ev.SessionID
			locked.GatewaySessionID = &sid
		}
		if err := tx.SavePayment(ctx, locked); err != nil {
			return err
		}

		_, err = tx.PurgePendingPayments(ctx, locked.CustomerID, locked.ID, now)
		return err
	})
	if err != nil {
		if ae, ok := utils.AsAppError(err); ok && ae.Kind == utils.KindStateConflict {
			return nil, c.reject(ctx, ev, rec, err)
		}
		return nil, err
	}
	if dup {
		return c.duplicate(ev, rec.BookingIDs), nil
	}

	c.afterSettle(ctx, ev, rec, confirmed, fees, rate)
	return &Result{PaymentID: rec.ID, BookingIDs: rec.BookingIDs}, nil
}

func (c *DefaultCoordinator) duplicate(ev models.GatewayEvent, bookingIDs []string) *Result {
	c.Logger.Info("settlement already applied",
		zap.String("paymentId", ev.PaymentID), zap.String("eventId", ev.ID))
	return &Result{PaymentID: ev.PaymentID, BookingIDs: bookingIDs, Duplicate: true}
}

// reject records a settlement that arrived for holds no longer payable.
func (c *DefaultCoordinator) reject(ctx context.Context, ev models.GatewayEvent, rec *models.PaymentRecord, cause error) error {
	code := utils.CodeInvalidState
	if ae, ok := utils.AsAppError(cause); ok {
		code = ae.Code
	}
	bookingIDs := ev.BookingIDs
	customerID := ""
	if rec != nil {
		bookingIDs = rec.BookingIDs
		customerID = rec.CustomerID
	}

	c.Logger.Warn("settlement rejected; payment needs an out-of-band refund",
		zap.String("paymentId", ev.PaymentID),
		zap.String("paymentIntentId", ev.PaymentIntentID),
		zap.String("code", code),
		zap.Error(cause))

	recordsRepo.Record(ctx, c.Events, c.Logger, customerID, bookingIDs, models.SettlementRejected{
		PaymentID:       ev.PaymentID,
		PaymentIntentID: ev.PaymentIntentID,
		Code:            code,
		Reason:          cause.Error(),
	})
	if customerID != "" {
		notification.NotifyAll(ctx, c.Notification, models.Notice{
			RecipientID: customerID,
			Role:        models.RecipientCustomer,
			Title:       "Payment not applied",
			Body:        utils.ErrHoldExpired.Message,
			Data:        map[string]string{"paymentId": ev.PaymentID},
		})
	}
	return cause
}

func (c *DefaultCoordinator) afterSettle(ctx context.Context, ev models.GatewayEvent, rec *models.PaymentRecord, confirmed []models.Booking, fees int64, rate float64) {
	c.clearCart(ctx, rec.CustomerID, confirmed)

	recordsRepo.Record(ctx, c.Events, c.Logger, rec.CustomerID, rec.BookingIDs, models.PaymentSettled{
		PaymentID:       rec.ID,
		PaymentIntentID: ev.PaymentIntentID,
		Amount:          rec.Amount,
		PlatformFee:     fees,
		CommissionRate:  rate,
	})

	notices := []models.Notice{{
		RecipientID: rec.CustomerID,
		Role:        models.RecipientCustomer,
		Title:       "Booking confirmed",
		Body:        fmt.Sprintf("Your payment of %d %s was received and %d booking(s) are confirmed.", rec.Amount, rec.Currency, len(confirmed)),
		Data:        map[string]string{"paymentId": rec.ID},
	}}
	if business, err := c.Repo.GetBusiness(ctx, rec.BusinessID); err == nil {
		notices = append(notices, models.Notice{
			RecipientID: business.OwnerID,
			Role:        models.RecipientProvider,
			Title:       "New confirmed booking",
			Body:        fmt.Sprintf("%d booking(s) were paid and confirmed.", len(confirmed)),
			Data:        map[string]string{"paymentId": rec.ID},
		})
	}
	for _, b := range confirmed {
		if a, err := c.Repo.GetActiveAssignment(ctx, b.ID); err == nil {
			notices = append(notices, models.Notice{
				RecipientID: a.StaffID,
				Role:        models.RecipientStaff,
				Title:       "Booking confirmed",
				Body:        fmt.Sprintf("Booking on %s at %s is confirmed.", b.Date, b.SlotTime),
				Data:        map[string]string{"bookingId": b.ID},
			})
		}
	}
	notification.NotifyAll(ctx, c.Notification, notices...)

	c.Logger.Info("payment settled",
		zap.String("paymentId", rec.ID),
		zap.Strings("bookingIds", rec.BookingIDs),
		zap.Int64("platformFee", fees))
}

// clearCart drops the cart entries the settled bookings came from.
func (c *DefaultCoordinator) clearCart(ctx context.Context, customerID string, confirmed []models.Booking) {
	if c.Cart == nil {
		return
	}
	items, err := c.Cart.List(ctx, customerID)
	if err != nil {
		c.Logger.Debug("cart not cleared", zap.String("customerId", customerID), zap.Error(err))
		return
	}
	settled := make(map[models.SlotKey]bool, len(confirmed))
	for _, b := range confirmed {
		settled[b.SlotKey()] = true
	}
	var ids []string
	for _, it := range items {
		if settled[models.SlotKey{ServiceID: it.ServiceID, SlotID: it.SlotID, Date: it.Date}] {
			ids = append(ids, it.ID)
		}
	}
	if err := c.Cart.Remove(ctx, customerID, ids...); err != nil {
		c.Logger.Debug("cart not cleared", zap.String("customerId", customerID), zap.Error(err))
	}
}
