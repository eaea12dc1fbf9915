package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/notification"
	"homeserve/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (m *DefaultReservationManager) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// resolvedItem is a reservation line with its catalog rows loaded.
type resolvedItem struct {
	models.ReservationItem
	service *models.Service
	slot    *models.Slot
}

func (r resolvedItem) key() models.SlotKey {
	return models.SlotKey{ServiceID: r.ServiceID, SlotID: r.SlotID, Date: r.Date}
}

func (m *DefaultReservationManager) Reserve(ctx context.Context, req models.ReserveRequest) (*models.Reservation, error) {
	if err := validateReserveRequest(req); err != nil {
		return nil, err
	}
	cartItems, err := m.Cart.Get(ctx, req.CustomerID, req.CartItemIDs)
	if err != nil {
		return nil, err
	}
	items := make([]models.ReservationItem, 0, len(cartItems))
	for _, ci := range cartItems {
		items = append(items, ci.Item())
	}
	return m.ReserveItems(ctx, req.CustomerID, req.AddressID, items)
}

func validateReserveRequest(req models.ReserveRequest) error {
	if req.CustomerID == "" {
		return utils.ErrInvalidInput.With("customer is required", nil)
	}
	if req.AddressID == "" {
		return utils.ErrInvalidInput.With("addressId is required", nil)
	}
	if len(req.CartItemIDs) == 0 || len(req.CartItemIDs) > MaxItemsPerReservation {
		return utils.ErrInvalidInput.With(fmt.Sprintf("between 1 and %d cart items are required", MaxItemsPerReservation), nil)
	}
	seen := make(map[string]bool, len(req.CartItemIDs))
	for _, id := range req.CartItemIDs {
		if id == "" || seen[id] {
			return utils.ErrInvalidInput.With("cart item ids must be distinct and non-empty", nil)
		}
		seen[id] = true
	}
	return nil
}

func (m *DefaultReservationManager) ReserveItems(ctx context.Context, customerID, addressID string, items []models.ReservationItem) (*models.Reservation, error) {
	if customerID == "" || len(items) == 0 {
		return nil, utils.ErrInvalidInput.With("customer and at least one item are required", nil)
	}
	if len(items) > MaxItemsPerReservation {
		return nil, utils.ErrInvalidInput.With(fmt.Sprintf("at most %d items per checkout", MaxItemsPerReservation), nil)
	}

	businessID := items[0].BusinessID
	for _, it := range items[1:] {
		if it.BusinessID != businessID {
			return nil, utils.ErrCrossBusiness
		}
	}

	now := m.now()
	resolved, err := m.resolve(ctx, items, now)
	if err != nil {
		return nil, err
	}
	business, err := m.Repo.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, notFoundAs(err, "unknown business")
	}

	for _, it := range resolved {
		dup, err := m.Repo.HasActiveBooking(ctx, customerID, it.key())
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, utils.ErrDuplicateBooking
		}
	}

	var total int64
	for _, it := range resolved {
		total += it.service.Price
	}
	if total < m.Options.MinAmount {
		return nil, utils.ErrBelowMinimum.With(fmt.Sprintf("order total %d is below the minimum of %d", total, m.Options.MinAmount), nil)
	}

	paymentID := uuid.New().String()
	expiresAt := now.Add(m.Options.HoldDuration)
	bookings := make([]*models.Booking, 0, len(resolved))
	for _, it := range resolved {
		pid := paymentID
		exp := expiresAt
		bookings = append(bookings, &models.Booking{
			ID:             uuid.New().String(),
			CustomerID:     customerID,
			BusinessID:     businessID,
			ServiceID:      it.ServiceID,
			SlotID:         it.SlotID,
			Date:           it.Date,
			SlotTime:       it.slot.Time,
			AddressID:      addressID,
			TotalAmount:    it.service.Price,
			BookingStatus:  models.BookingPendingPayment,
			PaymentStatus:  models.PaymentPending,
			PaymentID:      &pid,
			HoldExpiresAt:  &exp,
			TrackingStatus: models.TrackingNotStarted,
		})
	}
	bookingIDs := make([]string, len(bookings))
	for i, b := range bookings {
		bookingIDs[i] = b.ID
	}
	record := &models.PaymentRecord{
		ID:         paymentID,
		CustomerID: customerID,
		BusinessID: businessID,
		Amount:     total,
		Currency:   m.Options.Currency,
		Status:     models.PaymentRecordPending,
		BookingIDs: bookingIDs,
	}

	err = m.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		for i, b := range bookings {
			it := resolved[i]
			dup, err := tx.HasActiveBooking(ctx, customerID, it.key())
			if err != nil {
				return err
			}
			if dup {
				return utils.ErrDuplicateBooking
			}
			if err := m.Ledger.Admit(ctx, tx, it.service, it.key(), now); err != nil {
				return err
			}
			if err := tx.CreateBooking(ctx, b); err != nil {
				return err
			}
		}
		return tx.CreatePayment(ctx, record)
	})
	if err != nil {
		m.Logger.Info("reservation rejected",
			zap.String("customerId", customerID),
			zap.String("businessId", businessID),
			zap.Error(err))
		return nil, err
	}

	lines := make([]models.CheckoutLine, len(bookings))
	for i, b := range bookings {
		lines[i] = models.CheckoutLine{
			BookingID: b.ID,
			Name:      fmt.Sprintf("%s on %s at %s", resolved[i].service.Name, b.Date, b.SlotTime),
			Amount:    b.TotalAmount,
		}
	}
	checkout, err := m.Gateway.CreateCheckoutSession(ctx, models.CheckoutRequest{
		PaymentID:  paymentID,
		CustomerID: customerID,
		Currency:   m.Options.Currency,
		BookingIDs: bookingIDs,
		Lines:      lines,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		m.releaseHolds(ctx, paymentID, bookingIDs)
		return nil, utils.ErrGatewayFailure.With("could not start checkout, please try again", err)
	}

	if err := m.attachCheckout(ctx, paymentID, bookingIDs, checkout); err != nil {
		m.Logger.Warn("checkout session not stored on reservation",
			zap.String("paymentId", paymentID), zap.String("sessionId", checkout.SessionID), zap.Error(err))
	}

	recordsRepo.Record(ctx, m.Events, m.Logger, customerID, bookingIDs, models.ReservationHeld{
		PaymentID:   paymentID,
		BusinessID:  businessID,
		TotalAmount: total,
		ExpiresAt:   expiresAt,
	})
	notification.NotifyAll(ctx, m.Notification, models.Notice{
		RecipientID: business.OwnerID,
		Role:        models.RecipientProvider,
		Title:       "New booking pending payment",
		Body:        fmt.Sprintf("%d booking(s) are being paid for", len(bookingIDs)),
		Data:        map[string]string{"paymentId": paymentID},
	})

	m.Logger.Info("reservation held",
		zap.String("paymentId", paymentID),
		zap.Strings("bookingIds", bookingIDs),
		zap.Int64("total", total))

	return &models.Reservation{
		PaymentID:   paymentID,
		BookingIDs:  bookingIDs,
		TotalAmount: total,
		CheckoutURL: checkout.URL,
		ExpiresAt:   expiresAt,
	}, nil
}

// resolve loads each item's service and slot and checks they line up.
func (m *DefaultReservationManager) resolve(ctx context.Context, items []models.ReservationItem, now time.Time) ([]resolvedItem, error) {
	out := make([]resolvedItem, 0, len(items))
	seen := make(map[models.SlotKey]bool, len(items))
	for _, it := range items {
		svc, err := m.Repo.GetService(ctx, it.ServiceID)
		if err != nil {
			return nil, notFoundAs(err, "unknown service "+it.ServiceID)
		}
		if svc.BusinessID != it.BusinessID {
			return nil, utils.ErrInvalidInput.With("service "+it.ServiceID+" does not belong to the business", nil)
		}
		slot, err := m.Repo.GetSlot(ctx, it.SlotID)
		if err != nil {
			return nil, notFoundAs(err, "unknown slot "+it.SlotID)
		}
		if slot.BusinessID != it.BusinessID {
			return nil, utils.ErrInvalidInput.With("slot "+it.SlotID+" does not belong to the business", nil)
		}
		start, err := utils.ParseSlotStart(it.Date, slot.Time, m.Options.Location)
		if err != nil {
			return nil, utils.ErrInvalidInput.With("", err)
		}
		if !start.After(now) {
			return nil, utils.ErrSlotInPast
		}

		r := resolvedItem{ReservationItem: it, service: svc, slot: slot}
		if seen[r.key()] {
			return nil, utils.ErrDuplicateBooking.With("the same service and time appears twice in this checkout", nil)
		}
		seen[r.key()] = true
		out = append(out, r)
	}
	return out, nil
}

// releaseHolds undoes a reservation whose checkout could not be opened.
func (m *DefaultReservationManager) releaseHolds(ctx context.Context, paymentID string, bookingIDs []string) {
	bg := context.WithoutCancel(ctx)
	err := m.Repo.Transaction(bg, func(tx bookingRepo.BookingRepository) error {
		if err := tx.DeleteBookings(bg, bookingIDs); err != nil {
			return err
		}
		return tx.DeletePayment(bg, paymentID)
	})
	if err != nil {
		// The reaper reclaims the holds once they expire.
		m.Logger.Error("failed to release holds after checkout failure",
			zap.String("paymentId", paymentID), zap.Error(err))
	}
}

func (m *DefaultReservationManager) attachCheckout(ctx context.Context, paymentID string, bookingIDs []string, checkout *models.CheckoutSession) error {
	return m.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		record, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		sid := checkout.SessionID
		record.GatewaySessionID = &sid
		if err := tx.SavePayment(ctx, record); err != nil {
			return err
		}
		return tx.SetCheckoutURL(ctx, bookingIDs, checkout.URL)
	})
}

// notFoundAs turns a missing catalog row into a validation error.
func notFoundAs(err error, msg string) error {
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return utils.ErrInvalidInput.With(msg, nil)
	}
	return err
}
