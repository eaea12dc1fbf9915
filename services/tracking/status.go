package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/notification"
	"homeserve/services/payment"
	"homeserve/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var trackingMessages = map[models.TrackingStatus]string{
	models.TrackingBookingStarted:   "Your booking has been started.",
	models.TrackingProviderOnTheWay: "Your service provider is on the way.",
	models.TrackingServiceStarted:   "Your service has started.",
	models.TrackingCompleted:        "Your service is complete. Thank you!",
}

// StaffShare is what staff are owed from the provider's earnings.
func StaffShare(a *models.StaffAssignment, providerEarnings int64) int64 {
	switch a.PaymentType {
	case models.StaffPayFixed:
		return min(a.PaymentValue, providerEarnings)
	case models.StaffPayPercentage:
		return payment.Percentage(providerEarnings, int(a.PaymentValue))
	}
	return 0
}

// UpdateTrackingStatus moves a booking exactly one step along the tracking
// states on behalf of the assigned staff member.
func (t *DefaultTracker) UpdateTrackingStatus(ctx context.Context, upd models.TrackingUpdate) (*models.Booking, error) {
	if !upd.Target.Valid() {
		return nil, utils.ErrInvalidInput.With("unknown tracking status "+string(upd.Target), nil)
	}
	upd.EarlyStartReason = strings.TrimSpace(upd.EarlyStartReason)

	now := t.now()
	var (
		booking *models.Booking
		from    models.TrackingStatus
	)
	err := t.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		b, err := tx.LockBooking(ctx, upd.BookingID)
		if err != nil {
			return bookingNotFound(err)
		}
		if b.BookingStatus == models.BookingCancelled {
			return utils.ErrBookingCancelled
		}

		a, err := tx.GetActiveAssignment(ctx, b.ID)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return utils.ErrNotAssignedStaff
		}
		if err != nil {
			return err
		}
		if a.StaffID != upd.StaffID || a.Status != models.AssignmentAccepted {
			return utils.ErrNotAssignedStaff
		}
		if b.BookingStatus != models.BookingConfirmed {
			return utils.ErrInvalidState.With("booking is "+string(b.BookingStatus), nil)
		}
		if !b.TrackingStatus.CanTransitionTo(upd.Target) {
			return utils.ErrInvalidTransition.With(
				fmt.Sprintf("cannot move from %s to %s", b.TrackingStatus, upd.Target), nil)
		}

		if upd.Target == models.TrackingBookingStarted {
			start, err := utils.ParseSlotStart(b.Date, b.SlotTime, t.Location)
			if err != nil {
				return utils.ErrInvalidInput.With("booking has an unreadable schedule", err)
			}
			if start.Sub(now) > t.EarlyStartWindow {
				if upd.EarlyStartReason == "" {
					return utils.ErrEarlyStartReason
				}
				reason := upd.EarlyStartReason
				b.EarlyStartReason = &reason
			}
		}

		from = b.TrackingStatus
		b.TrackingStatus = upd.Target

		switch upd.Target {
		case models.TrackingBookingStarted:
			// the assignment is accepted, so this lands on BUSY
			if _, err := RecomputeAvailability(ctx, tx, a.StaffID); err != nil {
				return err
			}
		case models.TrackingCompleted:
			if err := t.complete(ctx, tx, b, a); err != nil {
				return err
			}
		}
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := models.TrackingAdvanced{StaffID: upd.StaffID, From: from, To: upd.Target}
	if booking.EarlyStartReason != nil && upd.Target == models.TrackingBookingStarted {
		payload.EarlyStartReason = *booking.EarlyStartReason
	}
	recordsRepo.Record(ctx, t.Events, t.Logger, upd.StaffID, []string{booking.ID}, payload)
	notification.NotifyAll(ctx, t.Notification, models.Notice{
		RecipientID: booking.CustomerID,
		Role:        models.RecipientCustomer,
		Title:       "Booking update",
		Body:        trackingMessages[upd.Target],
		Data:        map[string]string{"bookingId": booking.ID, "trackingStatus": string(upd.Target)},
	})
	t.Logger.Info("tracking advanced",
		zap.String("bookingId", booking.ID),
		zap.String("from", string(from)),
		zap.String("to", string(upd.Target)))
	return booking, nil
}

// complete closes the booking, records what staff are owed and frees them.
func (t *DefaultTracker) complete(ctx context.Context, tx bookingRepo.BookingRepository, b *models.Booking, a *models.StaffAssignment) error {
	if !b.BookingStatus.CanTransitionTo(models.BookingCompleted) || !a.Status.CanTransitionTo(models.AssignmentCompleted) {
		return utils.ErrInvalidState
	}
	b.BookingStatus = models.BookingCompleted

	a.Status = models.AssignmentCompleted
	if err := tx.SaveAssignment(ctx, a); err != nil {
		return err
	}
	if err := tx.CreateStaffPayment(ctx, &models.StaffPayment{
		ID:           uuid.New().String(),
		StaffID:      a.StaffID,
		BookingID:    b.ID,
		AssignmentID: a.ID,
		Amount:       StaffShare(a, b.ProviderEarnings),
		Status:       "PENDING",
	}); err != nil {
		return err
	}
	_, err := RecomputeAvailability(ctx, tx, a.StaffID)
	return err
}
