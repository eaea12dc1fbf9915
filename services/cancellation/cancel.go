package cancellation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/notification"
	"homeserve/services/tracking"
	"homeserve/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (e *DefaultEngine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

// check runs the cancellation preconditions in order. A cancelled booking
// yields ErrAlreadyCancelled.
func (e *DefaultEngine) check(ctx context.Context, repo bookingRepo.BookingRepository, b *models.Booking, requesterID string, now time.Time) (*models.CancellationQuote, *models.StaffAssignment, error) {
	if b.CustomerID != requesterID {
		return nil, nil, utils.ErrForbidden.With("booking belongs to another customer", nil)
	}
	switch b.BookingStatus {
	case models.BookingCompleted:
		return nil, nil, utils.ErrAlreadyCompleted
	case models.BookingCancelled:
		return nil, nil, utils.ErrAlreadyCancelled
	}

	assignment, err := repo.GetActiveAssignment(ctx, b.ID)
	switch {
	case errors.Is(err, bookingRepo.ErrNotFound):
		assignment = nil
	case err != nil:
		return nil, nil, err
	}
	if assignment != nil && assignment.Status == models.AssignmentAccepted && b.TrackingStatus.AtLeast(models.TrackingServiceStarted) {
		return nil, nil, utils.ErrServiceInProgress
	}

	start, err := utils.ParseSlotStart(b.Date, b.SlotTime, e.Location)
	if err != nil {
		return nil, nil, utils.ErrInvalidInput.With("booking has an unreadable schedule", err)
	}
	if !start.After(now) {
		return nil, nil, utils.ErrSlotInPast
	}

	hours := start.Sub(now).Hours()
	q := &models.CancellationQuote{
		BookingID:          b.ID,
		TotalAmount:        b.TotalAmount,
		Paid:               b.PaymentStatus == models.PaymentPaid,
		HoursBeforeService: hours,
	}
	if q.Paid {
		q.FeePercentage = FeePercentage(hours)
		q.CancellationFee, q.RefundAmount = Split(b.TotalAmount, q.FeePercentage)
	}
	return q, assignment, nil
}

func (e *DefaultEngine) Quote(ctx context.Context, bookingID, requesterID string) (*models.CancellationQuote, error) {
	b, err := e.Repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, notFound(err)
	}
	q, _, err := e.check(ctx, e.Repo, b, requesterID, e.now())
	return q, err
}

func (e *DefaultEngine) Cancel(ctx context.Context, req models.CancelRequest) (*models.CancelResult, error) {
	if req.ReasonType == "" {
		req.ReasonType = models.ReasonOther
	}
	if !req.ReasonType.Valid() {
		return nil, utils.ErrInvalidInput.With("unknown reasonType "+string(req.ReasonType), nil)
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if len(req.Reason) > 1000 {
		return nil, utils.ErrInvalidInput.With("reason is too long", nil)
	}

	now := e.now()
	var (
		result  *models.CancelResult
		booking *models.Booking
		staffID string
	)
	err := e.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		result, booking, staffID = nil, nil, ""

		b, err := tx.LockBooking(ctx, req.BookingID)
		if err != nil {
			return notFound(err)
		}
		q, assignment, err := e.check(ctx, tx, b, req.RequesterID, now)
		if errors.Is(err, utils.ErrAlreadyCancelled) {
			existing, err := tx.GetCancellationByBooking(ctx, b.ID)
			if err != nil {
				// cancelled without a record, e.g. an unpaid hold released elsewhere
				return utils.ErrAlreadyCancelled
			}
			result = &models.CancelResult{Cancellation: existing, AlreadyCancelled: true}
			return nil
		}
		if err != nil {
			return err
		}
		if !b.BookingStatus.CanTransitionTo(models.BookingCancelled) {
			return utils.ErrInvalidState
		}

		c := &models.Cancellation{
			ID:                 uuid.New().String(),
			BookingID:          b.ID,
			RequesterID:        req.RequesterID,
			Reason:             req.Reason,
			ReasonType:         req.ReasonType,
			RefundAmount:       q.RefundAmount,
			CancellationFee:    q.CancellationFee,
			FeePercentage:      q.FeePercentage,
			HoursBeforeService: q.HoursBeforeService,
		}
		if q.Paid && q.RefundAmount > 0 {
			c.RefundStatus = models.RefundPending
		} else {
			c.RefundStatus = models.RefundCancelled
		}
		c.Status = overallStatus(c.RefundStatus)
		if err := tx.CreateCancellation(ctx, c); err != nil {
			return err
		}

		b.BookingStatus = models.BookingCancelled
		b.HoldExpiresAt = nil
		b.CheckoutURL = nil
		if q.Paid {
			b.PaymentStatus = models.PaymentRefunded
			b.ProviderEarnings = q.CancellationFee
			b.PlatformFee = 0
		}
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}

		if assignment != nil {
			assignment.Status = models.AssignmentCancelled
			if err := tx.SaveAssignment(ctx, assignment); err != nil {
				return err
			}
			staffID = assignment.StaffID
			if _, err := tracking.RecomputeAvailability(ctx, tx, staffID); err != nil {
				return err
			}
		}

		booking = b
		result = &models.CancelResult{Cancellation: c}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.AlreadyCancelled {
		return result, nil
	}

	c := result.Cancellation
	if c.RefundStatus == models.RefundPending {
		if updated := e.requestRefund(ctx, booking, c); updated != nil {
			result.Cancellation = updated
			c = updated
		}
	}

	recordsRepo.Record(ctx, e.Events, e.Logger, req.RequesterID, []string{booking.ID}, models.BookingCancelledEvent{
		CancellationID:     c.ID,
		CancellationFee:    c.CancellationFee,
		RefundAmount:       c.RefundAmount,
		HoursBeforeService: c.HoursBeforeService,
		RefundStatus:       c.RefundStatus,
	})
	e.notifyCancelled(ctx, booking, c, staffID)

	e.Logger.Info("booking cancelled",
		zap.String("bookingId", booking.ID),
		zap.Int64("fee", c.CancellationFee),
		zap.Int64("refund", c.RefundAmount),
		zap.String("refundStatus", string(c.RefundStatus)))
	return result, nil
}

// requestRefund asks the gateway for the refund and stores its immediate
// answer. Any failure leaves the refund PENDING for reconciliation.
func (e *DefaultEngine) requestRefund(ctx context.Context, b *models.Booking, c *models.Cancellation) *models.Cancellation {
	log := e.Logger.With(zap.String("bookingId", b.ID), zap.String("cancellationId", c.ID))
	if b.PaymentID == nil {
		log.Warn("paid booking has no payment record; refund left pending")
		return nil
	}
	rec, err := e.Repo.GetPayment(ctx, *b.PaymentID)
	if err != nil || rec.GatewayPaymentIntentID == nil {
		log.Warn("payment intent unknown; refund left pending", zap.Error(err))
		return nil
	}

	res, err := e.Gateway.CreateRefund(ctx, models.RefundRequest{
		PaymentIntentID: *rec.GatewayPaymentIntentID,
		Amount:          c.RefundAmount,
		BookingID:       b.ID,
		CancellationID:  c.ID,
	})
	if err != nil {
		log.Error("refund request failed; refund left pending", zap.Error(utils.ErrGatewayFailure.With("", err)))
		return nil
	}

	status, known := RefundStatusFromGateway(res.Status)
	var updated *models.Cancellation
	err = e.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		cur, err := tx.GetCancellationByBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		ref := res.Reference
		cur.RefundReference = &ref
		if known && cur.RefundStatus.CanTransitionTo(status) {
			applyRefundStatus(cur, status, e.now())
		}
		updated = cur
		return tx.SaveCancellation(ctx, cur)
	})
	if err != nil {
		log.Error("refund issued but not recorded", zap.String("refundRef", res.Reference), zap.Error(err))
		return nil
	}
	return updated
}

func applyRefundStatus(c *models.Cancellation, status models.RefundStatus, now time.Time) {
	c.RefundStatus = status
	c.Status = overallStatus(status)
	if status == models.RefundPaid {
		c.RefundCompletedAt = &now
	}
}

func (e *DefaultEngine) notifyCancelled(ctx context.Context, b *models.Booking, c *models.Cancellation, staffID string) {
	data := map[string]string{"bookingId": b.ID, "cancellationId": c.ID}
	body := "Your booking was cancelled."
	if c.RefundAmount > 0 {
		body = fmt.Sprintf("Your booking was cancelled. A refund of %d will be returned to your payment method.", c.RefundAmount)
	}
	notices := []models.Notice{{
		RecipientID: b.CustomerID,
		Role:        models.RecipientCustomer,
		Title:       "Booking cancelled",
		Body:        body,
		Data:        data,
	}}
	if business, err := e.Repo.GetBusiness(ctx, b.BusinessID); err == nil {
		notices = append(notices, models.Notice{
			RecipientID: business.OwnerID,
			Role:        models.RecipientProvider,
			Title:       "Booking cancelled",
			Body:        fmt.Sprintf("The booking on %s at %s was cancelled by the customer.", b.Date, b.SlotTime),
			Data:        data,
		})
	}
	if staffID != "" {
		notices = append(notices, models.Notice{
			RecipientID: staffID,
			Role:        models.RecipientStaff,
			Title:       "Assignment cancelled",
			Body:        fmt.Sprintf("The booking on %s at %s was cancelled.", b.Date, b.SlotTime),
			Data:        data,
		})
	}
	notification.NotifyAll(ctx, e.Notification, notices...)
}

func notFound(err error) error {
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return utils.ErrNotFound.With("booking not found", nil)
	}
	return err
}
