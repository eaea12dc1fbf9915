package tracking

import (
	"context"
	"errors"
	"fmt"

	bookingRepo "homeserve/database/repository/booking"
	"homeserve/models"
	"homeserve/services/notification"
	"homeserve/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func validateTerms(req models.AssignRequest) error {
	switch req.PaymentType {
	case models.StaffPayFixed:
		if req.PaymentValue < 0 {
			return utils.ErrInvalidInput.With("paymentValue must not be negative", nil)
		}
	case models.StaffPayPercentage:
		if req.PaymentValue < 0 || req.PaymentValue > 100 {
			return utils.ErrInvalidInput.With("percentage must be between 0 and 100", nil)
		}
	default:
		return utils.ErrInvalidInput.With("paymentType must be FIXED or PERCENTAGE", nil)
	}
	if req.StaffID == "" {
		return utils.ErrInvalidInput.With("staffId is required", nil)
	}
	return nil
}

// Assign offers a confirmed booking to one of the business's staff.
func (t *DefaultTracker) Assign(ctx context.Context, req models.AssignRequest) (*models.StaffAssignment, error) {
	if err := validateTerms(req); err != nil {
		return nil, err
	}

	var (
		assignment *models.StaffAssignment
		booking    *models.Booking
	)
	err := t.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		b, err := tx.LockBooking(ctx, req.BookingID)
		if err != nil {
			return bookingNotFound(err)
		}
		business, err := tx.GetBusiness(ctx, b.BusinessID)
		if err != nil {
			return err
		}
		if business.OwnerID != req.ProviderID {
			return utils.ErrForbidden.With("booking belongs to another business", nil)
		}
		switch b.BookingStatus {
		case models.BookingConfirmed:
		case models.BookingCancelled:
			return utils.ErrBookingCancelled
		default:
			return utils.ErrInvalidState.With("only confirmed bookings can be assigned", nil)
		}

		staff, err := tx.GetStaff(ctx, req.StaffID)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return utils.ErrInvalidInput.With("unknown staff member", nil)
		}
		if err != nil {
			return err
		}
		if staff.BusinessID != b.BusinessID {
			return utils.ErrInvalidInput.With("staff member works for another business", nil)
		}
		if staff.ManuallyUnavailable {
			return utils.ErrInvalidState.With("staff member is not available", nil)
		}
		if _, err := tx.GetActiveAssignment(ctx, b.ID); err == nil {
			return utils.ErrAssignmentExists
		} else if !errors.Is(err, bookingRepo.ErrNotFound) {
			return err
		}

		a := &models.StaffAssignment{
			ID:           uuid.New().String(),
			BookingID:    b.ID,
			StaffID:      staff.ID,
			BusinessID:   b.BusinessID,
			Status:       models.AssignmentPending,
			PaymentType:  req.PaymentType,
			PaymentValue: req.PaymentValue,
		}
		if err := tx.CreateAssignment(ctx, a); err != nil {
			return err
		}
		assignment, booking = a, b
		return nil
	})
	if err != nil {
		return nil, err
	}

	notification.NotifyAll(ctx, t.Notification, models.Notice{
		RecipientID: assignment.StaffID,
		Role:        models.RecipientStaff,
		Title:       "New assignment",
		Body:        fmt.Sprintf("You have been assigned a booking on %s at %s.", booking.Date, booking.SlotTime),
		Data:        map[string]string{"bookingId": booking.ID, "assignmentId": assignment.ID},
	})
	t.Logger.Info("staff assigned",
		zap.String("bookingId", booking.ID), zap.String("staffId", assignment.StaffID))
	return assignment, nil
}

// Respond records the staff member's answer to a pending assignment.
func (t *DefaultTracker) Respond(ctx context.Context, staffID, bookingID string, accept bool) (*models.StaffAssignment, error) {
	next := models.AssignmentCancelled
	if accept {
		next = models.AssignmentAccepted
	}

	var (
		assignment *models.StaffAssignment
		ownerID    string
	)
	err := t.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return bookingNotFound(err)
		}
		if b.BookingStatus == models.BookingCancelled {
			return utils.ErrBookingCancelled
		}
		a, err := tx.GetActiveAssignment(ctx, bookingID)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return utils.ErrNotAssignedStaff
		}
		if err != nil {
			return err
		}
		if a.StaffID != staffID {
			return utils.ErrNotAssignedStaff
		}
		if a.Status != models.AssignmentPending || !a.Status.CanTransitionTo(next) {
			return utils.ErrInvalidState.With("assignment was already answered", nil)
		}
		a.Status = next
		if err := tx.SaveAssignment(ctx, a); err != nil {
			return err
		}
		if !accept {
			if _, err := RecomputeAvailability(ctx, tx, staffID); err != nil {
				return err
			}
		}
		if business, err := tx.GetBusiness(ctx, b.BusinessID); err == nil {
			ownerID = business.OwnerID
		}
		assignment = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	verb := "declined"
	if accept {
		verb = "accepted"
	}
	notification.NotifyAll(ctx, t.Notification, models.Notice{
		RecipientID: ownerID,
		Role:        models.RecipientProvider,
		Title:       "Assignment " + verb,
		Body:        fmt.Sprintf("Your staff member %s the booking.", verb),
		Data:        map[string]string{"bookingId": bookingID, "assignmentId": assignment.ID},
	})
	return assignment, nil
}

func bookingNotFound(err error) error {
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return utils.ErrNotFound.With("booking not found", nil)
	}
	return err
}
