package tracking

import (
	"context"
	"errors"

	bookingRepo "homeserve/database/repository/booking"
	"homeserve/models"
)

// RecomputeAvailability derives a staff member's availability from their
// manual flag and accepted assignments; a pending offer does not make
// staff busy. Run it on the transaction that changed the assignments.
func RecomputeAvailability(ctx context.Context, tx bookingRepo.BookingRepository, staffID string) (models.StaffAvailability, error) {
	staff, err := tx.GetStaff(ctx, staffID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	next := models.StaffAvailable
	if staff.ManuallyUnavailable {
		next = models.StaffNotAvailable
	} else {
		accepted, err := tx.CountAcceptedAssignmentsForStaff(ctx, staffID)
		if err != nil {
			return "", err
		}
		if accepted > 0 {
			next = models.StaffBusy
		}
	}
	if next != staff.Availability {
		if err := tx.UpdateStaffAvailability(ctx, staffID, next); err != nil {
			return "", err
		}
	}
	return next, nil
}
