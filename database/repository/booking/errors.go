package bookingRepo

import (
	"context"
	"errors"

	"homeserve/utils"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the booking store reacts to.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateUniqueViolation      = "23505"
	sqlStateQueryCanceled        = "57014"
)

var uniqueConstraintErrors = map[string]*utils.AppError{
	"uq_bookings_active_customer_slot": utils.ErrDuplicateBooking,
	"uq_staff_assignments_active":      utils.ErrAssignmentExists,
	"idx_cancellations_booking_id":     utils.ErrAlreadyCancelled,
}

// translate classifies a datastore error. Domain errors pass through untouched.
func translate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := utils.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable, sqlStateQueryCanceled:
			return utils.ErrConcurrentConflict.With("", err)
		case sqlStateUniqueViolation:
			if mapped, ok := uniqueConstraintErrors[pgErr.ConstraintName]; ok {
				return mapped.With("", err)
			}
			return utils.ErrInvalidState.With("", err)
		}
	}

	// A transaction that ran out of time is reported as a retryable conflict.
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return utils.ErrConcurrentConflict.With("the operation timed out, please retry", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return utils.ErrUnavailable.With("", err)
}
