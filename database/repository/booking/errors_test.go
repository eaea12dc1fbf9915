package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"homeserve/utils"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, utils.ErrConcurrentConflict},
		{"deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"}), utils.ErrConcurrentConflict},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, utils.ErrConcurrentConflict},
		{"duplicate booking", &pgconn.PgError{Code: "23505", ConstraintName: "uq_bookings_active_customer_slot"}, utils.ErrDuplicateBooking},
		{"second active assignment", &pgconn.PgError{Code: "23505", ConstraintName: "uq_staff_assignments_active"}, utils.ErrAssignmentExists},
		{"second cancellation", &pgconn.PgError{Code: "23505", ConstraintName: "idx_cancellations_booking_id"}, utils.ErrAlreadyCancelled},
		{"other unique", &pgconn.PgError{Code: "23505", ConstraintName: "bookings_pkey"}, utils.ErrInvalidState},
		{"deadline", context.DeadlineExceeded, utils.ErrConcurrentConflict},
		{"connection refused", errors.New("dial tcp: connection refused"), utils.ErrUnavailable},
		{"not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"domain error", utils.ErrSlotFull, utils.ErrSlotFull},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translate(context.Background(), tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("translate(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestTranslateKeepsCause(t *testing.T) {
	cause := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	got := translate(context.Background(), cause)

	var pgErr *pgconn.PgError
	if !errors.As(got, &pgErr) || pgErr != cause {
		t.Fatalf("cause lost: %v", got)
	}
	if !utils.IsRetryable(got) {
		t.Fatal("serialization failures must be retryable")
	}
}

func TestTranslateExpiredContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	got := translate(ctx, errors.New("conn closed"))
	if !errors.Is(got, utils.ErrConcurrentConflict) {
		t.Fatalf("got %v, want concurrent conflict", got)
	}
	if translate(context.Background(), nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
