package cron

import (
	"context"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"

	"go.uber.org/zap"
)

// SweepResult is what one expiry sweep reclaimed.
type SweepResult struct {
	Reclaimed      int   `json:"reclaimed"`
	PaymentsPurged int64 `json:"paymentsPurged"`
}

// ExpiryReaper releases lapsed holds so their capacity can be booked again.
// It shares the settlement transaction boundary: a hold that settled first is
// no longer PENDING_PAYMENT, and a hold deleted first fails settlement.
type ExpiryReaper struct {
	Repo         bookingRepo.BookingRepository
	Events       recordsRepo.EventLogRepository
	Logger       *zap.Logger
	HoldDuration time.Duration
	Now          func() time.Time
}

func (r *ExpiryReaper) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Sweep deletes every expired hold and any pending payment record left with no bookings.
func (r *ExpiryReaper) Sweep(ctx context.Context) (SweepResult, error) {
	now := r.now()
	var (
		res       SweepResult
		reclaimed []models.Booking
	)
	err := r.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		gone, err := tx.DeleteExpiredHolds(ctx, now)
		if err != nil {
			return err
		}
		purged, err := tx.PurgeOrphanedPendingPayments(ctx, now.Add(-r.HoldDuration))
		if err != nil {
			return err
		}
		reclaimed = gone
		res = SweepResult{Reclaimed: len(gone), PaymentsPurged: purged}
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}

	if res.Reclaimed > 0 {
		ids := make([]string, len(reclaimed))
		for i, b := range reclaimed {
			ids[i] = b.ID
		}
		recordsRepo.Record(ctx, r.Events, r.Logger, "", ids, models.HoldsReclaimed{
			Reclaimed:      res.Reclaimed,
			PaymentsPurged: res.PaymentsPurged,
		})
	}
	if res.Reclaimed > 0 || res.PaymentsPurged > 0 {
		r.Logger.Info("expired holds reclaimed",
			zap.Int("reclaimed", res.Reclaimed), zap.Int64("paymentsPurged", res.PaymentsPurged))
	}
	return res, nil
}

// Task adapts Sweep for the scheduler.
func (r *ExpiryReaper) Task() TaskFunc {
	return func(ctx context.Context) (Counts, error) {
		res, err := r.Sweep(ctx)
		if err != nil {
			return nil, err
		}
		return Counts{"reclaimed": int64(res.Reclaimed), "paymentsPurged": res.PaymentsPurged}, nil
	}
}
