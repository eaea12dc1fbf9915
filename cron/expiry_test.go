package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"homeserve/database/repository/booking/bookingtest"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/payment/paymenttest"
	"homeserve/services/settlement"
	"homeserve/utils"

	"go.uber.org/zap"
)

var testNow = time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC)

func seedHold(store *bookingtest.Store, bookingID, paymentID string, expiresAt time.Time) {
	pid, exp := paymentID, expiresAt
	store.Seed(
		models.Booking{
			ID: bookingID, CustomerID: "cust-1", BusinessID: "biz-1", ServiceID: "svc", SlotID: "slot",
			Date: "2024-05-01", SlotTime: "9:00 AM", TotalAmount: 500,
			BookingStatus: models.BookingPendingPayment, PaymentStatus: models.PaymentPending,
			PaymentID: &pid, HoldExpiresAt: &exp, TrackingStatus: models.TrackingNotStarted,
		},
		models.PaymentRecord{
			ID: paymentID, CustomerID: "cust-1", BusinessID: "biz-1", Amount: 500, Currency: "inr",
			Status: models.PaymentRecordPending, BookingIDs: []string{bookingID}, CreatedAt: testNow.Add(-10 * time.Minute),
		},
	)
}

func newReaper(store *bookingtest.Store, events recordsRepo.EventLogRepository, at time.Time) *ExpiryReaper {
	return &ExpiryReaper{
		Repo:         store.Repo(),
		Events:       events,
		Logger:       zap.NewNop(),
		HoldDuration: 5 * time.Minute,
		Now:          func() time.Time { return at },
	}
}

func TestSweepReclaimsOnlyExpiredHolds(t *testing.T) {
	store := bookingtest.NewStore()
	store.Now = func() time.Time { return testNow }
	events := recordsRepo.NewMemoryEventLog()

	seedHold(store, "b-expired", "pay-expired", testNow.Add(-time.Second))
	seedHold(store, "b-boundary", "pay-boundary", testNow)
	seedHold(store, "b-live", "pay-live", testNow.Add(3*time.Minute))
	pid := "pay-paid"
	store.Seed(models.Booking{
		ID: "b-paid", CustomerID: "cust-1", BusinessID: "biz-1", ServiceID: "svc", SlotID: "slot", Date: "2024-05-01",
		SlotTime: "9:00 AM", TotalAmount: 500, BookingStatus: models.BookingConfirmed, PaymentStatus: models.PaymentPaid,
		PaymentID: &pid, TrackingStatus: models.TrackingNotStarted,
	})

	res, err := newReaper(store, events, testNow).Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Reclaimed != 2 || res.PaymentsPurged != 2 {
		t.Fatalf("result %+v, want 2 reclaimed and 2 purged", res)
	}
	for _, id := range []string{"b-expired", "b-boundary"} {
		if _, ok := store.Booking(id); ok {
			t.Fatalf("%s not reclaimed", id)
		}
	}
	for _, id := range []string{"b-live", "b-paid"} {
		if _, ok := store.Booking(id); !ok {
			t.Fatalf("%s was reclaimed", id)
		}
	}
	if _, ok := store.Payment("pay-live"); !ok {
		t.Fatal("payment of a live hold purged")
	}

	evs, _ := events.ListByKind(context.Background(), models.EventHoldsReclaimed, 10)
	if len(evs) != 1 || len(evs[0].BookingIDs) != 2 {
		t.Fatalf("reclaim events: %+v", evs)
	}

	// a second run finds nothing
	again, err := newReaper(store, events, testNow).Sweep(context.Background())
	if err != nil || again.Reclaimed != 0 || again.PaymentsPurged != 0 {
		t.Fatalf("second sweep: %+v, %v", again, err)
	}
}

func TestSweepSurfacesStoreErrors(t *testing.T) {
	store := bookingtest.NewStore()
	seedHold(store, "b1", "pay-1", testNow.Add(-time.Minute))
	store.FailNextTransactions(1, utils.ErrUnavailable)

	if _, err := newReaper(store, recordsRepo.NewMemoryEventLog(), testNow).Sweep(context.Background()); !errors.Is(err, utils.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
	if _, ok := store.Booking("b1"); !ok {
		t.Fatal("failed sweep removed a booking")
	}
}

// A settlement arriving for a hold the reaper already reclaimed must not
// resurrect it, and a settled booking is never reclaimed.
func TestReaperAndSettlementNeverBothWin(t *testing.T) {
	for i := 0; i < 20; i++ {
		store := bookingtest.NewStore()
		store.Now = func() time.Time { return testNow }
		store.Seed(models.Business{ID: "biz-1", OwnerID: "prov-1"})
		expiry := testNow.Add(5 * time.Minute)
		seedHold(store, "b1", "pay-1", expiry)

		events := recordsRepo.NewMemoryEventLog()
		reaper := newReaper(store, events, expiry.Add(time.Second))
		coord := &settlement.DefaultCoordinator{
			Repo:       store.Repo(),
			Commission: paymenttest.FixedRate(10),
			Events:     events,
			Logger:     zap.NewNop(),
			Now:        func() time.Time { return expiry.Add(-time.Second) },
		}

		var (
			wg        sync.WaitGroup
			sweep     SweepResult
			settleErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			sweep, _ = reaper.Sweep(context.Background())
		}()
		go func() {
			defer wg.Done()
			_, settleErr = coord.Settle(context.Background(), models.GatewayEvent{
				ID: "evt_1", Type: models.GatewayCheckoutCompleted, PaymentID: "pay-1", SessionID: "cs_1", PaymentIntentID: "pi_1",
			})
		}()
		wg.Wait()

		b, exists := store.Booking("b1")
		switch {
		case settleErr == nil:
			if !exists || !b.Settled() || sweep.Reclaimed != 0 {
				t.Fatalf("run %d: settlement won but booking=%+v exists=%v sweep=%+v", i, b, exists, sweep)
			}
		case errors.Is(settleErr, utils.ErrHoldExpired):
			if exists || sweep.Reclaimed != 1 {
				t.Fatalf("run %d: reaper won but booking exists=%v sweep=%+v", i, exists, sweep)
			}
		default:
			t.Fatalf("run %d: unexpected settlement error %v", i, settleErr)
		}
	}
}
