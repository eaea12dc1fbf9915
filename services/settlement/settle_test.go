package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"homeserve/database/repository/booking/bookingtest"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/cart"
	"homeserve/services/notification/notificationtest"
	"homeserve/services/payment/paymenttest"
	"homeserve/utils"

	"go.uber.org/zap"
)

var testNow = time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *bookingtest.Store
	events   *recordsRepo.MemoryEventLog
	cart     *cart.MemoryStore
	notified *notificationtest.Recorder
	coord    *DefaultCoordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := bookingtest.NewStore()
	store.Now = func() time.Time { return testNow }
	store.Seed(models.Business{ID: "biz-1", OwnerID: "prov-1"})
	f := &fixture{
		store:    store,
		events:   recordsRepo.NewMemoryEventLog(),
		cart:     cart.NewMemoryStore(),
		notified: notificationtest.NewRecorder(),
	}
	f.coord = &DefaultCoordinator{
		Repo:         store.Repo(),
		Commission:   paymenttest.FixedRate(10),
		Cart:         f.cart,
		Events:       f.events,
		Notification: f.notified,
		Logger:       zap.NewNop(),
		Now:          func() time.Time { return testNow },
	}
	return f
}

// hold seeds a pending payment with one held booking per amount.
func (f *fixture) hold(paymentID string, expiresAt time.Time, amounts ...int64) []string {
	var ids []string
	var total int64
	for i, amt := range amounts {
		id := paymentID + "-b" + string(rune('0'+i))
		pid, exp, url := paymentID, expiresAt, "https://checkout.test/"+paymentID
		f.store.Seed(models.Booking{
			ID: id, CustomerID: "cust-1", BusinessID: "biz-1", ServiceID: "svc-" + id, SlotID: "slot", Date: "2024-05-01",
			SlotTime: "9:00 AM", TotalAmount: amt, BookingStatus: models.BookingPendingPayment, PaymentStatus: models.PaymentPending,
			PaymentID: &pid, HoldExpiresAt: &exp, CheckoutURL: &url, TrackingStatus: models.TrackingNotStarted,
		})
		ids = append(ids, id)
		total += amt
	}
	f.store.Seed(models.PaymentRecord{
		ID: paymentID, CustomerID: "cust-1", BusinessID: "biz-1", Amount: total, Currency: "inr",
		Status: models.PaymentRecordPending, BookingIDs: ids, CreatedAt: testNow,
	})
	return ids
}

func completed(paymentID string) models.GatewayEvent {
	return models.GatewayEvent{
		ID: "evt_" + paymentID, Type: models.GatewayCheckoutCompleted, PaymentID: paymentID,
		SessionID: "cs_" + paymentID, PaymentIntentID: "pi_" + paymentID,
	}
}

func TestSettleConfirmsBookingsAndSplitsCommission(t *testing.T) {
	f := newFixture(t)
	ids := f.hold("pay-1", testNow.Add(4*time.Minute), 1000, 555)
	f.hold("pay-stale", testNow.Add(-time.Hour))
	f.cart.AddItem(context.Background(), "cust-1", models.CartItem{ID: "ci-1", ServiceID: "svc-" + ids[0], SlotID: "slot", Date: "2024-05-01"})
	f.cart.AddItem(context.Background(), "cust-1", models.CartItem{ID: "ci-keep", ServiceID: "svc-other", SlotID: "slot", Date: "2024-05-01"})

	res, err := f.coord.Settle(context.Background(), completed("pay-1"))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Duplicate {
		t.Fatal("first settlement reported as duplicate")
	}

	want := map[string][2]int64{ids[0]: {100, 900}, ids[1]: {56, 499}}
	for id, split := range want {
		b, _ := f.store.Booking(id)
		if !b.Settled() {
			t.Fatalf("booking %s not settled: %s/%s", id, b.BookingStatus, b.PaymentStatus)
		}
		if b.PlatformFee != split[0] || b.ProviderEarnings != split[1] {
			t.Fatalf("booking %s split %d/%d, want %v", id, b.PlatformFee, b.ProviderEarnings, split)
		}
		if b.HoldExpiresAt != nil || b.CheckoutURL != nil {
			t.Fatalf("booking %s still carries hold data", id)
		}
	}

	p, _ := f.store.Payment("pay-1")
	if p.Status != models.PaymentRecordPaid || p.GatewayPaymentIntentID == nil || *p.GatewayPaymentIntentID != "pi_pay-1" {
		t.Fatalf("payment record %+v", p)
	}
	if _, ok := f.store.Payment("pay-stale"); ok {
		t.Fatal("stale pending payment not purged")
	}

	items, _ := f.cart.List(context.Background(), "cust-1")
	if len(items) != 1 || items[0].ID != "ci-keep" {
		t.Fatalf("cart after settlement: %+v", items)
	}
	if kinds := f.events.Kinds(); len(kinds) != 1 || kinds[0] != models.EventPaymentSettled {
		t.Fatalf("events %v", kinds)
	}
	if got := f.notified.Wait(2, time.Second); len(got) != 2 {
		t.Fatalf("got %d notices, want customer and provider", len(got))
	}
}

func TestSettleReplayIsNoOp(t *testing.T) {
	f := newFixture(t)
	ids := f.hold("pay-1", testNow.Add(4*time.Minute), 800)

	if _, err := f.coord.Settle(context.Background(), completed("pay-1")); err != nil {
		t.Fatalf("first: %v", err)
	}
	first, _ := f.store.Booking(ids[0])

	res, err := f.coord.Settle(context.Background(), completed("pay-1"))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !res.Duplicate {
		t.Fatal("replay not reported as duplicate")
	}
	again, _ := f.store.Booking(ids[0])
	if again.UpdatedAt != first.UpdatedAt || again.PlatformFee != first.PlatformFee {
		t.Fatal("replay mutated the booking")
	}
	if n := len(f.events.Kinds()); n != 1 {
		t.Fatalf("got %d events, want 1", n)
	}
}

func TestSettleKeepsOtherLiveCheckouts(t *testing.T) {
	f := newFixture(t)
	a := f.hold("pay-a", testNow.Add(4*time.Minute), 500)
	b := f.hold("pay-b", testNow.Add(4*time.Minute), 700)
	f.hold("pay-lapsed", testNow.Add(-time.Minute), 300)

	if _, err := f.coord.Settle(context.Background(), completed("pay-a")); err != nil {
		t.Fatalf("settle a: %v", err)
	}
	if _, ok := f.store.Payment("pay-b"); !ok {
		t.Fatal("live checkout purged by another settlement")
	}
	if _, ok := f.store.Payment("pay-lapsed"); ok {
		t.Fatal("checkout with only lapsed holds not purged")
	}

	if _, err := f.coord.Settle(context.Background(), completed("pay-b")); err != nil {
		t.Fatalf("settle b: %v", err)
	}
	for _, id := range append(a, b...) {
		if bk, _ := f.store.Booking(id); !bk.Settled() {
			t.Fatalf("booking %s is %s/%s, want settled", id, bk.BookingStatus, bk.PaymentStatus)
		}
	}
	if p, _ := f.store.Payment("pay-b"); p.Status != models.PaymentRecordPaid {
		t.Fatalf("pay-b status %s", p.Status)
	}
}

func TestConcurrentDeliveriesSettleOnce(t *testing.T) {
	f := newFixture(t)
	f.hold("pay-1", testNow.Add(4*time.Minute), 800)

	var wg sync.WaitGroup
	results := make([]*Result, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.coord.Settle(context.Background(), completed("pay-1"))
			if err != nil {
				t.Errorf("delivery %d: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, r := range results {
		if r != nil && !r.Duplicate {
			applied++
		}
	}
	if applied != 1 {
		t.Fatalf("settlement applied %d times", applied)
	}
}

func TestSettleAfterHoldExpiredIsRejected(t *testing.T) {
	f := newFixture(t)
	// a 5-minute hold that lapsed a minute ago
	ids := f.hold("pay-1", testNow.Add(-time.Minute), 800)

	_, err := f.coord.Settle(context.Background(), completed("pay-1"))
	if !errors.Is(err, utils.ErrHoldExpired) {
		t.Fatalf("got %v, want hold expired", err)
	}
	b, _ := f.store.Booking(ids[0])
	if b.BookingStatus != models.BookingPendingPayment || b.PaymentStatus != models.PaymentPending {
		t.Fatalf("expired booking was touched: %s/%s", b.BookingStatus, b.PaymentStatus)
	}
	p, _ := f.store.Payment("pay-1")
	if p.Status != models.PaymentRecordPending {
		t.Fatalf("payment record %s", p.Status)
	}

	rejected, _ := f.events.ListByKind(context.Background(), models.EventSettlementRejected, 0)
	if len(rejected) != 1 || rejected[0].SettlementRejected.PaymentIntentID != "pi_pay-1" {
		t.Fatalf("rejection not recorded for refund: %+v", rejected)
	}
}

func TestSettleAfterReclaimIsRejected(t *testing.T) {
	f := newFixture(t)
	ids := f.hold("pay-1", testNow.Add(time.Minute), 800, 200)
	f.store.Repo().DeleteBookings(context.Background(), ids[1:])

	if _, err := f.coord.Settle(context.Background(), completed("pay-1")); !errors.Is(err, utils.ErrHoldExpired) {
		t.Fatalf("got %v, want hold expired", err)
	}
	if b, _ := f.store.Booking(ids[0]); b.BookingStatus != models.BookingPendingPayment {
		t.Fatal("partial settlement")
	}

	if _, err := f.coord.Settle(context.Background(), completed("unknown")); !errors.Is(err, utils.ErrHoldExpired) {
		t.Fatalf("unknown payment: got %v", err)
	}
}

func TestSettleSurfacesTransientErrors(t *testing.T) {
	f := newFixture(t)
	ids := f.hold("pay-1", testNow.Add(time.Minute), 800)
	f.store.FailNextTransactions(1, utils.ErrUnavailable)

	_, err := f.coord.Settle(context.Background(), completed("pay-1"))
	if !errors.Is(err, utils.ErrUnavailable) {
		t.Fatalf("got %v", err)
	}
	if len(f.events.Kinds()) != 0 {
		t.Fatal("transient failure recorded as an event")
	}
	if _, err := f.coord.Settle(context.Background(), completed("pay-1")); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if b, _ := f.store.Booking(ids[0]); !b.Settled() {
		t.Fatal("redelivery did not settle")
	}
}

func TestMarkFailedThenRetrySucceeds(t *testing.T) {
	f := newFixture(t)
	ids := f.hold("pay-1", testNow.Add(4*time.Minute), 800)
	failed := models.GatewayEvent{Type: models.GatewayPaymentFailed, PaymentID: "pay-1", PaymentIntentID: "pi_1"}

	res, err := f.coord.MarkFailed(context.Background(), failed)
	if err != nil || res.Duplicate || res.Ignored {
		t.Fatalf("mark failed: %+v %v", res, err)
	}
	if p, _ := f.store.Payment("pay-1"); p.Status != models.PaymentRecordFailed {
		t.Fatalf("status %s", p.Status)
	}
	if b, _ := f.store.Booking(ids[0]); b.BookingStatus != models.BookingPendingPayment {
		t.Fatal("failed payment must leave the hold in place")
	}

	if res, _ := f.coord.MarkFailed(context.Background(), failed); !res.Duplicate {
		t.Fatal("repeated failure not reported as duplicate")
	}

	if _, err := f.coord.Settle(context.Background(), completed("pay-1")); err != nil {
		t.Fatalf("settle after failure: %v", err)
	}
	if res, _ := f.coord.MarkFailed(context.Background(), failed); !res.Ignored {
		t.Fatal("failure after success should be ignored")
	}
	if p, _ := f.store.Payment("pay-1"); p.Status != models.PaymentRecordPaid {
		t.Fatalf("late failure overwrote paid status: %s", p.Status)
	}
}
