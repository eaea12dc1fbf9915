package cancellation

import (
	"context"
	"errors"
	"testing"
	"time"

	"homeserve/database/repository/booking/bookingtest"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/services/notification/notificationtest"
	"homeserve/services/payment/paymenttest"
	"homeserve/utils"

	"go.uber.org/zap"
)

var testNow = time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store   *bookingtest.Store
	gateway *paymenttest.Gateway
	events  *recordsRepo.MemoryEventLog
	engine  *DefaultEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := bookingtest.NewStore()
	store.Now = func() time.Time { return testNow }
	store.Seed(models.Business{ID: "biz-1", OwnerID: "prov-1"})
	f := &fixture{store: store, gateway: &paymenttest.Gateway{}, events: recordsRepo.NewMemoryEventLog()}
	f.engine = &DefaultEngine{
		Repo:         store.Repo(),
		Gateway:      f.gateway,
		Events:       f.events,
		Notification: notificationtest.NewRecorder(),
		Logger:       zap.NewNop(),
		Location:     time.UTC,
		Now:          func() time.Time { return testNow },
	}
	return f
}

// paidBooking seeds a confirmed, paid booking starting `before` from now.
func (f *fixture) paidBooking(id string, total int64, before time.Duration) models.Booking {
	start := testNow.Add(before)
	pid := "pay-" + id
	pi := "pi_" + id
	b := models.Booking{
		ID: id, CustomerID: "cust-1", BusinessID: "biz-1", ServiceID: "svc", SlotID: "slot",
		Date: start.Format(utils.DateLayout), SlotTime: start.Format("3:04 PM"), TotalAmount: total,
		BookingStatus: models.BookingConfirmed, PaymentStatus: models.PaymentPaid, PaymentID: &pid,
		PlatformFee: total / 10, ProviderEarnings: total - total/10, TrackingStatus: models.TrackingNotStarted,
	}
	f.store.Seed(b, models.PaymentRecord{
		ID: pid, CustomerID: "cust-1", BusinessID: "biz-1", Amount: total, Status: models.PaymentRecordPaid,
		GatewayPaymentIntentID: &pi, BookingIDs: []string{id},
	})
	return b
}

func cancelReq(id string) models.CancelRequest {
	return models.CancelRequest{BookingID: id, RequesterID: "cust-1", Reason: "plans changed", ReasonType: models.ReasonChangeOfPlans}
}

func TestFeePercentageBoundaries(t *testing.T) {
	cases := []struct {
		before time.Duration
		want   int
	}{
		{30 * time.Minute, 50},
		{3*time.Hour + 59*time.Minute, 50},
		{4 * time.Hour, 25},
		{11*time.Hour + 59*time.Minute, 25},
		{12 * time.Hour, 10},
		{23*time.Hour + 59*time.Minute, 10},
		{24 * time.Hour, 0},
		{72 * time.Hour, 0},
	}
	for _, tc := range cases {
		if got := FeePercentage(tc.before.Hours()); got != tc.want {
			t.Errorf("%v before: got %d%%, want %d%%", tc.before, got, tc.want)
		}
	}
}

func TestSplitAlwaysAddsUp(t *testing.T) {
	for _, total := range []int64{1, 99, 333, 1000, 1999, 123457} {
		for _, pct := range []int{0, 10, 25, 50} {
			fee, refund := Split(total, pct)
			if fee+refund != total || fee < 0 || refund < 0 {
				t.Fatalf("Split(%d, %d) = %d + %d", total, pct, fee, refund)
			}
		}
	}
}

func TestCancelPaidBookingTenHoursOut(t *testing.T) {
	f := newFixture(t)
	f.paidBooking("b1", 1000, 10*time.Hour)

	res, err := f.engine.Cancel(context.Background(), cancelReq("b1"))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	c := res.Cancellation
	if res.AlreadyCancelled || c.FeePercentage != 25 || c.CancellationFee != 250 || c.RefundAmount != 750 {
		t.Fatalf("cancellation %+v", c)
	}
	if c.HoursBeforeService != 10 {
		t.Fatalf("hours before service = %v", c.HoursBeforeService)
	}
	if c.RefundStatus != models.RefundProcessing || c.RefundReference == nil || c.Status != models.CancellationRefundPending {
		t.Fatalf("refund state %s ref=%v status=%s", c.RefundStatus, c.RefundReference, c.Status)
	}

	b, _ := f.store.Booking("b1")
	if b.BookingStatus != models.BookingCancelled || b.PaymentStatus != models.PaymentRefunded {
		t.Fatalf("booking %s/%s", b.BookingStatus, b.PaymentStatus)
	}
	if b.ProviderEarnings != 250 || b.PlatformFee != 0 {
		t.Fatalf("earnings %d fee %d", b.ProviderEarnings, b.PlatformFee)
	}

	refunds := f.gateway.RefundCalls()
	if len(refunds) != 1 || refunds[0].Amount != 750 || refunds[0].PaymentIntentID != "pi_b1" {
		t.Fatalf("refund calls %+v", refunds)
	}
	if kinds := f.events.Kinds(); len(kinds) != 1 || kinds[0] != models.EventBookingCancelled {
		t.Fatalf("events %v", kinds)
	}
}

func TestCancelTwiceReturnsExistingRecord(t *testing.T) {
	f := newFixture(t)
	f.paidBooking("b1", 1000, 30*time.Hour)

	first, err := f.engine.Cancel(context.Background(), cancelReq("b1"))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.engine.Cancel(context.Background(), cancelReq("b1"))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.AlreadyCancelled || second.Cancellation.ID != first.Cancellation.ID {
		t.Fatalf("second cancel %+v", second)
	}
	if n := len(f.store.Cancellations()); n != 1 {
		t.Fatalf("%d cancellation records", n)
	}
	if n := len(f.gateway.RefundCalls()); n != 1 {
		t.Fatalf("%d refunds requested", n)
	}
}

func TestCancelUnpaidHold(t *testing.T) {
	f := newFixture(t)
	exp := testNow.Add(3 * time.Minute)
	start := testNow.Add(2 * time.Hour)
	f.store.Seed(models.Booking{
		ID: "hold", CustomerID: "cust-1", BusinessID: "biz-1", ServiceID: "svc", SlotID: "slot",
		Date: start.Format(utils.DateLayout), SlotTime: start.Format("3:04 PM"), TotalAmount: 700,
		BookingStatus: models.BookingPendingPayment, PaymentStatus: models.PaymentPending, HoldExpiresAt: &exp,
	})

	res, err := f.engine.Cancel(context.Background(), cancelReq("hold"))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	c := res.Cancellation
	if c.CancellationFee != 0 || c.RefundAmount != 0 || c.RefundStatus != models.RefundCancelled || c.Status != models.CancellationCompleted {
		t.Fatalf("unpaid cancellation %+v", c)
	}
	if len(f.gateway.RefundCalls()) != 0 {
		t.Fatal("refund requested for an unpaid booking")
	}
	b, _ := f.store.Booking("hold")
	if b.BookingStatus != models.BookingCancelled || b.PaymentStatus != models.PaymentPending || b.HoldExpiresAt != nil {
		t.Fatalf("booking %+v", b)
	}
}

func TestCancelRejections(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture)
		req   models.CancelRequest
		want  error
	}{
		{"missing booking", nil, cancelReq("nope"), utils.ErrNotFound},
		{
			"another customer's booking",
			func(f *fixture) { f.paidBooking("b1", 1000, 30*time.Hour) },
			models.CancelRequest{BookingID: "b1", RequesterID: "intruder"},
			utils.ErrForbidden,
		},
		{
			"completed",
			func(f *fixture) {
				b := f.paidBooking("b1", 1000, 30*time.Hour)
				b.BookingStatus = models.BookingCompleted
				f.store.Seed(b)
			},
			cancelReq("b1"),
			utils.ErrAlreadyCompleted,
		},
		{
			"service started",
			func(f *fixture) {
				b := f.paidBooking("b1", 1000, 30*time.Minute)
				b.TrackingStatus = models.TrackingServiceStarted
				f.store.Seed(b, models.StaffAssignment{ID: "a1", BookingID: "b1", StaffID: "staff-1", Status: models.AssignmentAccepted})
			},
			cancelReq("b1"),
			utils.ErrServiceInProgress,
		},
		{
			"slot already started",
			func(f *fixture) { f.paidBooking("b1", 1000, -time.Minute) },
			cancelReq("b1"),
			utils.ErrSlotInPast,
		},
		{
			"slot starting now",
			func(f *fixture) { f.paidBooking("b1", 1000, 0) },
			cancelReq("b1"),
			utils.ErrSlotInPast,
		},
		{
			"bad reason type",
			func(f *fixture) { f.paidBooking("b1", 1000, 30*time.Hour) },
			models.CancelRequest{BookingID: "b1", RequesterID: "cust-1", ReasonType: "BORED"},
			utils.ErrInvalidInput,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}
			_, err := f.engine.Cancel(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if len(f.store.Cancellations()) != 0 || len(f.gateway.RefundCalls()) != 0 {
				t.Fatal("rejected cancellation left side effects")
			}
		})
	}
}

func TestCancelOnTheWayIsStillAllowed(t *testing.T) {
	f := newFixture(t)
	b := f.paidBooking("b1", 1000, 2*time.Hour)
	b.TrackingStatus = models.TrackingProviderOnTheWay
	f.store.Seed(b,
		models.StaffAssignment{ID: "a1", BookingID: "b1", StaffID: "staff-1", Status: models.AssignmentAccepted},
		models.StaffProfile{ID: "staff-1", BusinessID: "biz-1", Availability: models.StaffBusy},
	)

	res, err := f.engine.Cancel(context.Background(), cancelReq("b1"))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Cancellation.FeePercentage != 50 || res.Cancellation.CancellationFee != 500 {
		t.Fatalf("fee %+v", res.Cancellation)
	}
	if a := f.store.Assignments()[0]; a.Status != models.AssignmentCancelled {
		t.Fatalf("assignment %s", a.Status)
	}
	if st, _ := f.store.Staff("staff-1"); st.Availability != models.StaffAvailable {
		t.Fatalf("staff availability %s", st.Availability)
	}
}

func TestCancelGatewayFailureLeavesRefundPending(t *testing.T) {
	f := newFixture(t)
	f.paidBooking("b1", 1000, 30*time.Hour)
	f.gateway.RefundErr = paymenttest.ErrDown

	res, err := f.engine.Cancel(context.Background(), cancelReq("b1"))
	if err != nil {
		t.Fatalf("cancel must succeed locally: %v", err)
	}
	if res.Cancellation.RefundStatus != models.RefundPending || res.Cancellation.RefundReference != nil {
		t.Fatalf("refund state %+v", res.Cancellation)
	}
	if b, _ := f.store.Booking("b1"); b.BookingStatus != models.BookingCancelled {
		t.Fatal("booking not cancelled")
	}
}

func TestCancelImmediateRefundSuccess(t *testing.T) {
	f := newFixture(t)
	f.paidBooking("b1", 1000, 30*time.Hour)
	f.gateway.RefundStatus = "succeeded"

	res, err := f.engine.Cancel(context.Background(), cancelReq("b1"))
	if err != nil {
		t.Fatal(err)
	}
	c := res.Cancellation
	if c.RefundStatus != models.RefundPaid || c.Status != models.CancellationCompleted || c.RefundCompletedAt == nil || c.RefundAmount != 1000 {
		t.Fatalf("cancellation %+v", c)
	}
}

func TestQuoteHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	f.paidBooking("b1", 1000, 13*time.Hour)

	q, err := f.engine.Quote(context.Background(), "b1", "cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if !q.Paid || q.FeePercentage != 10 || q.CancellationFee != 100 || q.RefundAmount != 900 {
		t.Fatalf("quote %+v", q)
	}
	if b, _ := f.store.Booking("b1"); b.BookingStatus != models.BookingConfirmed {
		t.Fatal("quote changed the booking")
	}
	if commits, _ := f.store.Stats(); commits != 0 {
		t.Fatalf("quote committed %d transactions", commits)
	}
}

func TestReconcileRefund(t *testing.T) {
	f := newFixture(t)
	f.paidBooking("b1", 1000, 30*time.Hour)
	res, err := f.engine.Cancel(context.Background(), cancelReq("b1"))
	if err != nil {
		t.Fatal(err)
	}
	ref := *res.Cancellation.RefundReference

	c, err := f.engine.ReconcileRefund(context.Background(), ref, "succeeded")
	if err != nil {
		t.Fatal(err)
	}
	if c.RefundStatus != models.RefundPaid || c.Status != models.CancellationCompleted || c.RefundCompletedAt == nil {
		t.Fatalf("reconciled %+v", c)
	}

	// replays and regressions leave the record alone
	if _, err := f.engine.ReconcileRefund(context.Background(), ref, "succeeded"); err != nil {
		t.Fatal(err)
	}
	if c, _ := f.engine.ReconcileRefund(context.Background(), ref, "failed"); c.RefundStatus != models.RefundPaid {
		t.Fatalf("paid refund regressed to %s", c.RefundStatus)
	}
	updates, _ := f.events.ListByKind(context.Background(), models.EventRefundUpdated, 0)
	if len(updates) != 1 {
		t.Fatalf("%d refund updates recorded", len(updates))
	}

	if _, err := f.engine.ReconcileRefund(context.Background(), "re_unknown", "succeeded"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("unknown refund: %v", err)
	}
}
