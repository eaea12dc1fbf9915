package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"homeserve/database/repository/booking/bookingtest"
	"homeserve/models"
	"homeserve/utils"
)

func TestSlotLedgerAdmit(t *testing.T) {
	key := models.SlotKey{ServiceID: "svc", SlotID: "slot", Date: "2024-05-01"}
	live := testNow.Add(time.Minute)
	store := bookingtest.NewStore()
	store.Seed(
		models.Booking{ID: "c", CustomerID: "a", ServiceID: "svc", SlotID: "slot", Date: "2024-05-01", BookingStatus: models.BookingConfirmed},
		models.Booking{ID: "h", CustomerID: "b", ServiceID: "svc", SlotID: "slot", Date: "2024-05-01", BookingStatus: models.BookingPendingPayment, HoldExpiresAt: &live},
	)
	repo := store.Repo()

	cases := []struct {
		capacity int
		at       time.Time
		want     error
	}{
		{capacity: -1, at: testNow, want: nil},
		{capacity: 3, at: testNow, want: nil},
		{capacity: 2, at: testNow, want: utils.ErrSlotFull},
		{capacity: 2, at: live, want: nil}, // the hold has lapsed
		{capacity: 0, at: testNow, want: utils.ErrSlotFull},
	}
	for _, tc := range cases {
		svc := &models.Service{ID: "svc", TotalBookingAllow: tc.capacity}
		err := SlotLedger{}.Admit(context.Background(), repo, svc, key, tc.at)
		if !errors.Is(err, tc.want) || (tc.want == nil && err != nil) {
			t.Errorf("capacity %d at %v: got %v, want %v", tc.capacity, tc.at, err, tc.want)
		}
	}
}
