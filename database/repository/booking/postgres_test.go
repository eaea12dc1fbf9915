package bookingRepo_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"homeserve/database"
	bookingRepo "homeserve/database/repository/booking"
	"homeserve/models"
	"homeserve/utils"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB connects to TEST_DATABASE_URL and resets the booking tables.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec(`TRUNCATE bookings, payment_records, cancellations, staff_assignments, staff_payments,
		services, slots, businesses, staff_profiles, provider_plans`).Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func hold(customer string, key models.SlotKey, expires time.Time) *models.Booking {
	return &models.Booking{
		ID: uuid.NewString(), CustomerID: customer, BusinessID: "biz-1",
		ServiceID: key.ServiceID, SlotID: key.SlotID, Date: key.Date, SlotTime: "9:00 AM",
		TotalAmount: 1000, BookingStatus: models.BookingPendingPayment, PaymentStatus: models.PaymentPending,
		HoldExpiresAt: &expires, TrackingStatus: models.TrackingNotStarted,
	}
}

func TestPostgresLastSeatRace(t *testing.T) {
	db := openTestDB(t)
	repo := bookingRepo.NewGormBookingRepo(db, 10*time.Second)
	ctx := context.Background()
	key := models.SlotKey{ServiceID: "svc-x", SlotID: "slot-9am", Date: "2024-05-01"}
	expires := time.Now().Add(5 * time.Minute)

	const racers = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     int
		refused int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
				n, err := tx.CountSlotOccupancy(ctx, key, time.Now())
				if err != nil {
					return err
				}
				if n >= 1 {
					return utils.ErrSlotFull
				}
				return tx.CreateBooking(ctx, hold(uuid.NewString(), key, expires))
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, utils.ErrSlotFull), errors.Is(err, utils.ErrConcurrentConflict):
				refused++
			default:
				t.Errorf("racer %d: unexpected error %v", i, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if won != 1 || refused != racers-1 {
		t.Fatalf("won=%d refused=%d, want exactly one winner", won, refused)
	}
	n, err := repo.CountSlotOccupancy(ctx, key, time.Now())
	if err != nil || n != 1 {
		t.Fatalf("occupancy = %d, %v", n, err)
	}
}

func TestPostgresDuplicateAndExpiry(t *testing.T) {
	db := openTestDB(t)
	repo := bookingRepo.NewGormBookingRepo(db, 10*time.Second)
	ctx := context.Background()
	key := models.SlotKey{ServiceID: "svc-x", SlotID: "slot-9am", Date: "2024-05-01"}
	now := time.Now().UTC()

	live := hold("cust-1", key, now.Add(5*time.Minute))
	if err := repo.CreateBooking(ctx, live); err != nil {
		t.Fatal(err)
	}
	err := repo.CreateBooking(ctx, hold("cust-1", key, now.Add(5*time.Minute)))
	if !errors.Is(err, utils.ErrDuplicateBooking) {
		t.Fatalf("second active booking: got %v, want DUPLICATE_BOOKING", err)
	}

	expired := hold("cust-2", key, now.Add(-time.Minute))
	if err := repo.CreateBooking(ctx, expired); err != nil {
		t.Fatal(err)
	}

	var reclaimed []models.Booking
	err = repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		var err error
		reclaimed, err = tx.DeleteExpiredHolds(ctx, now)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(reclaimed) != 1 || reclaimed[0].ID != expired.ID {
		t.Fatalf("reclaimed %+v, want only %s", reclaimed, expired.ID)
	}
	if _, err := repo.GetBooking(ctx, expired.ID); !errors.Is(err, bookingRepo.ErrNotFound) {
		t.Fatalf("expired hold still present: %v", err)
	}
	if _, err := repo.GetBooking(ctx, live.ID); err != nil {
		t.Fatalf("live hold removed: %v", err)
	}
}

func TestPostgresReminderMarkerIsWonOnce(t *testing.T) {
	db := openTestDB(t)
	repo := bookingRepo.NewGormBookingRepo(db, 10*time.Second)
	ctx := context.Background()

	b := hold("cust-1", models.SlotKey{ServiceID: "svc", SlotID: "slot", Date: "2024-05-01"}, time.Now().Add(time.Minute))
	b.BookingStatus, b.PaymentStatus, b.HoldExpiresAt = models.BookingConfirmed, models.PaymentPaid, nil
	if err := repo.CreateBooking(ctx, b); err != nil {
		t.Fatal(err)
	}

	first, err := repo.MarkReminderSent(ctx, b.ID)
	if err != nil || !first {
		t.Fatalf("first mark = %v, %v", first, err)
	}
	second, err := repo.MarkReminderSent(ctx, b.ID)
	if err != nil || second {
		t.Fatalf("second mark = %v, %v", second, err)
	}
}

func TestPostgresPurgeKeepsLiveCheckouts(t *testing.T) {
	db := openTestDB(t)
	repo := bookingRepo.NewGormBookingRepo(db, 10*time.Second)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := func(paymentID string, holdUntil time.Time) {
		t.Helper()
		pid := paymentID
		b := hold("cust-1", models.SlotKey{ServiceID: "svc-" + paymentID, SlotID: "slot", Date: "2024-05-01"}, holdUntil)
		b.PaymentID = &pid
		if err := repo.CreateBooking(ctx, b); err != nil {
			t.Fatal(err)
		}
		err := repo.CreatePayment(ctx, &models.PaymentRecord{
			ID: paymentID, CustomerID: "cust-1", BusinessID: "biz-1", Amount: 1000, Currency: "inr",
			Status: models.PaymentRecordPending, BookingIDs: []string{b.ID},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	seed("pay-settling", now.Add(4*time.Minute))
	seed("pay-live", now.Add(4*time.Minute))
	seed("pay-lapsed", now.Add(-time.Minute))

	n, err := repo.PurgePendingPayments(ctx, "cust-1", "pay-settling", now)
	if err != nil || n != 1 {
		t.Fatalf("purged %d, %v; want only the lapsed checkout", n, err)
	}
	if _, err := repo.GetPayment(ctx, "pay-live"); err != nil {
		t.Fatalf("live checkout purged: %v", err)
	}
	if _, err := repo.GetPayment(ctx, "pay-lapsed"); !errors.Is(err, bookingRepo.ErrNotFound) {
		t.Fatalf("lapsed checkout kept: %v", err)
	}
}
