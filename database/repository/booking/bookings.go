package bookingRepo

import (
	"context"
	"time"

	"homeserve/models"

	"gorm.io/gorm/clause"
)

// CountSlotOccupancy counts confirmed bookings plus holds still live at now.
func (r *GormBookingRepo) CountSlotOccupancy(ctx context.Context, key models.SlotKey, now time.Time) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Booking{}).
		Where("service_id = ? AND slot_id = ? AND date = ?", key.ServiceID, key.SlotID, key.Date).
		Where("booking_status = ? OR (booking_status = ? AND hold_expires_at > ?)",
			models.BookingConfirmed, models.BookingPendingPayment, now).
		Count(&n).Error
	return n, translate(ctx, err)
}

// HasActiveBooking reports whether the customer already holds a non-cancelled booking for key.
func (r *GormBookingRepo) HasActiveBooking(ctx context.Context, customerID string, key models.SlotKey) (bool, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Booking{}).
		Where("customer_id = ? AND service_id = ? AND slot_id = ? AND date = ?", customerID, key.ServiceID, key.SlotID, key.Date).
		Where("booking_status <> ?", models.BookingCancelled).
		Count(&n).Error
	return n > 0, translate(ctx, err)
}

func (r *GormBookingRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	return translate(ctx, r.conn(ctx).Create(b).Error)
}

func (r *GormBookingRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return first[models.Booking](ctx, r.conn(ctx), "id = ?", id)
}

// LockBooking reads a booking and, inside a transaction, holds its row lock until commit.
func (r *GormBookingRepo) LockBooking(ctx context.Context, id string) (*models.Booking, error) {
	return first[models.Booking](ctx, r.forUpdate(ctx), "id = ?", id)
}

func (r *GormBookingRepo) SaveBooking(ctx context.Context, b *models.Booking) error {
	return translate(ctx, r.conn(ctx).Save(b).Error)
}

func (r *GormBookingRepo) SetCheckoutURL(ctx context.Context, bookingIDs []string, url string) error {
	err := r.conn(ctx).Model(&models.Booking{}).
		Where("id IN ? AND booking_status = ?", bookingIDs, models.BookingPendingPayment).
		Update("checkout_url", url).Error
	return translate(ctx, err)
}

func (r *GormBookingRepo) DeleteBookings(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return translate(ctx, r.conn(ctx).Where("id IN ?", ids).Delete(&models.Booking{}).Error)
}

// DeleteExpiredHolds removes every PENDING_PAYMENT booking whose hold lapsed
// at or before now and returns the removed rows.
func (r *GormBookingRepo) DeleteExpiredHolds(ctx context.Context, now time.Time) ([]models.Booking, error) {
	var reclaimed []models.Booking
	err := r.conn(ctx).
		Clauses(clause.Returning{}).
		Where("booking_status = ? AND hold_expires_at <= ?", models.BookingPendingPayment, now).
		Delete(&reclaimed).Error
	if err != nil {
		return nil, translate(ctx, err)
	}
	return reclaimed, nil
}

// ListReminderCandidates returns confirmed bookings on the given dates that
// have not been reminded yet.
func (r *GormBookingRepo) ListReminderCandidates(ctx context.Context, dates []string) ([]models.Booking, error) {
	var out []models.Booking
	err := r.conn(ctx).
		Where("booking_status = ? AND reminder_sent = ? AND date IN ?", models.BookingConfirmed, false, dates).
		Order("date, slot_time").
		Find(&out).Error
	return out, translate(ctx, err)
}

// MarkReminderSent flips the marker and reports whether this caller won it.
func (r *GormBookingRepo) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	res := r.conn(ctx).Model(&models.Booking{}).
		Where("id = ? AND reminder_sent = ?", id, false).
		Update("reminder_sent", true)
	if res.Error != nil {
		return false, translate(ctx, res.Error)
	}
	return res.RowsAffected == 1, nil
}
