package bookingRepo

import (
	"context"
	"time"

	"homeserve/models"
)

func (r *GormBookingRepo) CreatePayment(ctx context.Context, p *models.PaymentRecord) error {
	return translate(ctx, r.conn(ctx).Create(p).Error)
}

func (r *GormBookingRepo) GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error) {
	return first[models.PaymentRecord](ctx, r.conn(ctx), "id = ?", id)
}

func (r *GormBookingRepo) LockPayment(ctx context.Context, id string) (*models.PaymentRecord, error) {
	return first[models.PaymentRecord](ctx, r.forUpdate(ctx), "id = ?", id)
}

func (r *GormBookingRepo) SavePayment(ctx context.Context, p *models.PaymentRecord) error {
	return translate(ctx, r.conn(ctx).Save(p).Error)
}

func (r *GormBookingRepo) DeletePayment(ctx context.Context, id string) error {
	return translate(ctx, r.conn(ctx).Where("id = ?", id).Delete(&models.PaymentRecord{}).Error)
}

// PurgePendingPayments drops the customer's other PENDING checkout attempts
// that no longer back a live hold at now.
func (r *GormBookingRepo) PurgePendingPayments(ctx context.Context, customerID, exceptID string, now time.Time) (int64, error) {
	res := r.conn(ctx).
		Where("customer_id = ? AND status = ? AND id <> ?", customerID, models.PaymentRecordPending, exceptID).
		Where(`NOT EXISTS (SELECT 1 FROM bookings b WHERE b.payment_id = payment_records.id
			AND b.booking_status = ? AND b.hold_expires_at > ?)`, models.BookingPendingPayment, now).
		Delete(&models.PaymentRecord{})
	return res.RowsAffected, translate(ctx, res.Error)
}

// PurgeOrphanedPendingPayments drops PENDING records created before the
// cut-off whose bookings have all been reclaimed.
func (r *GormBookingRepo) PurgeOrphanedPendingPayments(ctx context.Context, createdBefore time.Time) (int64, error) {
	res := r.conn(ctx).
		Where("status = ? AND created_at < ?", models.PaymentRecordPending, createdBefore).
		Where("NOT EXISTS (SELECT 1 FROM bookings b WHERE b.payment_id = payment_records.id)").
		Delete(&models.PaymentRecord{})
	return res.RowsAffected, translate(ctx, res.Error)
}
