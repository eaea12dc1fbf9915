package bookingRepo

import (
	"context"

	"homeserve/models"
)

func (r *GormBookingRepo) CreateCancellation(ctx context.Context, c *models.Cancellation) error {
	return translate(ctx, r.conn(ctx).Create(c).Error)
}

func (r *GormBookingRepo) GetCancellationByBooking(ctx context.Context, bookingID string) (*models.Cancellation, error) {
	return first[models.Cancellation](ctx, r.forUpdate(ctx), "booking_id = ?", bookingID)
}

func (r *GormBookingRepo) GetCancellationByRefund(ctx context.Context, refundRef string) (*models.Cancellation, error) {
	return first[models.Cancellation](ctx, r.forUpdate(ctx), "refund_reference = ?", refundRef)
}

func (r *GormBookingRepo) SaveCancellation(ctx context.Context, c *models.Cancellation) error {
	return translate(ctx, r.conn(ctx).Save(c).Error)
}

func (r *GormBookingRepo) GetActiveAssignment(ctx context.Context, bookingID string) (*models.StaffAssignment, error) {
	return first[models.StaffAssignment](ctx, r.forUpdate(ctx), "booking_id = ? AND status IN ?", bookingID,
		[]models.AssignmentStatus{models.AssignmentPending, models.AssignmentAccepted})
}

func (r *GormBookingRepo) CreateAssignment(ctx context.Context, a *models.StaffAssignment) error {
	return translate(ctx, r.conn(ctx).Create(a).Error)
}

func (r *GormBookingRepo) SaveAssignment(ctx context.Context, a *models.StaffAssignment) error {
	return translate(ctx, r.conn(ctx).Save(a).Error)
}

func (r *GormBookingRepo) CountAcceptedAssignmentsForStaff(ctx context.Context, staffID string) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.StaffAssignment{}).
		Where("staff_id = ? AND status = ?", staffID, models.AssignmentAccepted).
		Count(&n).Error
	return n, translate(ctx, err)
}

func (r *GormBookingRepo) CreateStaffPayment(ctx context.Context, p *models.StaffPayment) error {
	return translate(ctx, r.conn(ctx).Create(p).Error)
}
