package bookingRepo

import (
	"context"
	"errors"
	"time"

	"homeserve/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// BookingRepository is the relational store for the booking lifecycle.
// Conflicts and constraint violations come back as *utils.AppError.
type BookingRepository interface {
	// Transaction runs fn inside one serializable transaction bounded by the
	// configured timeout. Any error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx BookingRepository) error) error

	// Catalog reads.
	GetService(ctx context.Context, id string) (*models.Service, error)
	GetSlot(ctx context.Context, id string) (*models.Slot, error)
	GetBusiness(ctx context.Context, id string) (*models.Business, error)
	GetActivePlan(ctx context.Context, businessID string) (*models.ProviderPlan, error)
	GetStaff(ctx context.Context, id string) (*models.StaffProfile, error)
	UpdateStaffAvailability(ctx context.Context, staffID string, availability models.StaffAvailability) error

	// Bookings.
	CountSlotOccupancy(ctx context.Context, key models.SlotKey, now time.Time) (int64, error)
	HasActiveBooking(ctx context.Context, customerID string, key models.SlotKey) (bool, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	LockBooking(ctx context.Context, id string) (*models.Booking, error)
	SaveBooking(ctx context.Context, b *models.Booking) error
	SetCheckoutURL(ctx context.Context, bookingIDs []string, url string) error
	DeleteBookings(ctx context.Context, ids []string) error
	DeleteExpiredHolds(ctx context.Context, now time.Time) ([]models.Booking, error)
	ListReminderCandidates(ctx context.Context, dates []string) ([]models.Booking, error)
	MarkReminderSent(ctx context.Context, id string) (bool, error)

	// Payment records.
	CreatePayment(ctx context.Context, p *models.PaymentRecord) error
	GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error)
	LockPayment(ctx context.Context, id string) (*models.PaymentRecord, error)
	SavePayment(ctx context.Context, p *models.PaymentRecord) error
	DeletePayment(ctx context.Context, id string) error
	PurgePendingPayments(ctx context.Context, customerID, exceptID string, now time.Time) (int64, error)
	PurgeOrphanedPendingPayments(ctx context.Context, createdBefore time.Time) (int64, error)

	// Cancellations.
	CreateCancellation(ctx context.Context, c *models.Cancellation) error
	GetCancellationByBooking(ctx context.Context, bookingID string) (*models.Cancellation, error)
	GetCancellationByRefund(ctx context.Context, refundRef string) (*models.Cancellation, error)
	SaveCancellation(ctx context.Context, c *models.Cancellation) error

	// Staff assignments.
	GetActiveAssignment(ctx context.Context, bookingID string) (*models.StaffAssignment, error)
	CreateAssignment(ctx context.Context, a *models.StaffAssignment) error
	SaveAssignment(ctx context.Context, a *models.StaffAssignment) error
	CountAcceptedAssignmentsForStaff(ctx context.Context, staffID string) (int64, error)
	CreateStaffPayment(ctx context.Context, p *models.StaffPayment) error
}
