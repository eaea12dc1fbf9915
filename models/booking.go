package models

import "time"

// Booking is one customer reserving one service at one slot on one date.
type Booking struct {
	ID               string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CustomerID       string         `gorm:"type:varchar(64);index;not null" json:"customerId"`
	BusinessID       string         `gorm:"type:varchar(64);index;not null" json:"businessId"`
	ServiceID        string         `gorm:"type:varchar(64);not null" json:"serviceId"`
	SlotID           string         `gorm:"type:varchar(64);not null" json:"slotId"`
	Date             string         `gorm:"type:varchar(10);not null" json:"date"`     // "YYYY-MM-DD"
	SlotTime         string         `gorm:"type:varchar(16);not null" json:"slotTime"` // denormalized from the slot, e.g. "9:30 AM"
	AddressID        string         `gorm:"type:varchar(64)" json:"addressId"`
	TotalAmount      int64          `gorm:"not null" json:"totalAmount"` // whole currency units
	BookingStatus    BookingStatus  `gorm:"type:varchar(20);index;not null" json:"bookingStatus"`
	PaymentStatus    PaymentStatus  `gorm:"type:varchar(20);not null" json:"paymentStatus"`
	PaymentID        *string        `gorm:"type:varchar(36);index" json:"paymentId,omitempty"`
	HoldExpiresAt    *time.Time     `gorm:"index" json:"holdExpiresAt,omitempty"`
	CheckoutURL      *string        `json:"checkoutUrl,omitempty"`
	PlatformFee      int64          `json:"platformFee"`
	ProviderEarnings int64          `json:"providerEarnings"`
	TrackingStatus   TrackingStatus `gorm:"type:varchar(24);not null" json:"trackingStatus"`
	EarlyStartReason *string        `json:"earlyStartReason,omitempty"`
	ReminderSent     bool           `gorm:"not null;default:false" json:"reminderSent"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// HoldActive reports whether the booking is an unexpired hold at now.
func (b *Booking) HoldActive(now time.Time) bool {
	return b.BookingStatus == BookingPendingPayment && b.HoldExpiresAt != nil && now.Before(*b.HoldExpiresAt)
}

// Settled reports whether the booking has been confirmed and paid.
func (b *Booking) Settled() bool {
	return b.BookingStatus == BookingConfirmed && b.PaymentStatus == PaymentPaid
}

// SlotKey identifies the capacity bucket a booking consumes.
type SlotKey struct {
	ServiceID string
	SlotID    string
	Date      string
}

func (b *Booking) SlotKey() SlotKey {
	return SlotKey{ServiceID: b.ServiceID, SlotID: b.SlotID, Date: b.Date}
}

// ReserveRequest is the reservation input after session resolution.
type ReserveRequest struct {
	CustomerID  string   `json:"-"`
	AddressID   string   `json:"addressId"`
	CartItemIDs []string `json:"cartItemIds"`
}

// ReservationItem is one resolved line of a reservation.
type ReservationItem struct {
	ServiceID  string `json:"serviceId"`
	SlotID     string `json:"slotId"`
	Date       string `json:"date"`
	BusinessID string `json:"businessId"`
}

// Reservation is returned once holds are placed and checkout is ready.
type Reservation struct {
	PaymentID   string    `json:"paymentId"`
	BookingIDs  []string  `json:"bookingIds"`
	TotalAmount int64     `json:"totalAmount"`
	CheckoutURL string    `json:"checkoutUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
