package models

import "time"

// StaffPayType selects how a staff member's share is computed.
type StaffPayType string

const (
	StaffPayFixed      StaffPayType = "FIXED"
	StaffPayPercentage StaffPayType = "PERCENTAGE"
)

// StaffAssignment links a booking to the staff member doing the visit.
type StaffAssignment struct {
	ID           string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BookingID    string           `gorm:"type:varchar(36);index;not null" json:"bookingId"`
	StaffID      string           `gorm:"type:varchar(64);index;not null" json:"staffId"`
	BusinessID   string           `gorm:"type:varchar(64);not null" json:"businessId"`
	Status       AssignmentStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	PaymentType  StaffPayType     `gorm:"type:varchar(16);not null" json:"paymentType"`
	PaymentValue int64            `gorm:"not null" json:"paymentValue"` // amount for FIXED, percent for PERCENTAGE
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// StaffPayment records what is owed to staff for a completed visit.
type StaffPayment struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StaffID      string    `gorm:"type:varchar(64);index;not null" json:"staffId"`
	BookingID    string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"bookingId"`
	AssignmentID string    `gorm:"type:varchar(36);not null" json:"assignmentId"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Status       string    `gorm:"type:varchar(16);not null" json:"status"` // PENDING until paid out
	CreatedAt    time.Time `json:"createdAt"`
}

// AssignRequest is a provider's request to put staff on a booking.
type AssignRequest struct {
	ProviderID   string       `json:"-"`
	BookingID    string       `json:"-"`
	StaffID      string       `json:"staffId"`
	PaymentType  StaffPayType `json:"paymentType"`
	PaymentValue int64        `json:"paymentValue"`
}

// TrackingUpdate is a staff member's request to advance field progress.
type TrackingUpdate struct {
	BookingID        string         `json:"-"`
	StaffID          string         `json:"-"`
	Target           TrackingStatus `json:"status"`
	EarlyStartReason string         `json:"earlyStartReason,omitempty"`
}
