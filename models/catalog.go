package models

import "time"

// The catalog tables are owned by the catalog and account services; this
// service reads them and only ever writes staff availability.

type Business struct {
	ID      string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OwnerID string `gorm:"type:varchar(64);index;not null" json:"ownerId"` // provider user id
	Name    string `json:"name"`
}

type Service struct {
	ID                string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	BusinessID        string `gorm:"type:varchar(64);index;not null" json:"businessId"`
	Name              string `json:"name"`
	Price             int64  `gorm:"not null" json:"price"`
	TotalBookingAllow int    `gorm:"not null;default:-1" json:"totalBookingAllow"` // -1 means unlimited
}

// Unlimited reports whether the service admits any number of bookings per slot.
func (s *Service) Unlimited() bool {
	return s.TotalBookingAllow < 0
}

type Slot struct {
	ID         string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	BusinessID string `gorm:"type:varchar(64);index;not null" json:"businessId"`
	Time       string `gorm:"type:varchar(16);not null" json:"time"` // e.g. "9:30 AM"
}

// ProviderPlan is the subscription a business is on; it carries the commission rate.
type ProviderPlan struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	BusinessID     string    `gorm:"type:varchar(64);index;not null" json:"businessId"`
	CommissionRate *float64  `json:"commissionRate,omitempty"`
	StripePriceID  *string   `json:"stripePriceId,omitempty"`
	Active         bool      `gorm:"not null" json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
}

type StaffProfile struct {
	ID                  string            `gorm:"primaryKey;type:varchar(64)" json:"id"` // the staff member's user id
	BusinessID          string            `gorm:"type:varchar(64);index;not null" json:"businessId"`
	Availability        StaffAvailability `gorm:"type:varchar(16);not null" json:"availability"`
	ManuallyUnavailable bool              `gorm:"not null;default:false" json:"manuallyUnavailable"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}
