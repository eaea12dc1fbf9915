// File: models/device.go
package models

import "time"

// DeviceToken is a push token registered for one of a user's devices.
type DeviceToken struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"type:varchar(64);index;not null" json:"userId"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	Platform  string    `gorm:"type:varchar(16)" json:"platform"`
	UpdatedAt time.Time `json:"updatedAt"`
}
