package models

import "time"

// CartItem is one service a customer intends to book, held in the cart cache.
type CartItem struct {
	ID         string    `json:"id"`
	ServiceID  string    `json:"serviceId" binding:"required"`
	SlotID     string    `json:"slotId" binding:"required"`
	Date       string    `json:"date" binding:"required"` // "YYYY-MM-DD"
	BusinessID string    `json:"businessId" binding:"required"`
	AddedAt    time.Time `json:"addedAt"`
}

// Item returns the reservation line the cart entry stands for.
func (c CartItem) Item() ReservationItem {
	return ReservationItem{ServiceID: c.ServiceID, SlotID: c.SlotID, Date: c.Date, BusinessID: c.BusinessID}
}
