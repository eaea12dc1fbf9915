package models

import "time"

// PaymentRecord is one checkout attempt aggregating one or more bookings.
type PaymentRecord struct {
	ID                     string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CustomerID             string              `gorm:"type:varchar(64);index;not null" json:"customerId"`
	BusinessID             string              `gorm:"type:varchar(64);not null" json:"businessId"`
	Amount                 int64               `gorm:"not null" json:"amount"`
	Currency               string              `gorm:"type:varchar(8);not null" json:"currency"`
	Status                 PaymentRecordStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	GatewaySessionID       *string             `gorm:"type:varchar(255);index" json:"gatewaySessionId,omitempty"`
	GatewayPaymentIntentID *string             `gorm:"type:varchar(255)" json:"gatewayPaymentIntentId,omitempty"`
	BookingIDs             []string            `gorm:"serializer:json;type:text;not null" json:"bookingIds"`
	CreatedAt              time.Time           `json:"createdAt"`
	UpdatedAt              time.Time           `json:"updatedAt"`
}

// CheckoutLine is one line item of a hosted checkout.
type CheckoutLine struct {
	BookingID string
	Name      string
	Amount    int64
}

// CheckoutRequest asks the gateway for a hosted checkout page.
type CheckoutRequest struct {
	PaymentID  string
	CustomerID string
	Currency   string
	BookingIDs []string
	Lines      []CheckoutLine
	ExpiresAt  time.Time
}

// CheckoutSession is the gateway's answer to a CheckoutRequest.
type CheckoutSession struct {
	SessionID string
	URL       string
}

// RefundRequest asks the gateway to return part of a captured payment.
type RefundRequest struct {
	PaymentIntentID string
	Amount          int64
	BookingID       string
	CancellationID  string
}

// RefundResult is the gateway's immediate response to a refund request.
type RefundResult struct {
	Reference string
	Status    string // gateway status, e.g. "succeeded", "pending"
}

// GatewayEventType enumerates the gateway events this service reacts to.
type GatewayEventType string

const (
	GatewayCheckoutCompleted GatewayEventType = "checkout.completed"
	GatewayPaymentFailed     GatewayEventType = "payment.failed"
	GatewayRefundUpdated     GatewayEventType = "refund.updated"
	GatewayIgnored           GatewayEventType = "ignored"
)

// GatewayEvent is a verified, decoded webhook delivery.
type GatewayEvent struct {
	ID              string
	Type            GatewayEventType
	RawType         string
	PaymentID       string
	BookingIDs      []string
	SessionID       string
	PaymentIntentID string
	RefundID        string
	RefundStatus    string
}
