package models

import "time"

// CancellationReason is the category a requester picks when cancelling.
type CancellationReason string

const (
	ReasonChangeOfPlans    CancellationReason = "CHANGE_OF_PLANS"
	ReasonScheduleConflict CancellationReason = "SCHEDULE_CONFLICT"
	ReasonFoundAlternative CancellationReason = "FOUND_ALTERNATIVE"
	ReasonPriceConcern     CancellationReason = "PRICE_CONCERN"
	ReasonProviderIssue    CancellationReason = "PROVIDER_ISSUE"
	ReasonOther            CancellationReason = "OTHER"
)

func (r CancellationReason) Valid() bool {
	switch r {
	case ReasonChangeOfPlans, ReasonScheduleConflict, ReasonFoundAlternative,
		ReasonPriceConcern, ReasonProviderIssue, ReasonOther:
		return true
	}
	return false
}

// Cancellation is created once per cancelled booking and mutated as the refund settles.
type Cancellation struct {
	ID                 string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BookingID          string             `gorm:"type:varchar(36);uniqueIndex;not null" json:"bookingId"`
	RequesterID        string             `gorm:"type:varchar(64);not null" json:"requesterId"`
	Reason             string             `gorm:"type:text" json:"reason"`
	ReasonType         CancellationReason `gorm:"type:varchar(32);not null" json:"reasonType"`
	RefundStatus       RefundStatus       `gorm:"type:varchar(16);not null" json:"refundStatus"`
	RefundAmount       int64              `json:"refundAmount"`
	CancellationFee    int64              `json:"cancellationFee"`
	FeePercentage      int                `json:"feePercentage"`
	HoursBeforeService float64            `json:"hoursBeforeService"`
	RefundReference    *string            `gorm:"type:varchar(255);index" json:"refundReference,omitempty"`
	RefundCompletedAt  *time.Time         `json:"refundCompletedAt,omitempty"`
	Status             CancellationStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// CancelRequest carries the caller-supplied part of a cancellation.
type CancelRequest struct {
	BookingID   string             `json:"-"`
	RequesterID string             `json:"-"`
	Reason      string             `json:"reason"`
	ReasonType  CancellationReason `json:"reasonType"`
}

// CancellationQuote is the fee breakdown shown before anything irreversible happens.
type CancellationQuote struct {
	BookingID          string  `json:"bookingId"`
	TotalAmount        int64   `json:"totalAmount"`
	Paid               bool    `json:"paid"`
	HoursBeforeService float64 `json:"hoursBeforeService"`
	FeePercentage      int     `json:"feePercentage"`
	CancellationFee    int64   `json:"cancellationFee"`
	RefundAmount       int64   `json:"refundAmount"`
}

// CancelResult is returned by a cancel call, first or repeated.
type CancelResult struct {
	Cancellation     *Cancellation `json:"cancellation"`
	AlreadyCancelled bool          `json:"alreadyCancelled"`
}
