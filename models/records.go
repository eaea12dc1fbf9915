package models

import (
	"fmt"
	"time"
)

// EventKind names one variant of BookingEvent.
type EventKind string

const (
	EventReservationHeld    EventKind = "RESERVATION_HELD"
	EventPaymentSettled     EventKind = "PAYMENT_SETTLED"
	EventPaymentFailed      EventKind = "PAYMENT_FAILED"
	EventSettlementRejected EventKind = "SETTLEMENT_REJECTED"
	EventBookingCancelled   EventKind = "BOOKING_CANCELLED"
	EventRefundUpdated      EventKind = "REFUND_UPDATED"
	EventTrackingAdvanced   EventKind = "TRACKING_ADVANCED"
	EventHoldsReclaimed     EventKind = "HOLDS_RECLAIMED"
)

// EventPayload is implemented only by the variant types below.
type EventPayload interface {
	Kind() EventKind
}

type ReservationHeld struct {
	PaymentID   string    `bson:"paymentId" json:"paymentId"`
	BusinessID  string    `bson:"businessId" json:"businessId"`
	TotalAmount int64     `bson:"totalAmount" json:"totalAmount"`
	ExpiresAt   time.Time `bson:"expiresAt" json:"expiresAt"`
}

type PaymentSettled struct {
	PaymentID       string  `bson:"paymentId" json:"paymentId"`
	PaymentIntentID string  `bson:"paymentIntentId" json:"paymentIntentId"`
	Amount          int64   `bson:"amount" json:"amount"`
	PlatformFee     int64   `bson:"platformFee" json:"platformFee"`
	CommissionRate  float64 `bson:"commissionRate" json:"commissionRate"`
}

type PaymentFailed struct {
	PaymentID       string `bson:"paymentId" json:"paymentId"`
	PaymentIntentID string `bson:"paymentIntentId" json:"paymentIntentId"`
}

// SettlementRejected is kept for out-of-band refunds of payments that arrived too late.
type SettlementRejected struct {
	PaymentID       string `bson:"paymentId" json:"paymentId"`
	PaymentIntentID string `bson:"paymentIntentId" json:"paymentIntentId"`
	Code            string `bson:"code" json:"code"`
	Reason          string `bson:"reason" json:"reason"`
}

// BookingCancelledEvent records the fee split of a cancellation.
type BookingCancelledEvent struct {
	CancellationID     string       `bson:"cancellationId" json:"cancellationId"`
	CancellationFee    int64        `bson:"cancellationFee" json:"cancellationFee"`
	RefundAmount       int64        `bson:"refundAmount" json:"refundAmount"`
	HoursBeforeService float64      `bson:"hoursBeforeService" json:"hoursBeforeService"`
	RefundStatus       RefundStatus `bson:"refundStatus" json:"refundStatus"`
}

type RefundUpdated struct {
	CancellationID  string       `bson:"cancellationId" json:"cancellationId"`
	RefundReference string       `bson:"refundReference" json:"refundReference"`
	From            RefundStatus `bson:"from" json:"from"`
	To              RefundStatus `bson:"to" json:"to"`
}

type TrackingAdvanced struct {
	StaffID          string         `bson:"staffId" json:"staffId"`
	From             TrackingStatus `bson:"from" json:"from"`
	To               TrackingStatus `bson:"to" json:"to"`
	EarlyStartReason string         `bson:"earlyStartReason,omitempty" json:"earlyStartReason,omitempty"`
}

type HoldsReclaimed struct {
	Reclaimed      int   `bson:"reclaimed" json:"reclaimed"`
	PaymentsPurged int64 `bson:"paymentsPurged" json:"paymentsPurged"`
}

func (ReservationHeld) Kind() EventKind       { return EventReservationHeld }
func (PaymentSettled) Kind() EventKind        { return EventPaymentSettled }
func (PaymentFailed) Kind() EventKind         { return EventPaymentFailed }
func (SettlementRejected) Kind() EventKind    { return EventSettlementRejected }
func (BookingCancelledEvent) Kind() EventKind { return EventBookingCancelled }
func (RefundUpdated) Kind() EventKind         { return EventRefundUpdated }
func (TrackingAdvanced) Kind() EventKind      { return EventTrackingAdvanced }
func (HoldsReclaimed) Kind() EventKind        { return EventHoldsReclaimed }

// BookingEvent is one entry of the append-only booking event log.
// Exactly one variant field is set and it matches Kind.
type BookingEvent struct {
	ID         string    `bson:"id" json:"id"`
	Kind       EventKind `bson:"kind" json:"kind"`
	BookingIDs []string  `bson:"bookingIds" json:"bookingIds"`
	ActorID    string    `bson:"actorId,omitempty" json:"actorId,omitempty"`
	OccurredAt time.Time `bson:"occurredAt" json:"occurredAt"`

	ReservationHeld    *ReservationHeld       `bson:"reservationHeld,omitempty" json:"reservationHeld,omitempty"`
	PaymentSettled     *PaymentSettled        `bson:"paymentSettled,omitempty" json:"paymentSettled,omitempty"`
	PaymentFailed      *PaymentFailed         `bson:"paymentFailed,omitempty" json:"paymentFailed,omitempty"`
	SettlementRejected *SettlementRejected    `bson:"settlementRejected,omitempty" json:"settlementRejected,omitempty"`
	BookingCancelled   *BookingCancelledEvent `bson:"bookingCancelled,omitempty" json:"bookingCancelled,omitempty"`
	RefundUpdated      *RefundUpdated         `bson:"refundUpdated,omitempty" json:"refundUpdated,omitempty"`
	TrackingAdvanced   *TrackingAdvanced      `bson:"trackingAdvanced,omitempty" json:"trackingAdvanced,omitempty"`
	HoldsReclaimed     *HoldsReclaimed        `bson:"holdsReclaimed,omitempty" json:"holdsReclaimed,omitempty"`
}

// NewBookingEvent wraps a payload variant into a log entry.
func NewBookingEvent(actorID string, bookingIDs []string, payload EventPayload) BookingEvent {
	ev := BookingEvent{
		Kind:       payload.Kind(),
		BookingIDs: bookingIDs,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
	switch p := payload.(type) {
	case ReservationHeld:
		ev.ReservationHeld = &p
	case PaymentSettled:
		ev.PaymentSettled = &p
	case PaymentFailed:
		ev.PaymentFailed = &p
	case SettlementRejected:
		ev.SettlementRejected = &p
	case BookingCancelledEvent:
		ev.BookingCancelled = &p
	case RefundUpdated:
		ev.RefundUpdated = &p
	case TrackingAdvanced:
		ev.TrackingAdvanced = &p
	case HoldsReclaimed:
		ev.HoldsReclaimed = &p
	}
	return ev
}

// Payload returns the variant carried by the event.
func (e *BookingEvent) Payload() (EventPayload, error) {
	var found []EventPayload
	if e.ReservationHeld != nil {
		found = append(found, *e.ReservationHeld)
	}
	if e.PaymentSettled != nil {
		found = append(found, *e.PaymentSettled)
	}
	if e.PaymentFailed != nil {
		found = append(found, *e.PaymentFailed)
	}
	if e.SettlementRejected != nil {
		found = append(found, *e.SettlementRejected)
	}
	if e.BookingCancelled != nil {
		found = append(found, *e.BookingCancelled)
	}
	if e.RefundUpdated != nil {
		found = append(found, *e.RefundUpdated)
	}
	if e.TrackingAdvanced != nil {
		found = append(found, *e.TrackingAdvanced)
	}
	if e.HoldsReclaimed != nil {
		found = append(found, *e.HoldsReclaimed)
	}
	if len(found) != 1 {
		return nil, fmt.Errorf("event %s: expected one payload, found %d", e.ID, len(found))
	}
	if found[0].Kind() != e.Kind {
		return nil, fmt.Errorf("event %s: payload %s does not match kind %s", e.ID, found[0].Kind(), e.Kind)
	}
	return found[0], nil
}
