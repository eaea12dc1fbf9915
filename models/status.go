package models

// BookingStatus is the lifecycle state of a Booking.
type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingConfirmed      BookingStatus = "CONFIRMED"
	BookingCancelled      BookingStatus = "CANCELLED"
	BookingCompleted      BookingStatus = "COMPLETED"
)

// PaymentStatus is the payment state carried on a Booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// PaymentRecordStatus is the state of one checkout attempt.
type PaymentRecordStatus string

const (
	PaymentRecordPending PaymentRecordStatus = "PENDING"
	PaymentRecordPaid    PaymentRecordStatus = "PAID"
	PaymentRecordFailed  PaymentRecordStatus = "FAILED"
)

// TrackingStatus is the field progress of a service visit.
type TrackingStatus string

const (
	TrackingNotStarted       TrackingStatus = "NOT_STARTED"
	TrackingBookingStarted   TrackingStatus = "BOOKING_STARTED"
	TrackingProviderOnTheWay TrackingStatus = "PROVIDER_ON_THE_WAY"
	TrackingServiceStarted   TrackingStatus = "SERVICE_STARTED"
	TrackingCompleted        TrackingStatus = "COMPLETED"
)

// RefundStatus tracks the gateway refund for a cancellation.
type RefundStatus string

const (
	RefundPending    RefundStatus = "PENDING"
	RefundProcessing RefundStatus = "PROCESSING"
	RefundPaid       RefundStatus = "PAID"
	RefundFailed     RefundStatus = "FAILED"
	RefundCancelled  RefundStatus = "CANCELLED" // nothing to refund
)

// AssignmentStatus is the state of a StaffAssignment.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "PENDING"
	AssignmentAccepted  AssignmentStatus = "ACCEPTED"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
)

// CancellationStatus summarises where a cancellation stands.
type CancellationStatus string

const (
	CancellationRefundPending CancellationStatus = "REFUND_PENDING"
	CancellationCompleted     CancellationStatus = "COMPLETED"
)

// StaffAvailability is the derived availability of a staff member.
type StaffAvailability string

const (
	StaffAvailable    StaffAvailability = "AVAILABLE"
	StaffBusy         StaffAvailability = "BUSY"
	StaffNotAvailable StaffAvailability = "NOT_AVAILABLE"
)

// transitions lists, per state, every state it may move to.
type transitions[S ~string] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (t transitions[S]) known(s S) bool {
	_, ok := t[s]
	return ok
}

var bookingTransitions = transitions[BookingStatus]{
	BookingPendingPayment: {BookingConfirmed, BookingCancelled},
	BookingConfirmed:      {BookingCancelled, BookingCompleted},
	BookingCancelled:      {},
	BookingCompleted:      {},
}

var paymentTransitions = transitions[PaymentStatus]{
	PaymentPending:  {PaymentPaid},
	PaymentPaid:     {PaymentRefunded},
	PaymentRefunded: {},
}

// A failed attempt can still be paid: the payer may retry inside the same checkout session.
var paymentRecordTransitions = transitions[PaymentRecordStatus]{
	PaymentRecordPending: {PaymentRecordPaid, PaymentRecordFailed},
	PaymentRecordFailed:  {PaymentRecordPaid},
	PaymentRecordPaid:    {},
}

// Tracking moves exactly one step forward at a time.
var trackingTransitions = transitions[TrackingStatus]{
	TrackingNotStarted:       {TrackingBookingStarted},
	TrackingBookingStarted:   {TrackingProviderOnTheWay},
	TrackingProviderOnTheWay: {TrackingServiceStarted},
	TrackingServiceStarted:   {TrackingCompleted},
	TrackingCompleted:        {},
}

var refundTransitions = transitions[RefundStatus]{
	RefundPending:    {RefundProcessing, RefundPaid, RefundFailed},
	RefundProcessing: {RefundPaid, RefundFailed},
	RefundFailed:     {RefundProcessing, RefundPaid},
	RefundPaid:       {},
	RefundCancelled:  {},
}

var assignmentTransitions = transitions[AssignmentStatus]{
	AssignmentPending:   {AssignmentAccepted, AssignmentCancelled},
	AssignmentAccepted:  {AssignmentCancelled, AssignmentCompleted},
	AssignmentCancelled: {},
	AssignmentCompleted: {},
}

func (s BookingStatus) Valid() bool { return bookingTransitions.known(s) }

// CanTransitionTo reports whether the booking lifecycle permits s -> next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return bookingTransitions.allows(s, next)
}

func (s PaymentStatus) Valid() bool { return paymentTransitions.known(s) }

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return paymentTransitions.allows(s, next)
}

func (s PaymentRecordStatus) Valid() bool { return paymentRecordTransitions.known(s) }

func (s PaymentRecordStatus) CanTransitionTo(next PaymentRecordStatus) bool {
	return paymentRecordTransitions.allows(s, next)
}

func (s TrackingStatus) Valid() bool { return trackingTransitions.known(s) }

// CanTransitionTo reports whether next is the single step after s.
func (s TrackingStatus) CanTransitionTo(next TrackingStatus) bool {
	return trackingTransitions.allows(s, next)
}

// Next returns the state following s, or false when s is terminal or unknown.
func (s TrackingStatus) Next() (TrackingStatus, bool) {
	next := trackingTransitions[s]
	if len(next) == 0 {
		return "", false
	}
	return next[0], true
}

// AtLeast reports whether s has reached other in the forward order.
func (s TrackingStatus) AtLeast(other TrackingStatus) bool {
	for cur := TrackingNotStarted; ; {
		if cur == other {
			return true
		}
		if cur == s {
			return false
		}
		n, ok := cur.Next()
		if !ok {
			return false
		}
		cur = n
	}
}

func (s RefundStatus) Valid() bool { return refundTransitions.known(s) }

func (s RefundStatus) CanTransitionTo(next RefundStatus) bool {
	return refundTransitions.allows(s, next)
}

// Settled reports whether no further refund work remains.
func (s RefundStatus) Settled() bool {
	return s == RefundPaid || s == RefundCancelled
}

func (s AssignmentStatus) Valid() bool { return assignmentTransitions.known(s) }

func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	return assignmentTransitions.allows(s, next)
}

// Active reports whether the assignment still binds staff to the booking.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentPending || s == AssignmentAccepted
}
