package utils

import (
	"errors"
	"fmt"
)

// ErrorKind groups rejections by how a caller should react to them.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindForbidden        ErrorKind = "forbidden"
	KindCapacityConflict ErrorKind = "capacity_conflict" // retryable
	KindStateConflict    ErrorKind = "state_conflict"
	KindExternalGateway  ErrorKind = "external_gateway"
	KindTransient        ErrorKind = "transient" // retryable
)

// AppError is a domain rejection with a stable machine-readable code.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another *AppError by code, so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether repeating the whole operation may succeed.
func (e *AppError) Retryable() bool {
	return e.Kind == KindCapacityConflict || e.Kind == KindTransient
}

// With returns a copy carrying a more specific message and cause.
func (e *AppError) With(message string, cause error) *AppError {
	cp := *e
	if message != "" {
		cp.Message = message
	}
	cp.Err = cause
	return &cp
}

func NewAppError(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// AsAppError unwraps err into an *AppError, if it is one.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsRetryable reports whether err asks the caller to retry.
func IsRetryable(err error) bool {
	if ae, ok := AsAppError(err); ok {
		return ae.Retryable()
	}
	return false
}

const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeSlotFull           = "SLOT_FULL"
	CodeConcurrentConflict = "CONCURRENT_CONFLICT"
	CodeDuplicateBooking   = "DUPLICATE_BOOKING"
	CodeCrossBusiness      = "CROSS_BUSINESS"
	CodeBelowMinimum       = "BELOW_MINIMUM"
	CodeHoldExpired        = "HOLD_EXPIRED"
	CodeInvalidState       = "INVALID_STATE"
	CodeAlreadyCancelled   = "ALREADY_CANCELLED"
	CodeAlreadyCompleted   = "ALREADY_COMPLETED"
	CodeServiceInProgress  = "SERVICE_IN_PROGRESS"
	CodeSlotInPast         = "SLOT_IN_PAST"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeEarlyStartReason   = "EARLY_START_REASON_REQUIRED"
	CodeNotAssignedStaff   = "NOT_ASSIGNED_STAFF"
	CodeBookingCancelled   = "BOOKING_CANCELLED"
	CodeAssignmentExists   = "ASSIGNMENT_EXISTS"
	CodeGatewayFailure     = "GATEWAY_FAILURE"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

var (
	ErrInvalidInput       = NewAppError(KindValidation, CodeInvalidInput, "invalid input")
	ErrNotFound           = NewAppError(KindNotFound, CodeNotFound, "not found")
	ErrForbidden          = NewAppError(KindForbidden, CodeForbidden, "not allowed")
	ErrSlotFull           = NewAppError(KindCapacityConflict, CodeSlotFull, "this time is no longer available, choose another")
	ErrConcurrentConflict = NewAppError(KindCapacityConflict, CodeConcurrentConflict, "another request changed this slot, please retry")
	ErrDuplicateBooking   = NewAppError(KindStateConflict, CodeDuplicateBooking, "you already have a booking for this service and time")
	ErrCrossBusiness      = NewAppError(KindValidation, CodeCrossBusiness, "all items in one checkout must belong to the same business")
	ErrBelowMinimum       = NewAppError(KindValidation, CodeBelowMinimum, "order total is below the minimum")
	ErrHoldExpired        = NewAppError(KindStateConflict, CodeHoldExpired, "your payment could not be applied because the hold expired; you have not been charged a booking, contact support if charged")
	ErrInvalidState       = NewAppError(KindStateConflict, CodeInvalidState, "booking is not in the expected state")
	ErrAlreadyCancelled   = NewAppError(KindStateConflict, CodeAlreadyCancelled, "booking is already cancelled")
	ErrAlreadyCompleted   = NewAppError(KindStateConflict, CodeAlreadyCompleted, "booking is already completed")
	ErrServiceInProgress  = NewAppError(KindStateConflict, CodeServiceInProgress, "the service has already started and can no longer be cancelled")
	ErrSlotInPast         = NewAppError(KindStateConflict, CodeSlotInPast, "the scheduled time has already passed")
	ErrInvalidTransition  = NewAppError(KindStateConflict, CodeInvalidTransition, "tracking status can only move one step forward")
	ErrEarlyStartReason   = NewAppError(KindValidation, CodeEarlyStartReason, "starting this early requires a reason")
	ErrNotAssignedStaff   = NewAppError(KindForbidden, CodeNotAssignedStaff, "you are not the staff member assigned to this booking")
	ErrBookingCancelled   = NewAppError(KindStateConflict, CodeBookingCancelled, "booking has been cancelled")
	ErrAssignmentExists   = NewAppError(KindStateConflict, CodeAssignmentExists, "booking already has an active staff assignment")
	ErrGatewayFailure     = NewAppError(KindExternalGateway, CodeGatewayFailure, "payment gateway request failed")
	ErrUnavailable        = NewAppError(KindTransient, CodeUnavailable, "temporarily unavailable, please retry")
)
