package cancellation

import (
	"homeserve/models"
	"homeserve/services/payment"
)

// FeePercentage is the share of the booking kept when cancelling h hours
// before the start. Each boundary belongs to the cheaper tier.
func FeePercentage(h float64) int {
	switch {
	case h < 4:
		return 50
	case h < 12:
		return 25
	case h < 24:
		return 10
	default:
		return 0
	}
}

// Split returns the fee and refund for a paid booking.
func Split(total int64, pct int) (fee, refund int64) {
	fee = payment.Percentage(total, pct)
	return fee, total - fee
}

// RefundStatusFromGateway maps a gateway refund status onto RefundStatus.
func RefundStatusFromGateway(status string) (models.RefundStatus, bool) {
	switch status {
	case "succeeded":
		return models.RefundPaid, true
	case "pending", "requires_action":
		return models.RefundProcessing, true
	case "failed", "canceled":
		return models.RefundFailed, true
	}
	return "", false
}

func overallStatus(r models.RefundStatus) models.CancellationStatus {
	if r.Settled() {
		return models.CancellationCompleted
	}
	return models.CancellationRefundPending
}
