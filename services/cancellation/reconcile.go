package cancellation

import (
	"context"
	"errors"

	bookingRepo "homeserve/database/repository/booking"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/models"
	"homeserve/utils"

	"go.uber.org/zap"
)

func (e *DefaultEngine) ReconcileRefund(ctx context.Context, refundRef, gatewayStatus string) (*models.Cancellation, error) {
	status, ok := RefundStatusFromGateway(gatewayStatus)
	if !ok {
		return nil, utils.ErrInvalidInput.With("unknown refund status "+gatewayStatus, nil)
	}

	var (
		updated *models.Cancellation
		from    models.RefundStatus
		changed bool
	)
	err := e.Repo.Transaction(ctx, func(tx bookingRepo.BookingRepository) error {
		changed = false
		c, err := tx.GetCancellationByRefund(ctx, refundRef)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return utils.ErrNotFound.With("no cancellation for refund "+refundRef, nil)
		}
		if err != nil {
			return err
		}
		updated, from = c, c.RefundStatus
		if c.RefundStatus == status || !c.RefundStatus.CanTransitionTo(status) {
			return nil
		}
		applyRefundStatus(c, status, e.now())
		changed = true
		return tx.SaveCancellation(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		if from != status {
			e.Logger.Info("refund status change ignored",
				zap.String("refundRef", refundRef),
				zap.String("from", string(from)),
				zap.String("to", string(status)))
		}
		return updated, nil
	}

	recordsRepo.Record(ctx, e.Events, e.Logger, "", []string{updated.BookingID}, models.RefundUpdated{
		CancellationID:  updated.ID,
		RefundReference: refundRef,
		From:            from,
		To:              status,
	})
	e.Logger.Info("refund reconciled",
		zap.String("refundRef", refundRef),
		zap.String("status", string(status)))
	return updated, nil
}
