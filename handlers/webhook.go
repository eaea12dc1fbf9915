package handlers

import (
	"errors"
	"io"
	"net/http"

	"homeserve/models"
	"homeserve/services/cancellation"
	"homeserve/services/payment"
	"homeserve/services/settlement"
	"homeserve/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = int64(65536)

// WebhookHandler receives payment gateway deliveries.
type WebhookHandler struct {
	Gateway      payment.Gateway
	Settlement   settlement.Coordinator
	Cancellation cancellation.Engine
	Logger       *zap.Logger
}

func NewWebhookHandler(g payment.Gateway, s settlement.Coordinator, e cancellation.Engine, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Gateway: g, Settlement: s, Cancellation: e, Logger: logger}
}

// StripeWebhookHandler verifies and applies one delivery. Only a bad
// signature gets a 4xx; transient failures get a 500 so the gateway
// redelivers; everything else is acknowledged.
func (h *WebhookHandler) StripeWebhookHandler(c *gin.Context) {
	logger := getLogger(c, h.Logger)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, utils.ErrorResponse{Message: "Could not read body"})
		return
	}

	ev, err := h.Gateway.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.Warn("webhook rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, utils.ErrorResponse{Message: "Invalid webhook", Code: "INVALID_SIGNATURE"})
		return
	}

	ctx := c.Request.Context()
	var (
		outcome any
		opErr   error
	)
	switch ev.Type {
	case models.GatewayCheckoutCompleted:
		outcome, opErr = h.Settlement.Settle(ctx, *ev)
	case models.GatewayPaymentFailed:
		outcome, opErr = h.Settlement.MarkFailed(ctx, *ev)
	case models.GatewayRefundUpdated:
		outcome, opErr = h.Cancellation.ReconcileRefund(ctx, ev.RefundID, ev.RefundStatus)
		if errors.Is(opErr, utils.ErrNotFound) {
			// refunds we did not start, or whose reference is not stored yet
			logger.Info("webhook: refund not tracked", zap.String("refundId", ev.RefundID))
			opErr, outcome = nil, gin.H{"ignored": true}
		}
	default:
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true, "type": ev.RawType})
		return
	}

	if opErr == nil {
		c.JSON(http.StatusOK, gin.H{"received": true, "result": outcome})
		return
	}

	ae, ok := utils.AsAppError(opErr)
	if ok && !ae.Retryable() && ae.Kind != utils.KindExternalGateway {
		// a permanent answer: redelivery would get the same one
		logger.Info("webhook: event not applied",
			zap.String("eventId", ev.ID), zap.String("type", ev.RawType), zap.String("code", ae.Code))
		c.JSON(http.StatusOK, gin.H{"received": true, "rejected": ae.Code})
		return
	}
	logger.Error("webhook: processing failed, awaiting redelivery",
		zap.String("eventId", ev.ID), zap.String("type", ev.RawType), zap.Error(opErr))
	c.JSON(http.StatusInternalServerError, utils.ErrorResponse{Message: "Processing failed", Retryable: true})
}
