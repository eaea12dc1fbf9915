// Package paymenttest provides a scriptable payment.Gateway for tests.
package paymenttest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"homeserve/models"
	"homeserve/services/payment"
)

// Gateway records every call and answers from its fields.
type Gateway struct {
	mu sync.Mutex

	CheckoutErr  error
	RefundErr    error
	RefundStatus string // default "pending"

	// Events maps a signature to the event ParseWebhook returns for it.
	Events map[string]*models.GatewayEvent

	Checkouts []models.CheckoutRequest
	Refunds   []models.RefundRequest
}

func (g *Gateway) CreateCheckoutSession(_ context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Checkouts = append(g.Checkouts, req)
	if g.CheckoutErr != nil {
		return nil, g.CheckoutErr
	}
	return &models.CheckoutSession{
		SessionID: "cs_test_" + req.PaymentID,
		URL:       "https://checkout.test/pay/" + req.PaymentID,
	}, nil
}

func (g *Gateway) CreateRefund(_ context.Context, req models.RefundRequest) (*models.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Refunds = append(g.Refunds, req)
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	status := g.RefundStatus
	if status == "" {
		status = "pending"
	}
	return &models.RefundResult{Reference: fmt.Sprintf("re_test_%d", len(g.Refunds)), Status: status}, nil
}

func (g *Gateway) ParseWebhook(_ []byte, signature string) (*models.GatewayEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ev, ok := g.Events[signature]
	if !ok {
		return nil, fmt.Errorf("%w: unknown test signature", payment.ErrInvalidSignature)
	}
	return ev, nil
}

// RefundCalls returns a copy of the refund requests seen so far.
func (g *Gateway) RefundCalls() []models.RefundRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.RefundRequest(nil), g.Refunds...)
}

// CheckoutCalls returns a copy of the checkout requests seen so far.
func (g *Gateway) CheckoutCalls() []models.CheckoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.CheckoutRequest(nil), g.Checkouts...)
}

// ErrDown is a convenient gateway failure.
var ErrDown = errors.New("gateway unreachable")

// FixedRate is a CommissionSource returning the same rate for every business.
type FixedRate float64

func (r FixedRate) Rate(context.Context, string) (float64, error) { return float64(r), nil }
