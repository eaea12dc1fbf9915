package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"homeserve/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/price"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// Stripe rejects hosted checkout expiries closer than this.
const minCheckoutExpiry = 31 * time.Minute

// Metadata keys carried on sessions and payment intents.
const (
	metaPaymentID      = "paymentId"
	metaBookingIDs     = "bookingIds"
	metaBookingID      = "bookingId"
	metaCancellationID = "cancellationId"
)

// StripeConfig configures a StripeGateway.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// StripeGateway implements Gateway and PriceMetadataSource on stripe-go.
type StripeGateway struct {
	cfg    StripeConfig
	logger *zap.Logger
}

func NewStripeGateway(cfg StripeConfig, logger *zap.Logger) *StripeGateway {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &StripeGateway{cfg: cfg, logger: logger}
}

// minorUnits converts whole currency units to the gateway's smallest unit.
func minorUnits(amount int64) int64 {
	return amount * 100
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	bookingIDs := strings.Join(req.BookingIDs, ",")

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		ClientReferenceID: stripe.String(req.PaymentID),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				metaPaymentID:  req.PaymentID,
				metaBookingIDs: bookingIDs,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(metaPaymentID, req.PaymentID)
	params.AddMetadata(metaBookingIDs, bookingIDs)
	params.SetIdempotencyKey("checkout-" + req.PaymentID)

	expires := req.ExpiresAt
	if time.Until(expires) < minCheckoutExpiry {
		expires = time.Now().Add(minCheckoutExpiry)
	}
	params.ExpiresAt = stripe.Int64(expires.Unix())

	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
				UnitAmount: stripe.Int64(minorUnits(line.Amount)),
			},
			Quantity: stripe.Int64(1),
		})
	}

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	g.logger.Debug("checkout session created", zap.String("paymentId", req.PaymentID), zap.String("sessionId", s.ID))
	return &models.CheckoutSession{SessionID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, req models.RefundRequest) (*models.RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Amount:        stripe.Int64(minorUnits(req.Amount)),
	}
	params.Context = ctx
	params.AddMetadata(metaBookingID, req.BookingID)
	params.AddMetadata(metaCancellationID, req.CancellationID)
	params.SetIdempotencyKey("refund-" + req.CancellationID)

	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe refund: %w", err)
	}
	return &models.RefundResult{Reference: r.ID, Status: string(r.Status)}, nil
}

func (g *StripeGateway) PriceMetadata(ctx context.Context, priceID string) (map[string]string, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx
	p, err := price.Get(priceID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe price %s: %w", priceID, err)
	}
	return p.Metadata, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the events this service handles.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*models.GatewayEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return decodeEvent(event)
}

func decodeEvent(event stripe.Event) (*models.GatewayEvent, error) {
	out := &models.GatewayEvent{ID: event.ID, RawType: string(event.Type), Type: models.GatewayIgnored}
	if event.Data == nil {
		return out, nil
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		if s.Mode != stripe.CheckoutSessionModePayment {
			return out, nil
		}
		out.Type = models.GatewayCheckoutCompleted
		out.SessionID = s.ID
		out.PaymentID = s.Metadata[metaPaymentID]
		out.BookingIDs = splitIDs(s.Metadata[metaBookingIDs])
		if s.PaymentIntent != nil {
			out.PaymentIntentID = s.PaymentIntent.ID
		}

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.Type = models.GatewayPaymentFailed
		out.PaymentIntentID = pi.ID
		out.PaymentID = pi.Metadata[metaPaymentID]
		out.BookingIDs = splitIDs(pi.Metadata[metaBookingIDs])

	case "refund.updated", "charge.refund.updated":
		var r stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &r); err != nil {
			return nil, fmt.Errorf("decode refund: %w", err)
		}
		out.Type = models.GatewayRefundUpdated
		out.RefundID = r.ID
		out.RefundStatus = string(r.Status)
	}
	return out, nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
