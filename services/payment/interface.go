package payment

import (
	"context"
	"errors"

	"homeserve/models"
)

// ErrInvalidSignature is returned when a webhook delivery fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Gateway is the external payment processor.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error)
	CreateRefund(ctx context.Context, req models.RefundRequest) (*models.RefundResult, error)
	ParseWebhook(payload []byte, signature string) (*models.GatewayEvent, error)
}

// PriceMetadataSource resolves metadata attached to a subscription price.
type PriceMetadataSource interface {
	PriceMetadata(ctx context.Context, priceID string) (map[string]string, error)
}

// CommissionSource returns the platform commission percentage for a business.
type CommissionSource interface {
	Rate(ctx context.Context, businessID string) (float64, error)
}
