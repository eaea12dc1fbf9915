package cart

import (
	"context"

	"homeserve/models"
)

// Store holds each customer's transient cart.
type Store interface {
	AddItem(ctx context.Context, customerID string, item models.CartItem) (*models.CartItem, error)
	List(ctx context.Context, customerID string) ([]models.CartItem, error)
	// Get resolves itemIDs in order; unknown ids are an error.
	Get(ctx context.Context, customerID string, itemIDs []string) ([]models.CartItem, error)
	Remove(ctx context.Context, customerID string, itemIDs ...string) error
	Clear(ctx context.Context, customerID string) error
}
