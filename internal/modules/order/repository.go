package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for orders.
type Repository interface {
	// Create persists a new order and its lines atomically in a transaction.
	Create(ctx context.Context, o *Order) error

	// GetByID retrieves an order with its lines.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// ListByBuyer returns all orders placed by a buyer, newest first.
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*Order, error)

	// ListBySeller returns all orders containing at least one line sold by
	// the given seller, newest first.
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*Order, error)

	// Update persists the order's mutable state: order status, return
	// fields, and every line's status. Totals, prices and snapshots are
	// never rewritten.
	Update(ctx context.Context, o *Order) error
}
