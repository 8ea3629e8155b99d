package review

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists reviews and answers the purchase check backing them.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*Review, error)
	// HasDeliveredLine reports whether the user has a delivered order line
	// for the product. Buying is not enough; the line must have arrived.
	HasDeliveredLine(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	// Exists reports whether the user already reviewed the product.
	Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}
