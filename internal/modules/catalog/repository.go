package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines product data storage.
//
// Reserve and Restore are the only ways stock moves in response to orders.
// Both must be atomic per product: a conditional decrement that either
// applies in full or not at all, so stock can never go negative under
// concurrent checkouts. Seller-initiated stock edits go through the same
// guarded UPDATE.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, category string) ([]*Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Reserve atomically decrements stock for one cart line. For a flat
	// product selection is empty and the product counter is decremented; for
	// a variable product each selected option's counter is decremented and
	// the aggregate counter is reduced accordingly.
	Reserve(ctx context.Context, productID uuid.UUID, quantity int, selection []Selection) error

	// Restore is the inverse of Reserve. Callers are responsible for
	// restoring each reserved line at most once.
	Restore(ctx context.Context, productID uuid.UUID, quantity int, selection []Selection) error

	// SetFlatStock overwrites a flat product's stock counter (seller
	// inventory edit), using the same guarded UPDATE as Reserve.
	SetFlatStock(ctx context.Context, productID uuid.UUID, stock int) error
}
