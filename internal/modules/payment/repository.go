package payment

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for payments.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// GetByProviderRef finds a payment by the provider-issued payment id.
	GetByProviderRef(ctx context.Context, providerPaymentID string) (*Payment, error)
	UpdateProviderRef(ctx context.Context, id uuid.UUID, providerPaymentID string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	// Complete marks the payment completed and records the provider order id.
	Complete(ctx context.Context, id uuid.UUID, providerOrderID string) error
}
