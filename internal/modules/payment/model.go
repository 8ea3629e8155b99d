package payment

import (
	"time"

	"github.com/google/uuid"
)

// Method is how a payment is settled.
type Method string

const (
	MethodCash   Method = "cash"   // settled out-of-band at delivery
	MethodCredit Method = "credit" // settled through the external provider
)

// Status is the lifecycle of a payment record. A payment is never deleted;
// refunded is a terminal status, not a new record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Payment records one settlement attempt for an order. Amount must equal the
// order's total at settlement time.
type Payment struct {
	ID              uuid.UUID `json:"id"`
	Amount          float64   `json:"amount"`
	Method          Method    `json:"method"`
	Status          Status    `json:"status"`
	PayPalPaymentID string    `json:"paypal_payment_id,omitempty"`
	PayPalOrderID   string    `json:"paypal_order_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
