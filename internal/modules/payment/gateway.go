package payment

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Gateway is the provider-facing interface for the redirect-based card flow.
// The two calls are the two phases of the protocol: CreatePayment registers
// the authorization and yields the URL the buyer is sent to; ExecutePayment
// confirms it once the buyer has approved and returned.
type Gateway interface {
	CreatePayment(ctx context.Context, amount float64, returnURL, cancelURL string) (*ProviderPayment, error)
	ExecutePayment(ctx context.Context, providerPaymentID, payerID string) (*ProviderExecution, error)
}

// ProviderPayment is the provider's response to a payment registration.
type ProviderPayment struct {
	PaymentID   string `json:"payment_id"`
	ApprovalURL string `json:"approval_url"`
}

// ProviderExecution is the provider's response to a confirmed authorization.
type ProviderExecution struct {
	OrderID string `json:"order_id"`
	State   string `json:"state"`
}

// ── PayPal Adapter ────────────────────────────────────────────────────────────
// In production, replace the stub methods with actual PayPal REST API calls.
// PayPal API docs: https://developer.paypal.com/docs/api/payments/v1/

type paypalGateway struct {
	clientID string
	secret   string
	baseURL  string
	mode     string // sandbox | live
}

func NewPayPalGateway(clientID, secret, baseURL, mode string) Gateway {
	return &paypalGateway{clientID: clientID, secret: secret, baseURL: baseURL, mode: mode}
}

func (g *paypalGateway) CreatePayment(ctx context.Context, amount float64, returnURL, cancelURL string) (*ProviderPayment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}

	// ── PRODUCTION INTEGRATION POINT ──────────────────────────────────────────
	// 1. POST /v1/oauth2/token to get a bearer token (basic auth clientID:secret)
	// 2. POST /v1/payments/payment with intent "sale", redirect_urls from args,
	//    transactions[0].amount.total = amount
	// 3. Return the payment id and the links[] entry with rel "approval_url"
	// ──────────────────────────────────────────────────────────────────────────

	// Sandbox stub: simulate a registered payment awaiting buyer approval.
	id := fmt.Sprintf("PAYID-%s%04d", time.Now().Format("20060102150405"), rand.Intn(10000))
	return &ProviderPayment{
		PaymentID:   id,
		ApprovalURL: fmt.Sprintf("%s/checkoutnow?token=%s", g.baseURL, id),
	}, nil
}

func (g *paypalGateway) ExecutePayment(ctx context.Context, providerPaymentID, payerID string) (*ProviderExecution, error) {
	if payerID == "" {
		return nil, fmt.Errorf("payer id is required")
	}

	// ── PRODUCTION INTEGRATION POINT ──────────────────────────────────────────
	// POST /v1/payments/payment/{payment_id}/execute with { payer_id }
	// Map response state: approved -> completed, failed -> failed
	// ──────────────────────────────────────────────────────────────────────────

	// Sandbox stub: simulate a successful execution.
	orderID := fmt.Sprintf("O-%s%04d", time.Now().Format("20060102"), rand.Intn(10000))
	return &ProviderExecution{OrderID: orderID, State: "approved"}, nil
}
