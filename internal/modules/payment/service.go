package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
)

// Service defines payment business logic: the two-phase external card flow,
// the local cash no-op settle, and the lookups the order ledger needs.
type Service interface {
	// CreatePayPalPayment registers a pending external payment and returns it
	// together with the URL the buyer must approve it at.
	CreatePayPalPayment(ctx context.Context, amount float64) (*Payment, string, error)

	// ExecutePayPalPayment confirms an approved payment. Executing an
	// already-completed payment is a no-op returning the cached record; the
	// provider is never re-called.
	ExecutePayPalPayment(ctx context.Context, providerPaymentID, payerID string) (*Payment, error)

	// SettleCash creates a pending cash payment. Actual settlement happens
	// out-of-band at delivery.
	SettleCash(ctx context.Context, amount float64) (*Payment, error)

	GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByProviderRef(ctx context.Context, providerPaymentID string) (*Payment, error)

	// MarkCompleted finalizes a payment during checkout linkage.
	MarkCompleted(ctx context.Context, id uuid.UUID) (*Payment, error)

	// MarkRefunded records a refund as the payment's terminal status.
	MarkRefunded(ctx context.Context, id uuid.UUID) (*Payment, error)
}

type service struct {
	repo      Repository
	gateway   Gateway
	returnURL string
	cancelURL string
	log       *logrus.Logger
}

// NewService creates a new payment service. returnURL and cancelURL are where
// the provider redirects the buyer after approval or abandonment.
func NewService(repo Repository, gateway Gateway, returnURL, cancelURL string, log *logrus.Logger) Service {
	return &service{repo: repo, gateway: gateway, returnURL: returnURL, cancelURL: cancelURL, log: log}
}

func (s *service) CreatePayPalPayment(ctx context.Context, amount float64) (*Payment, string, error) {
	if amount <= 0 {
		return nil, "", fmt.Errorf("%w: amount must be greater than 0", apperr.ErrValidation)
	}

	// Persist as pending before calling the provider so a crash mid-call
	// cannot lose the record.
	p := &Payment{
		ID:     uuid.New(),
		Amount: amount,
		Method: MethodCredit,
		Status: StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, "", err
	}

	resp, err := s.gateway.CreatePayment(ctx, amount, s.returnURL, s.cancelURL)
	if err != nil {
		s.log.WithError(err).WithField("payment_id", p.ID).Warn("paypal payment creation failed")
		_ = s.repo.UpdateStatus(ctx, p.ID, StatusFailed)
		return nil, "", fmt.Errorf("%w: %v", apperr.ErrProvider, err)
	}

	if err := s.repo.UpdateProviderRef(ctx, p.ID, resp.PaymentID); err != nil {
		return nil, "", err
	}
	p.PayPalPaymentID = resp.PaymentID
	return p, resp.ApprovalURL, nil
}

func (s *service) ExecutePayPalPayment(ctx context.Context, providerPaymentID, payerID string) (*Payment, error) {
	p, err := s.repo.GetByProviderRef(ctx, providerPaymentID)
	if err != nil {
		return nil, err
	}

	switch p.Status {
	case StatusCompleted:
		// Idempotent: the first successful execution is authoritative.
		return p, nil
	case StatusFailed, StatusRefunded:
		return nil, fmt.Errorf("%w: payment is %s", apperr.ErrInvalidState, p.Status)
	}

	resp, err := s.gateway.ExecutePayment(ctx, providerPaymentID, payerID)
	if err != nil {
		s.log.WithError(err).WithField("payment_id", p.ID).Warn("paypal payment execution failed")
		_ = s.repo.UpdateStatus(ctx, p.ID, StatusFailed)
		return nil, fmt.Errorf("%w: %v", apperr.ErrProvider, err)
	}

	if err := s.repo.Complete(ctx, p.ID, resp.OrderID); err != nil {
		return nil, err
	}
	p.Status = StatusCompleted
	p.PayPalOrderID = resp.OrderID
	return p, nil
}

func (s *service) SettleCash(ctx context.Context, amount float64) (*Payment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than 0", apperr.ErrValidation)
	}
	p := &Payment{
		ID:     uuid.New(),
		Amount: amount,
		Method: MethodCash,
		Status: StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByProviderRef(ctx context.Context, providerPaymentID string) (*Payment, error) {
	return s.repo.GetByProviderRef(ctx, providerPaymentID)
}

func (s *service) MarkCompleted(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusCompleted {
		return p, nil
	}
	if p.Status == StatusRefunded {
		return nil, fmt.Errorf("%w: payment is refunded", apperr.ErrInvalidState)
	}
	if err := s.repo.Complete(ctx, id, ""); err != nil {
		return nil, err
	}
	p.Status = StatusCompleted
	return p, nil
}

func (s *service) MarkRefunded(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: only completed payments can be refunded", apperr.ErrInvalidState)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusRefunded); err != nil {
		return nil, err
	}
	p.Status = StatusRefunded
	return p, nil
}
