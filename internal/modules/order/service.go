package order

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
	"github.com/Mr-oxm/E-Commerce/internal/modules/auth"
	"github.com/Mr-oxm/E-Commerce/internal/modules/catalog"
	"github.com/Mr-oxm/E-Commerce/internal/modules/payment"
)

// CatalogStore is the slice of the catalog the ledger needs: product lookup
// and the atomic reserve/restore pair.
type CatalogStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	Reserve(ctx context.Context, productID uuid.UUID, quantity int, selection []catalog.Selection) error
	Restore(ctx context.Context, productID uuid.UUID, quantity int, selection []catalog.Selection) error
}

// Payments is the slice of the payment module the ledger needs for checkout
// linkage.
type Payments interface {
	SettleCash(ctx context.Context, amount float64) (*payment.Payment, error)
	GetByProviderRef(ctx context.Context, providerPaymentID string) (*payment.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
}

// Service is the order ledger: it owns the Order aggregate lifecycle and
// orchestrates pricing, stock reservation, payment linkage, and per-line
// status transitions.
type Service interface {
	CreateOrder(ctx context.Context, actor auth.Principal, req CheckoutRequest) (*Order, error)
	GetOrder(ctx context.Context, actor auth.Principal, orderID uuid.UUID) (*Order, error)
	GetShippingDetails(ctx context.Context, actor auth.Principal, orderID uuid.UUID) (*ShippingDetails, error)
	CancelOrder(ctx context.Context, actor auth.Principal, orderID uuid.UUID) (*Order, error)
	UpdateLineStatus(ctx context.Context, actor auth.Principal, orderID, productID uuid.UUID, status LineStatus) (*Order, error)
	RequestReturn(ctx context.Context, actor auth.Principal, orderID uuid.UUID, productIDs []uuid.UUID, reason string) (*Order, error)
	ResolveReturn(ctx context.Context, actor auth.Principal, orderID uuid.UUID, approved bool) (*Order, error)
	History(ctx context.Context, actor auth.Principal) ([]*Order, error)
	Sales(ctx context.Context, actor auth.Principal) ([]*Order, error)
}

type service struct {
	repo     Repository
	store    CatalogStore
	payments Payments
	log      *logrus.Logger
}

// NewService creates a new order service.
func NewService(repo Repository, store CatalogStore, payments Payments, log *logrus.Logger) Service {
	return &service{repo: repo, store: store, payments: payments, log: log}
}

// reservation remembers one applied stock decrement so it can be compensated.
type reservation struct {
	productID uuid.UUID
	quantity  int
	selection []catalog.Selection
}

func (s *service) CreateOrder(ctx context.Context, actor auth.Principal, req CheckoutRequest) (*Order, error) {
	if len(req.Products) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one product", apperr.ErrValidation)
	}
	if req.ShippingAddress == "" || req.PhoneNumber == "" {
		return nil, fmt.Errorf("%w: shipping address and phone number are required", apperr.ErrValidation)
	}
	method := payment.Method(strings.ToLower(req.PaymentMethod))
	if method != payment.MethodCash && method != payment.MethodCredit {
		return nil, fmt.Errorf("%w: payment method must be cash or credit", apperr.ErrValidation)
	}
	if method == payment.MethodCredit && req.PaymentID == "" {
		return nil, fmt.Errorf("%w: paymentId is required for credit orders", apperr.ErrValidation)
	}

	// Price and reserve each line in order. The reserved slice is the
	// compensation log: on any failure, everything reserved so far is
	// restored before the error goes back to the caller.
	var (
		lines       []*OrderLine
		reserved    []reservation
		totalAmount float64
	)
	rollback := func(cause error) {
		for i := len(reserved) - 1; i >= 0; i-- {
			r := reserved[i]
			if err := s.store.Restore(ctx, r.productID, r.quantity, r.selection); err != nil {
				s.log.WithError(err).WithField("product_id", r.productID).
					Error("compensating stock restore failed")
			}
		}
		if len(reserved) > 0 {
			s.log.WithError(cause).WithField("buyer_id", actor.UserID).
				Info("checkout rolled back after partial reservation")
		}
	}

	for _, item := range req.Products {
		product, err := s.store.GetProduct(ctx, item.ProductID)
		if err != nil {
			rollback(err)
			return nil, err
		}

		lp, err := catalog.ResolveLinePrice(product, item.Quantity, item.SelectedVariations)
		if err != nil {
			rollback(err)
			return nil, err
		}

		if err := s.store.Reserve(ctx, product.ID, item.Quantity, item.SelectedVariations); err != nil {
			rollback(err)
			return nil, err
		}
		reserved = append(reserved, reservation{
			productID: product.ID,
			quantity:  item.Quantity,
			selection: item.SelectedVariations,
		})

		totalAmount += lp.LineTotal
		lines = append(lines, &OrderLine{
			ID:                 uuid.New(),
			ProductID:          product.ID,
			SellerID:           product.SellerID, // seller of record, frozen at order time
			Quantity:           item.Quantity,
			Price:              lp.UnitPrice,
			SelectedVariations: lp.Selections,
			Status:             StatusPending,
		})
	}
	totalAmount = round2(totalAmount)

	pay, err := s.resolvePayment(ctx, method, req.PaymentID, totalAmount)
	if err != nil {
		rollback(err)
		return nil, err
	}

	o := &Order{
		ID:              uuid.New(),
		BuyerID:         actor.UserID,
		Lines:           lines,
		TotalAmount:     totalAmount,
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
		PaymentID:       pay.ID,
		Status:          StatusPending,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, o); err != nil {
		rollback(err)
		s.log.WithError(err).WithField("payment_id", pay.ID).
			Error("order persistence failed after payment resolution")
		return nil, err
	}
	return o, nil
}

func (s *service) resolvePayment(ctx context.Context, method payment.Method, providerRef string, total float64) (*payment.Payment, error) {
	if method == payment.MethodCash {
		return s.payments.SettleCash(ctx, total)
	}

	pay, err := s.payments.GetByProviderRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}
	if pay.Method != payment.MethodCredit {
		return nil, fmt.Errorf("%w: payment %s is not a credit payment", apperr.ErrValidation, pay.ID)
	}
	if pay.Status == payment.StatusFailed || pay.Status == payment.StatusRefunded {
		return nil, fmt.Errorf("%w: payment is %s", apperr.ErrInvalidState, pay.Status)
	}
	if math.Abs(pay.Amount-total) >= 0.01 {
		return nil, fmt.Errorf("%w: payment amount %.2f does not match order total %.2f",
			apperr.ErrValidation, pay.Amount, total)
	}
	return s.payments.MarkCompleted(ctx, pay.ID)
}

func (s *service) GetOrder(ctx context.Context, actor auth.Principal, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(o, actor); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) GetShippingDetails(ctx context.Context, actor auth.Principal, orderID uuid.UUID) (*ShippingDetails, error) {
	o, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return &ShippingDetails{
		Address:           o.ShippingAddress,
		PhoneNumber:       o.PhoneNumber,
		Status:            o.Status,
		EstimatedDelivery: o.CreatedAt.Add(7 * 24 * time.Hour),
	}, nil
}

func (s *service) CancelOrder(ctx context.Context, actor auth.Principal, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireBuyer(o, actor); err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("%w: only pending orders can be cancelled", apperr.ErrInvalidState)
	}

	for _, l := range o.Lines {
		if l.Status == StatusCancelled {
			continue // restored already
		}
		l.Status = StatusCancelled
		if err := s.store.Restore(ctx, l.ProductID, l.Quantity, l.selection()); err != nil {
			s.log.WithError(err).WithField("product_id", l.ProductID).
				Error("stock restore on cancellation failed")
		}
	}
	o.Status = StatusCancelled

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) UpdateLineStatus(ctx context.Context, actor auth.Principal, orderID, productID uuid.UUID, status LineStatus) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	line := o.lineByProduct(productID)
	if line == nil {
		return nil, fmt.Errorf("%w: product %s is not part of this order", apperr.ErrNotFound, productID)
	}
	if !sellsLine(line, actor) {
		return nil, fmt.Errorf("%w: only the seller of this product may update its status", apperr.ErrForbidden)
	}
	if line.Status.IsTerminal() || line.Status == StatusDelivered {
		return nil, fmt.Errorf("%w: line is %s; delivered lines move only through the return flow",
			apperr.ErrInvalidState, line.Status)
	}
	if !transitionAllowed(line.Status, status) {
		return nil, fmt.Errorf("%w: cannot move line from %s to %s", apperr.ErrInvalidState, line.Status, status)
	}

	line.Status = status
	if status == StatusCancelled {
		if err := s.store.Restore(ctx, line.ProductID, line.Quantity, line.selection()); err != nil {
			s.log.WithError(err).WithField("product_id", line.ProductID).
				Error("stock restore on line cancellation failed")
		}
	}
	o.recomputeStatus()

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) RequestReturn(ctx context.Context, actor auth.Principal, orderID uuid.UUID, productIDs []uuid.UUID, reason string) (*Order, error) {
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one product is required", apperr.ErrValidation)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: a return reason is required", apperr.ErrValidation)
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireBuyer(o, actor); err != nil {
		return nil, err
	}

	// Validate every named line before touching any of them.
	targets := make([]*OrderLine, 0, len(productIDs))
	for _, pid := range productIDs {
		line := o.lineByProduct(pid)
		if line == nil {
			return nil, fmt.Errorf("%w: product %s is not part of this order", apperr.ErrNotFound, pid)
		}
		if line.Status != StatusDelivered {
			return nil, fmt.Errorf("%w: only delivered lines can be returned (product %s is %s)",
				apperr.ErrInvalidState, pid, line.Status)
		}
		targets = append(targets, line)
	}

	now := time.Now().UTC()
	for _, line := range targets {
		line.Status = StatusReturnRequested
	}
	o.ReturnReason = reason
	o.ReturnRequestDate = &now
	o.recomputeStatus()

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ResolveReturn approves or rejects a pending return request. On approval,
// stock is restored for the requested lines only. A rejected line keeps the
// return_rejected status; there is no modelled path back to delivered.
func (s *service) ResolveReturn(ctx context.Context, actor auth.Principal, orderID uuid.UUID, approved bool) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireSellerOfAny(o, actor); err != nil {
		return nil, err
	}

	var requested []*OrderLine
	for _, l := range o.Lines {
		if l.Status == StatusReturnRequested {
			requested = append(requested, l)
		}
	}
	if len(requested) == 0 {
		return nil, fmt.Errorf("%w: no pending return request on this order", apperr.ErrInvalidState)
	}

	if approved {
		for _, l := range requested {
			l.Status = StatusReturnApproved
			if err := s.store.Restore(ctx, l.ProductID, l.Quantity, l.selection()); err != nil {
				s.log.WithError(err).WithField("product_id", l.ProductID).
					Error("stock restore on return approval failed")
			}
		}
		o.Status = StatusReturnApproved
		s.refundIfFullyReturned(ctx, o)
	} else {
		for _, l := range requested {
			l.Status = StatusReturnRejected
		}
		o.Status = StatusReturnRejected
	}

	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// refundIfFullyReturned flips a completed credit payment to refunded once
// every line of the order has come back (approved return or cancellation).
// Partial returns keep the payment as is; per-line refunds are not modelled.
func (s *service) refundIfFullyReturned(ctx context.Context, o *Order) {
	for _, l := range o.Lines {
		if l.Status != StatusReturnApproved && l.Status != StatusCancelled {
			return
		}
	}

	pay, err := s.payments.GetPayment(ctx, o.PaymentID)
	if err != nil {
		s.log.WithError(err).WithField("payment_id", o.PaymentID).
			Error("payment lookup on return approval failed")
		return
	}
	if pay.Method != payment.MethodCredit || pay.Status != payment.StatusCompleted {
		return
	}
	if _, err := s.payments.MarkRefunded(ctx, pay.ID); err != nil {
		s.log.WithError(err).WithField("payment_id", pay.ID).
			Error("refund on return approval failed")
	}
}

func (s *service) History(ctx context.Context, actor auth.Principal) ([]*Order, error) {
	return s.repo.ListByBuyer(ctx, actor.UserID)
}

func (s *service) Sales(ctx context.Context, actor auth.Principal) ([]*Order, error) {
	return s.repo.ListBySeller(ctx, actor.UserID)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
