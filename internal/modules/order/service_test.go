package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
	"github.com/Mr-oxm/E-Commerce/internal/modules/auth"
	"github.com/Mr-oxm/E-Commerce/internal/modules/catalog"
	"github.com/Mr-oxm/E-Commerce/internal/modules/payment"
)

// mockCatalog is an in-memory CatalogStore whose Reserve applies the same
// compare-and-swap discipline as the SQL implementation: a decrement only
// succeeds when enough stock remains, under a single lock.
type mockCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]*catalog.Product
	restores []uuid.UUID
}

func newMockCatalog(products ...*catalog.Product) *mockCatalog {
	m := &mockCatalog{products: make(map[uuid.UUID]*catalog.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockCatalog) GetProduct(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", apperr.ErrNotFound, id)
	}
	clone := *p
	return &clone, nil
}

func (m *mockCatalog) Reserve(_ context.Context, productID uuid.UUID, quantity int, selection []catalog.Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %s", apperr.ErrNotFound, productID)
	}
	if len(selection) == 0 {
		if p.Stock < quantity {
			return fmt.Errorf("%w: product %s", apperr.ErrInsufficientStock, productID)
		}
		p.Stock -= quantity
		return nil
	}
	for _, sel := range selection {
		opt := optionOf(p, sel)
		if opt == nil {
			return fmt.Errorf("%w: %q", apperr.ErrUnknownOption, sel.Option)
		}
		if opt.Stock < quantity {
			return fmt.Errorf("%w: option %q", apperr.ErrInsufficientStock, sel.Option)
		}
	}
	for _, sel := range selection {
		optionOf(p, sel).Stock -= quantity
	}
	p.Stock -= quantity * len(selection)
	return nil
}

func (m *mockCatalog) Restore(_ context.Context, productID uuid.UUID, quantity int, selection []catalog.Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %s", apperr.ErrNotFound, productID)
	}
	if len(selection) == 0 {
		p.Stock += quantity
	} else {
		for _, sel := range selection {
			if opt := optionOf(p, sel); opt != nil {
				opt.Stock += quantity
			}
		}
		p.Stock += quantity * len(selection)
	}
	m.restores = append(m.restores, productID)
	return nil
}

func (m *mockCatalog) stockOf(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func optionOf(p *catalog.Product, sel catalog.Selection) *catalog.Option {
	for vi := range p.Variations {
		if p.Variations[vi].Name != sel.Name {
			continue
		}
		for oi := range p.Variations[vi].Options {
			if p.Variations[vi].Options[oi].Name == sel.Option {
				return &p.Variations[vi].Options[oi]
			}
		}
	}
	return nil
}

type mockRepo struct {
	mu        sync.Mutex
	store     map[uuid.UUID]*Order
	createErr error
}

func newMockRepo() *mockRepo { return &mockRepo{store: make(map[uuid.UUID]*Order)} }

func (m *mockRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.store[o.ID] = o
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, id)
	}
	return o, nil
}

func (m *mockRepo) ListByBuyer(_ context.Context, buyerID uuid.UUID) ([]*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Order
	for _, o := range m.store {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockRepo) ListBySeller(_ context.Context, sellerID uuid.UUID) ([]*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Order
	for _, o := range m.store {
		for _, l := range o.Lines {
			if l.SellerID == sellerID {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[o.ID]; !ok {
		return fmt.Errorf("%w: order %s", apperr.ErrNotFound, o.ID)
	}
	m.store[o.ID] = o
	return nil
}

type mockPayments struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*payment.Payment
	byRef     map[string]*payment.Payment
	completed []uuid.UUID
	refunded  []uuid.UUID
	cash      []float64
}

func newMockPayments() *mockPayments {
	return &mockPayments{
		byID:  make(map[uuid.UUID]*payment.Payment),
		byRef: make(map[string]*payment.Payment),
	}
}

func (m *mockPayments) add(p *payment.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = p
	if p.PayPalPaymentID != "" {
		m.byRef[p.PayPalPaymentID] = p
	}
}

func (m *mockPayments) SettleCash(_ context.Context, amount float64) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash = append(m.cash, amount)
	p := &payment.Payment{
		ID:     uuid.New(),
		Amount: amount,
		Method: payment.MethodCash,
		Status: payment.StatusPending,
	}
	m.byID[p.ID] = p
	return p, nil
}

func (m *mockPayments) GetByProviderRef(_ context.Context, ref string) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byRef[ref]
	if !ok {
		return nil, fmt.Errorf("%w: payment %s", apperr.ErrNotFound, ref)
	}
	return p, nil
}

func (m *mockPayments) GetPayment(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: payment %s", apperr.ErrNotFound, id)
	}
	return p, nil
}

func (m *mockPayments) MarkCompleted(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, id)
	if p, ok := m.byID[id]; ok {
		p.Status = payment.StatusCompleted
		return p, nil
	}
	return &payment.Payment{ID: id, Status: payment.StatusCompleted}, nil
}

func (m *mockPayments) MarkRefunded(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: payment %s", apperr.ErrNotFound, id)
	}
	m.refunded = append(m.refunded, id)
	p.Status = payment.StatusRefunded
	return p, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func setup(products ...*catalog.Product) (Service, *mockRepo, *mockCatalog, *mockPayments) {
	repo := newMockRepo()
	store := newMockCatalog(products...)
	payments := newMockPayments()
	svc := NewService(repo, store, payments, quietLogger())
	return svc, repo, store, payments
}

func flatProduct(sellerID uuid.UUID, price float64, stock int) *catalog.Product {
	return &catalog.Product{
		ID:       uuid.New(),
		SellerID: sellerID,
		Name:     "widget",
		Mode:     catalog.PricingFlat,
		Price:    price,
		Stock:    stock,
	}
}

func variableProduct(sellerID uuid.UUID, base float64) *catalog.Product {
	return &catalog.Product{
		ID:        uuid.New(),
		SellerID:  sellerID,
		Name:      "shirt",
		Mode:      catalog.PricingVariable,
		BasePrice: base,
		Stock:     10,
		Variations: []catalog.Variation{
			{Name: "Size", Options: []catalog.Option{
				{Name: "M", PriceDelta: 0, Stock: 5},
				{Name: "XL", PriceDelta: 3, Stock: 5},
			}},
		},
	}
}

func buyer() auth.Principal  { return auth.Principal{UserID: uuid.New()} }
func seller() auth.Principal { return auth.Principal{UserID: uuid.New()} }

func checkoutReq(lines ...CheckoutLine) CheckoutRequest {
	return CheckoutRequest{
		Products:        lines,
		ShippingAddress: "12 Main St",
		PhoneNumber:     "555-0101",
		PaymentMethod:   "cash",
	}
}

func TestCreateOrder(t *testing.T) {
	sellerA := seller()
	flat := flatProduct(sellerA.UserID, 10.50, 5)
	shirt := variableProduct(sellerA.UserID, 18)
	svc, repo, store, payments := setup(flat, shirt)
	b := buyer()

	o, err := svc.CreateOrder(context.Background(), b, checkoutReq(
		CheckoutLine{ProductID: flat.ID, Quantity: 2},
		CheckoutLine{ProductID: shirt.ID, Quantity: 1,
			SelectedVariations: []catalog.Selection{{Name: "Size", Option: "XL"}}},
	))
	require.NoError(t, err)

	assert.Equal(t, 42.00, o.TotalAmount)
	assert.Equal(t, b.UserID, o.BuyerID)
	assert.Equal(t, StatusPending, o.Status)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, 10.50, o.Lines[0].Price)
	assert.Equal(t, 21.00, o.Lines[1].Price)
	assert.Equal(t, StatusPending, o.Lines[0].Status)
	assert.Equal(t, sellerA.UserID, o.Lines[0].SellerID)
	require.Len(t, o.Lines[1].SelectedVariations, 1)
	assert.Equal(t, "XL", o.Lines[1].SelectedVariations[0].Option)

	// stock came down, a cash payment was settled, the order was persisted
	assert.Equal(t, 3, store.stockOf(flat.ID))
	assert.Equal(t, 9, store.stockOf(shirt.ID))
	require.Len(t, payments.cash, 1)
	assert.Equal(t, 42.00, payments.cash[0])
	_, ok := repo.store[o.ID]
	assert.True(t, ok)
}

func TestCreateOrderValidation(t *testing.T) {
	sellerA := seller()
	flat := flatProduct(sellerA.UserID, 5, 5)
	svc, _, _, _ := setup(flat)
	b := buyer()

	t.Run("empty cart", func(t *testing.T) {
		req := checkoutReq()
		_, err := svc.CreateOrder(context.Background(), b, req)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("missing shipping details", func(t *testing.T) {
		req := checkoutReq(CheckoutLine{ProductID: flat.ID, Quantity: 1})
		req.ShippingAddress = ""
		_, err := svc.CreateOrder(context.Background(), b, req)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown payment method", func(t *testing.T) {
		req := checkoutReq(CheckoutLine{ProductID: flat.ID, Quantity: 1})
		req.PaymentMethod = "bitcoin"
		_, err := svc.CreateOrder(context.Background(), b, req)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("credit without payment id", func(t *testing.T) {
		req := checkoutReq(CheckoutLine{ProductID: flat.ID, Quantity: 1})
		req.PaymentMethod = "credit"
		_, err := svc.CreateOrder(context.Background(), b, req)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestCreateOrderRollsBackOnInsufficientStock(t *testing.T) {
	sellerA := seller()
	first := flatProduct(sellerA.UserID, 10, 5)
	second := flatProduct(sellerA.UserID, 20, 1)
	svc, repo, store, _ := setup(first, second)

	_, err := svc.CreateOrder(context.Background(), buyer(), checkoutReq(
		CheckoutLine{ProductID: first.ID, Quantity: 3},
		CheckoutLine{ProductID: second.ID, Quantity: 2},
	))
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	// the first line's reservation was compensated
	assert.Equal(t, 5, store.stockOf(first.ID))
	assert.Equal(t, 1, store.stockOf(second.ID))
	assert.Contains(t, store.restores, first.ID)
	assert.Empty(t, repo.store)
}

func TestCreateOrderCredit(t *testing.T) {
	sellerA := seller()
	flat := flatProduct(sellerA.UserID, 21, 5)
	svc, _, store, payments := setup(flat)

	pay := &payment.Payment{
		ID:              uuid.New(),
		Amount:          42,
		Method:          payment.MethodCredit,
		Status:          payment.StatusCompleted,
		PayPalPaymentID: "PAY-123",
	}
	payments.add(pay)

	req := checkoutReq(CheckoutLine{ProductID: flat.ID, Quantity: 2})
	req.PaymentMethod = "credit"
	req.PaymentID = "PAY-123"

	o, err := svc.CreateOrder(context.Background(), buyer(), req)
	require.NoError(t, err)
	assert.Equal(t, pay.ID, o.PaymentID)
	assert.Equal(t, []uuid.UUID{pay.ID}, payments.completed)

	t.Run("amount mismatch rolls back stock", func(t *testing.T) {
		payments.add(&payment.Payment{
			ID:              uuid.New(),
			Amount:          10,
			Method:          payment.MethodCredit,
			Status:          payment.StatusCompleted,
			PayPalPaymentID: "PAY-456",
		})
		before := store.stockOf(flat.ID)

		bad := checkoutReq(CheckoutLine{ProductID: flat.ID, Quantity: 2})
		bad.PaymentMethod = "credit"
		bad.PaymentID = "PAY-456"
		_, err := svc.CreateOrder(context.Background(), buyer(), bad)
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, before, store.stockOf(flat.ID))
	})

	t.Run("failed payment rejected", func(t *testing.T) {
		payments.add(&payment.Payment{
			ID:              uuid.New(),
			Amount:          42,
			Method:          payment.MethodCredit,
			Status:          payment.StatusFailed,
			PayPalPaymentID: "PAY-789",
		})
		bad := checkoutReq(CheckoutLine{ProductID: flat.ID, Quantity: 2})
		bad.PaymentMethod = "credit"
		bad.PaymentID = "PAY-789"
		_, err := svc.CreateOrder(context.Background(), buyer(), bad)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})
}

func TestCreateOrderRollsBackOnPersistFailure(t *testing.T) {
	sellerA := seller()
	flat := flatProduct(sellerA.UserID, 10, 5)
	svc, repo, store, _ := setup(flat)
	// The postgres repository reports a reused payment as ErrValidation.
	repo.createErr = fmt.Errorf("%w: payment already attached to an order", apperr.ErrValidation)

	_, err := svc.CreateOrder(context.Background(), buyer(), checkoutReq(
		CheckoutLine{ProductID: flat.ID, Quantity: 2},
	))
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 5, store.stockOf(flat.ID))
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert order: %w", &pq.Error{Code: "23505"})
	assert.True(t, isUniqueViolation(wrapped))

	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("duplicate key value violates unique constraint")))
	assert.False(t, isUniqueViolation(nil))
}

func TestConcurrentCheckoutLastUnit(t *testing.T) {
	sellerA := seller()
	flat := flatProduct(sellerA.UserID, 10, 1)
	svc, _, store, _ := setup(flat)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), buyer(), checkoutReq(
				CheckoutLine{ProductID: flat.ID, Quantity: 1},
			))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, stockouts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, apperr.ErrInsufficientStock):
			stockouts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, stockouts)
	assert.Equal(t, 0, store.stockOf(flat.ID))
}

func placedOrder(t *testing.T, svc Service, b auth.Principal, lines ...CheckoutLine) *Order {
	t.Helper()
	o, err := svc.CreateOrder(context.Background(), b, checkoutReq(lines...))
	require.NoError(t, err)
	return o
}

func TestCancelOrder(t *testing.T) {
	sellerA := seller()
	flat := flatProduct(sellerA.UserID, 10, 5)
	svc, _, store, _ := setup(flat)
	b := buyer()
	o := placedOrder(t, svc, b, CheckoutLine{ProductID: flat.ID, Quantity: 2})
	require.Equal(t, 3, store.stockOf(flat.ID))

	t.Run("only the buyer", func(t *testing.T) {
		_, err := svc.CancelOrder(context.Background(), seller(), o.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("buyer cancels pending order", func(t *testing.T) {
		cancelled, err := svc.CancelOrder(context.Background(), b, o.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		for _, l := range cancelled.Lines {
			assert.Equal(t, StatusCancelled, l.Status)
		}
		assert.Equal(t, 5, store.stockOf(flat.ID))
	})

	t.Run("cannot cancel twice", func(t *testing.T) {
		_, err := svc.CancelOrder(context.Background(), b, o.ID)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})
}

func TestUpdateLineStatus(t *testing.T) {
	sellerA := seller()
	sellerB := seller()
	first := flatProduct(sellerA.UserID, 10, 5)
	second := flatProduct(sellerB.UserID, 20, 5)
	svc, _, store, _ := setup(first, second)
	b := buyer()
	o := placedOrder(t, svc, b,
		CheckoutLine{ProductID: first.ID, Quantity: 1},
		CheckoutLine{ProductID: second.ID, Quantity: 1},
	)

	t.Run("only the line's seller", func(t *testing.T) {
		_, err := svc.UpdateLineStatus(context.Background(), sellerB, o.ID, first.ID, StatusProcessing)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		_, err = svc.UpdateLineStatus(context.Background(), b, o.ID, first.ID, StatusProcessing)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("illegal jump", func(t *testing.T) {
		_, err := svc.UpdateLineStatus(context.Background(), sellerA, o.ID, first.ID, StatusDelivered)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("walk a line to delivered", func(t *testing.T) {
		for _, next := range []LineStatus{StatusProcessing, StatusShipped, StatusDelivered} {
			updated, err := svc.UpdateLineStatus(context.Background(), sellerA, o.ID, first.ID, next)
			require.NoError(t, err)
			assert.Equal(t, next, updated.lineByProduct(first.ID).Status)
		}
		// the other line is still pending, so the order status is mixed
		got, err := svc.GetOrder(context.Background(), b, o.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, got.Status)
	})

	t.Run("delivered line is frozen", func(t *testing.T) {
		_, err := svc.UpdateLineStatus(context.Background(), sellerA, o.ID, first.ID, StatusShipped)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("seller cancellation restores stock", func(t *testing.T) {
		before := store.stockOf(second.ID)
		updated, err := svc.UpdateLineStatus(context.Background(), sellerB, o.ID, second.ID, StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, updated.lineByProduct(second.ID).Status)
		assert.Equal(t, before+1, store.stockOf(second.ID))
	})
}

func TestOrderStatusDerivation(t *testing.T) {
	sellerA := seller()
	first := flatProduct(sellerA.UserID, 10, 5)
	second := flatProduct(sellerA.UserID, 20, 5)
	svc, _, _, _ := setup(first, second)
	b := buyer()
	o := placedOrder(t, svc, b,
		CheckoutLine{ProductID: first.ID, Quantity: 1},
		CheckoutLine{ProductID: second.ID, Quantity: 1},
	)

	walk := func(productID uuid.UUID, statuses ...LineStatus) *Order {
		var latest *Order
		for _, st := range statuses {
			var err error
			latest, err = svc.UpdateLineStatus(context.Background(), sellerA, o.ID, productID, st)
			require.NoError(t, err)
		}
		return latest
	}

	latest := walk(first.ID, StatusProcessing, StatusShipped, StatusDelivered)
	assert.Equal(t, StatusPending, latest.Status, "mixed lines keep the previous order status")

	latest = walk(second.ID, StatusProcessing, StatusShipped, StatusDelivered)
	assert.Equal(t, StatusDelivered, latest.Status, "all delivered forces the order status")
}

func deliveredOrder(t *testing.T, svc Service, s auth.Principal, b auth.Principal, o *Order) *Order {
	t.Helper()
	var latest *Order
	for _, l := range o.Lines {
		for _, st := range []LineStatus{StatusProcessing, StatusShipped, StatusDelivered} {
			var err error
			latest, err = svc.UpdateLineStatus(context.Background(), s, o.ID, l.ProductID, st)
			require.NoError(t, err)
		}
	}
	return latest
}

func TestReturnFlow(t *testing.T) {
	sellerA := seller()
	first := flatProduct(sellerA.UserID, 10, 5)
	second := flatProduct(sellerA.UserID, 20, 5)

	t.Run("request requires delivered lines", func(t *testing.T) {
		svc, _, _, _ := setup(first, second)
		b := buyer()
		o := placedOrder(t, svc, b, CheckoutLine{ProductID: first.ID, Quantity: 1})
		_, err := svc.RequestReturn(context.Background(), b, o.ID, []uuid.UUID{first.ID}, "damaged")
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("approve restores requested lines only", func(t *testing.T) {
		svc, _, store, _ := setup(first, second)
		b := buyer()
		o := placedOrder(t, svc, b,
			CheckoutLine{ProductID: first.ID, Quantity: 2},
			CheckoutLine{ProductID: second.ID, Quantity: 1},
		)
		deliveredOrder(t, svc, sellerA, b, o)

		requested, err := svc.RequestReturn(context.Background(), b, o.ID, []uuid.UUID{first.ID}, "damaged")
		require.NoError(t, err)
		assert.Equal(t, StatusReturnRequested, requested.lineByProduct(first.ID).Status)
		assert.Equal(t, StatusDelivered, requested.lineByProduct(second.ID).Status)
		assert.Equal(t, "damaged", requested.ReturnReason)
		require.NotNil(t, requested.ReturnRequestDate)
		assert.WithinDuration(t, time.Now(), *requested.ReturnRequestDate, time.Minute)

		firstBefore := store.stockOf(first.ID)
		secondBefore := store.stockOf(second.ID)
		resolved, err := svc.ResolveReturn(context.Background(), sellerA, o.ID, true)
		require.NoError(t, err)
		assert.Equal(t, StatusReturnApproved, resolved.lineByProduct(first.ID).Status)
		assert.Equal(t, StatusDelivered, resolved.lineByProduct(second.ID).Status)
		assert.Equal(t, StatusReturnApproved, resolved.Status)
		assert.Equal(t, firstBefore+2, store.stockOf(first.ID))
		assert.Equal(t, secondBefore, store.stockOf(second.ID))
	})

	t.Run("reject keeps stock", func(t *testing.T) {
		svc, _, store, _ := setup(first, second)
		b := buyer()
		o := placedOrder(t, svc, b, CheckoutLine{ProductID: first.ID, Quantity: 1})
		deliveredOrder(t, svc, sellerA, b, o)

		_, err := svc.RequestReturn(context.Background(), b, o.ID, []uuid.UUID{first.ID}, "changed my mind")
		require.NoError(t, err)

		before := store.stockOf(first.ID)
		resolved, err := svc.ResolveReturn(context.Background(), sellerA, o.ID, false)
		require.NoError(t, err)
		assert.Equal(t, StatusReturnRejected, resolved.lineByProduct(first.ID).Status)
		assert.Equal(t, StatusReturnRejected, resolved.Status)
		assert.Equal(t, before, store.stockOf(first.ID))
	})

	t.Run("resolve without a request", func(t *testing.T) {
		svc, _, _, _ := setup(first, second)
		b := buyer()
		o := placedOrder(t, svc, b, CheckoutLine{ProductID: first.ID, Quantity: 1})
		_, err := svc.ResolveReturn(context.Background(), sellerA, o.ID, true)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("only the buyer requests", func(t *testing.T) {
		svc, _, _, _ := setup(first, second)
		b := buyer()
		o := placedOrder(t, svc, b, CheckoutLine{ProductID: first.ID, Quantity: 1})
		deliveredOrder(t, svc, sellerA, b, o)
		_, err := svc.RequestReturn(context.Background(), sellerA, o.ID, []uuid.UUID{first.ID}, "nope")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestReturnApprovalRefundsCreditPayment(t *testing.T) {
	sellerA := seller()

	creditOrder := func(t *testing.T, svc Service, payments *mockPayments, b auth.Principal, p *catalog.Product, qty int) (*Order, *payment.Payment) {
		t.Helper()
		pay := &payment.Payment{
			ID:              uuid.New(),
			Amount:          float64(qty) * p.Price,
			Method:          payment.MethodCredit,
			Status:          payment.StatusCompleted,
			PayPalPaymentID: "PAY-001",
		}
		payments.add(pay)
		req := checkoutReq(CheckoutLine{ProductID: p.ID, Quantity: qty})
		req.PaymentMethod = "credit"
		req.PaymentID = "PAY-001"
		o, err := svc.CreateOrder(context.Background(), b, req)
		require.NoError(t, err)
		return o, pay
	}

	t.Run("full return refunds the payment", func(t *testing.T) {
		flat := flatProduct(sellerA.UserID, 10, 5)
		svc, _, _, payments := setup(flat)
		b := buyer()
		o, pay := creditOrder(t, svc, payments, b, flat, 2)
		deliveredOrder(t, svc, sellerA, b, o)

		_, err := svc.RequestReturn(context.Background(), b, o.ID, []uuid.UUID{flat.ID}, "damaged")
		require.NoError(t, err)
		_, err = svc.ResolveReturn(context.Background(), sellerA, o.ID, true)
		require.NoError(t, err)

		assert.Equal(t, []uuid.UUID{pay.ID}, payments.refunded)
		assert.Equal(t, payment.StatusRefunded, pay.Status)
	})

	t.Run("partial return keeps the payment", func(t *testing.T) {
		flat := flatProduct(sellerA.UserID, 10, 5)
		other := flatProduct(sellerA.UserID, 10, 5)
		svc, _, _, payments := setup(flat, other)
		b := buyer()

		pay := &payment.Payment{
			ID:              uuid.New(),
			Amount:          20,
			Method:          payment.MethodCredit,
			Status:          payment.StatusCompleted,
			PayPalPaymentID: "PAY-002",
		}
		payments.add(pay)
		req := checkoutReq(
			CheckoutLine{ProductID: flat.ID, Quantity: 1},
			CheckoutLine{ProductID: other.ID, Quantity: 1},
		)
		req.PaymentMethod = "credit"
		req.PaymentID = "PAY-002"
		o, err := svc.CreateOrder(context.Background(), b, req)
		require.NoError(t, err)
		deliveredOrder(t, svc, sellerA, b, o)

		_, err = svc.RequestReturn(context.Background(), b, o.ID, []uuid.UUID{flat.ID}, "damaged")
		require.NoError(t, err)
		_, err = svc.ResolveReturn(context.Background(), sellerA, o.ID, true)
		require.NoError(t, err)

		assert.Empty(t, payments.refunded)
		assert.Equal(t, payment.StatusCompleted, pay.Status)
	})

	t.Run("cash orders are never refunded", func(t *testing.T) {
		flat := flatProduct(sellerA.UserID, 10, 5)
		svc, _, _, payments := setup(flat)
		b := buyer()
		o := placedOrder(t, svc, b, CheckoutLine{ProductID: flat.ID, Quantity: 1})
		deliveredOrder(t, svc, sellerA, b, o)

		_, err := svc.RequestReturn(context.Background(), b, o.ID, []uuid.UUID{flat.ID}, "damaged")
		require.NoError(t, err)
		_, err = svc.ResolveReturn(context.Background(), sellerA, o.ID, true)
		require.NoError(t, err)

		assert.Empty(t, payments.refunded)
	})
}

func TestGetOrderAccess(t *testing.T) {
	sellerA := seller()
	flat := flatProduct(sellerA.UserID, 10, 5)
	svc, _, _, _ := setup(flat)
	b := buyer()
	o := placedOrder(t, svc, b, CheckoutLine{ProductID: flat.ID, Quantity: 1})

	_, err := svc.GetOrder(context.Background(), b, o.ID)
	assert.NoError(t, err)
	_, err = svc.GetOrder(context.Background(), sellerA, o.ID)
	assert.NoError(t, err)
	_, err = svc.GetOrder(context.Background(), buyer(), o.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	t.Run("shipping details", func(t *testing.T) {
		details, err := svc.GetShippingDetails(context.Background(), b, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "12 Main St", details.Address)
		assert.Equal(t, "555-0101", details.PhoneNumber)
	})
}
