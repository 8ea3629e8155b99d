package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/Mr-oxm/E-Commerce/internal/modules/catalog"
)

// LineStatus is the per-line state machine. Order-level status shares the
// same value set and is derived from the lines, never set independently
// except at creation and full cancellation.
type LineStatus string

const (
	StatusPending         LineStatus = "pending"
	StatusProcessing      LineStatus = "processing"
	StatusShipped         LineStatus = "shipped"
	StatusDelivered       LineStatus = "delivered"
	StatusCancelled       LineStatus = "cancelled"
	StatusReturnRequested LineStatus = "return_requested"
	StatusReturnApproved  LineStatus = "return_approved"
	StatusReturnRejected  LineStatus = "return_rejected"
)

// sellerTransitions is what a seller may do to a line through the status
// endpoint. The return sub-flow has its own operations and is absent here;
// delivered is reachable only from shipped and is final for this path.
var sellerTransitions = map[LineStatus][]LineStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

func transitionAllowed(from, to LineStatus) bool {
	for _, s := range sellerTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a line can no longer move through any path.
func (s LineStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusReturnApproved || s == StatusReturnRejected
}

// OrderLine is one purchased product within an order. Price and the
// variation snapshots are frozen at order creation; only Status mutates.
type OrderLine struct {
	ID                 uuid.UUID                   `json:"id"`
	ProductID          uuid.UUID                   `json:"product"`
	SellerID           uuid.UUID                   `json:"seller"`
	Quantity           int                         `json:"quantity"`
	Price              float64                     `json:"price"`
	SelectedVariations []catalog.SelectedVariation `json:"selected_variations,omitempty"`
	Status             LineStatus                  `json:"status"`
}

// selection rebuilds the reservation key for stock restoration.
func (l *OrderLine) selection() []catalog.Selection {
	if len(l.SelectedVariations) == 0 {
		return nil
	}
	sel := make([]catalog.Selection, len(l.SelectedVariations))
	for i, sv := range l.SelectedVariations {
		sel[i] = catalog.Selection{Name: sv.Name, Option: sv.Option}
	}
	return sel
}

// Order is the aggregate root. ShippingAddress and PhoneNumber are snapshot
// strings: later profile edits never alter a placed order. TotalAmount is
// immutable once set.
type Order struct {
	ID                uuid.UUID    `json:"id"`
	BuyerID           uuid.UUID    `json:"buyer"`
	Lines             []*OrderLine `json:"products"`
	TotalAmount       float64      `json:"totalAmount"`
	ShippingAddress   string       `json:"shippingAddress"`
	PhoneNumber       string       `json:"phoneNumber"`
	PaymentID         uuid.UUID    `json:"payment"`
	Status            LineStatus   `json:"status"`
	ReturnReason      string       `json:"returnReason,omitempty"`
	ReturnRequestDate *time.Time   `json:"returnRequestDate,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// recomputeStatus derives the order-level status after a line mutation.
// All-delivered and all-cancelled force the order status; any other uniform
// line status carries over; mixed orders keep whatever status they last had.
func (o *Order) recomputeStatus() {
	if len(o.Lines) == 0 {
		return
	}
	all := func(st LineStatus) bool {
		for _, l := range o.Lines {
			if l.Status != st {
				return false
			}
		}
		return true
	}
	switch {
	case all(StatusDelivered):
		o.Status = StatusDelivered
	case all(StatusCancelled):
		o.Status = StatusCancelled
	case all(o.Lines[0].Status):
		o.Status = o.Lines[0].Status
	}
}

func (o *Order) lineByProduct(productID uuid.UUID) *OrderLine {
	for _, l := range o.Lines {
		if l.ProductID == productID {
			return l
		}
	}
	return nil
}

// CheckoutLine is one cart entry in a checkout request. The declared price is
// advisory; the ledger recomputes every price server-side.
type CheckoutLine struct {
	ProductID          uuid.UUID           `json:"productId"`
	Quantity           int                 `json:"quantity"`
	Price              float64             `json:"price"`
	SelectedVariations []catalog.Selection `json:"selectedVariations,omitempty"`
}

// CheckoutRequest is the payload for creating a new order.
type CheckoutRequest struct {
	Products        []CheckoutLine `json:"products"`
	ShippingAddress string         `json:"shippingAddress"`
	PhoneNumber     string         `json:"phoneNumber"`
	PaymentMethod   string         `json:"paymentMethod"`
	// PaymentID is the provider payment id of an executed external payment;
	// required when PaymentMethod is credit.
	PaymentID string `json:"paymentId,omitempty"`
}

// ShippingDetails is the read projection for the shipping view.
type ShippingDetails struct {
	Address           string     `json:"address"`
	PhoneNumber       string     `json:"phoneNumber"`
	Status            LineStatus `json:"status"`
	EstimatedDelivery time.Time  `json:"estimatedDelivery"`
}
