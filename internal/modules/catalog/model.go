package catalog

import (
	"time"

	"github.com/google/uuid"
)

// PricingMode distinguishes flat-priced products from variation-priced ones.
// The two shapes are modelled as a tagged variant so the pricing branches are
// exhaustive rather than driven by optional fields.
type PricingMode string

const (
	PricingFlat     PricingMode = "flat"
	PricingVariable PricingMode = "variable"
)

// Option is one selectable value under a variation, with its own price delta
// and its own stock counter.
type Option struct {
	Name       string  `json:"name"`
	PriceDelta float64 `json:"price_delta"`
	Stock      int     `json:"stock"`
}

// Variation is a named axis of customisation (e.g. "Size") with its options.
type Variation struct {
	Name    string   `json:"name"`
	Options []Option `json:"options"`
}

// Product is a seller's listing.
//
// For a flat product, Price and Stock are authoritative. For a variable
// product, BasePrice plus the selected options' deltas gives the unit price,
// and Stock always equals the sum of every option's stock.
type Product struct {
	ID          uuid.UUID   `json:"id"`
	SellerID    uuid.UUID   `json:"seller"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    []string    `json:"category"`
	Images      []string    `json:"images,omitempty"`
	Mode        PricingMode `json:"pricing_mode"`
	Price       float64     `json:"price"`
	BasePrice   float64     `json:"base_price,omitempty"`
	Stock       int         `json:"stock"`
	Variations  []Variation `json:"variations,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Selection names one chosen option under one variation.
type Selection struct {
	Name   string `json:"name"`
	Option string `json:"option"`
}

// SelectedVariation is the immutable snapshot of a selection stored on an
// order line: the variation, the chosen option, and the option's price delta
// at order time.
type SelectedVariation struct {
	Name   string  `json:"name"`
	Option string  `json:"option"`
	Price  float64 `json:"price"`
}

// CreateProductRequest holds the data for listing a new product.
type CreateProductRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    []string    `json:"category"`
	Images      []string    `json:"images"`
	Price       float64     `json:"price"`
	BasePrice   float64     `json:"base_price"`
	Variations  []Variation `json:"variations"`
	Stock       int         `json:"stock"`
}

// TotalOptionStock sums the stock of every option across all variations.
func TotalOptionStock(variations []Variation) int {
	total := 0
	for _, v := range variations {
		for _, o := range v.Options {
			total += o.Stock
		}
	}
	return total
}

func (p *Product) findOption(variation, option string) *Option {
	for vi := range p.Variations {
		if p.Variations[vi].Name != variation {
			continue
		}
		for oi := range p.Variations[vi].Options {
			if p.Variations[vi].Options[oi].Name == option {
				return &p.Variations[vi].Options[oi]
			}
		}
	}
	return nil
}
