package catalog

import (
	"fmt"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
)

// LinePrice is the outcome of resolving one cart line against a product.
type LinePrice struct {
	UnitPrice  float64
	LineTotal  float64
	Selections []SelectedVariation
}

// ResolveLinePrice validates a cart line's variation selection against the
// product and computes its price. It is a pure computation: stock sufficiency
// is the store's concern, not the resolver's.
//
// Flat products must arrive with no selection. Variable products must name
// exactly one option per declared variation.
func ResolveLinePrice(p *Product, quantity int, selection []Selection) (*LinePrice, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", apperr.ErrValidation)
	}

	switch p.Mode {
	case PricingFlat:
		if len(selection) > 0 {
			return nil, fmt.Errorf("%w: product %s has no variations", apperr.ErrInvalidSelection, p.ID)
		}
		return &LinePrice{
			UnitPrice: p.Price,
			LineTotal: round2(p.Price * float64(quantity)),
		}, nil

	case PricingVariable:
		if len(selection) != len(p.Variations) {
			return nil, fmt.Errorf("%w: product %s requires one option per variation", apperr.ErrIncompleteSelection, p.ID)
		}

		chosen := make(map[string]string, len(selection))
		for _, sel := range selection {
			if _, dup := chosen[sel.Name]; dup {
				return nil, fmt.Errorf("%w: variation %q selected twice", apperr.ErrIncompleteSelection, sel.Name)
			}
			chosen[sel.Name] = sel.Option
		}

		unit := p.BasePrice
		snapshots := make([]SelectedVariation, 0, len(p.Variations))
		for _, v := range p.Variations {
			optName, ok := chosen[v.Name]
			if !ok {
				return nil, fmt.Errorf("%w: missing selection for variation %q", apperr.ErrIncompleteSelection, v.Name)
			}
			opt := p.findOption(v.Name, optName)
			if opt == nil {
				return nil, fmt.Errorf("%w: %q under variation %q", apperr.ErrUnknownOption, optName, v.Name)
			}
			unit += opt.PriceDelta
			snapshots = append(snapshots, SelectedVariation{Name: v.Name, Option: opt.Name, Price: opt.PriceDelta})
		}

		return &LinePrice{
			UnitPrice:  round2(unit),
			LineTotal:  round2(unit * float64(quantity)),
			Selections: snapshots,
		}, nil

	default:
		return nil, fmt.Errorf("%w: product %s has unknown pricing mode %q", apperr.ErrValidation, p.ID, p.Mode)
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
