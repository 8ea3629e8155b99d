package order

import (
	"fmt"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
	"github.com/Mr-oxm/E-Commerce/internal/modules/auth"
)

// Authorization guard: every mutation and read of an order is gated on the
// acting principal being the buyer, or a seller of at least one line. The
// principal always arrives as an explicit argument.

func isBuyer(o *Order, p auth.Principal) bool {
	return o.BuyerID == p.UserID
}

func sellsLine(l *OrderLine, p auth.Principal) bool {
	return l.SellerID == p.UserID
}

func sellsAnyLine(o *Order, p auth.Principal) bool {
	for _, l := range o.Lines {
		if sellsLine(l, p) {
			return true
		}
	}
	return false
}

func requireBuyer(o *Order, p auth.Principal) error {
	if !isBuyer(o, p) {
		return fmt.Errorf("%w: only the buyer may perform this action", apperr.ErrForbidden)
	}
	return nil
}

func requireSellerOfAny(o *Order, p auth.Principal) error {
	if !sellsAnyLine(o, p) {
		return fmt.Errorf("%w: only a seller of this order may perform this action", apperr.ErrForbidden)
	}
	return nil
}

func requireParticipant(o *Order, p auth.Principal) error {
	if !isBuyer(o, p) && !sellsAnyLine(o, p) {
		return fmt.Errorf("%w: not a participant in this order", apperr.ErrForbidden)
	}
	return nil
}
