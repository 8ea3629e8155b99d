// Package apperr defines the sentinel errors shared by every module and their
// mapping onto HTTP status codes. Services wrap these with fmt.Errorf("%w")
// so handlers can classify failures with errors.Is instead of matching on
// message text.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation marks malformed or missing request fields.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an unknown product, order, user or payment.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an actor lacking authorization for the operation.
	ErrForbidden = errors.New("not authorized")
	// ErrInsufficientStock marks a reservation against exhausted stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidSelection marks a variation selection sent for a flat-priced product.
	ErrInvalidSelection = errors.New("invalid variation selection")
	// ErrIncompleteSelection marks a selection that does not name exactly one
	// option per declared variation.
	ErrIncompleteSelection = errors.New("incomplete variation selection")
	// ErrUnknownOption marks a selected option that does not exist under its variation.
	ErrUnknownOption = errors.New("unknown variation option")
	// ErrInvalidState marks a state-machine precondition violation.
	ErrInvalidState = errors.New("invalid state")
	// ErrProvider marks a failure reported by the external payment provider.
	ErrProvider = errors.New("payment provider error")
)

// HTTPStatus maps an error to the status code its taxonomy class carries.
// Unclassified errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInvalidSelection),
		errors.Is(err, ErrIncompleteSelection),
		errors.Is(err, ErrUnknownOption),
		errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
