package order

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
	"github.com/Mr-oxm/E-Commerce/internal/modules/auth"
)

// Handler exposes the order endpoints. All routes require an authenticated
// principal; per-order access rules are enforced in the service.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/history", h.history)
		r.Get("/sales", h.sales)
		r.Get("/{id}", h.getOrder)
		r.Get("/{id}/shipping", h.getShippingDetails)
		r.Put("/{id}/cancel", h.cancelOrder)
		r.Put("/{id}/status", h.updateLineStatus)
		r.Post("/{id}/return", h.requestReturn)
		r.Put("/{id}/return", h.resolveReturn)
	})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondErrMsg(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.service.CreateOrder(r.Context(), actor, req)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusCreated, o)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	actor, orderID, ok := h.actorAndOrder(w, r)
	if !ok {
		return
	}
	o, err := h.service.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) getShippingDetails(w http.ResponseWriter, r *http.Request) {
	actor, orderID, ok := h.actorAndOrder(w, r)
	if !ok {
		return
	}
	details, err := h.service.GetShippingDetails(r.Context(), actor, orderID)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, details)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, orderID, ok := h.actorAndOrder(w, r)
	if !ok {
		return
	}
	o, err := h.service.CancelOrder(r.Context(), actor, orderID)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) updateLineStatus(w http.ResponseWriter, r *http.Request) {
	actor, orderID, ok := h.actorAndOrder(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID uuid.UUID `json:"productId"`
		Status    string    `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.service.UpdateLineStatus(r.Context(), actor, orderID, req.ProductID, LineStatus(req.Status))
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) requestReturn(w http.ResponseWriter, r *http.Request) {
	actor, orderID, ok := h.actorAndOrder(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductIDs []uuid.UUID `json:"productIds"`
		Reason     string      `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.service.RequestReturn(r.Context(), actor, orderID, req.ProductIDs, req.Reason)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) resolveReturn(w http.ResponseWriter, r *http.Request) {
	actor, orderID, ok := h.actorAndOrder(w, r)
	if !ok {
		return
	}
	var req struct {
		Approved bool `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.service.ResolveReturn(r.Context(), actor, orderID, req.Approved)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondErrMsg(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orders, err := h.service.History(r.Context(), actor)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) sales(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondErrMsg(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orders, err := h.service.Sales(r.Context(), actor)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) actorAndOrder(w http.ResponseWriter, r *http.Request) (auth.Principal, uuid.UUID, bool) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondErrMsg(w, http.StatusUnauthorized, "unauthorized")
		return auth.Principal{}, uuid.Nil, false
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return auth.Principal{}, uuid.Nil, false
	}
	return actor, orderID, true
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func respondErr(w http.ResponseWriter, status int, err error) {
	respondErrMsg(w, status, err.Error())
}

func respondErrMsg(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}
