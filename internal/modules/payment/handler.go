package payment

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
)

// Handler exposes the payment sub-flow endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payment", func(r chi.Router) {
		r.Post("/create-paypal-payment", h.createPayPalPayment)
		r.Get("/execute-paypal-payment", h.executePayPalPayment)
		r.Get("/{id}", h.getPayment)
	})
}

func (h *Handler) createPayPalPayment(w http.ResponseWriter, r *http.Request) {
	type item struct {
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	}
	var req struct {
		Products []item `json:"products"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}

	var total float64
	for _, it := range req.Products {
		total += it.Price * float64(it.Quantity)
	}

	p, approvalURL, err := h.service.CreatePayPalPayment(r.Context(), total)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"paymentId":   p.PayPalPaymentID,
		"approvalUrl": approvalURL,
	})
}

func (h *Handler) executePayPalPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("paymentId")
	payerID := r.URL.Query().Get("PayerID")
	if paymentID == "" || payerID == "" {
		respondErrMsg(w, http.StatusBadRequest, "paymentId and PayerID are required")
		return
	}

	p, err := h.service.ExecutePayPalPayment(r.Context(), paymentID, payerID)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, p)
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
