package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
	"github.com/Mr-oxm/E-Commerce/internal/modules/auth"
)

// Handler exposes catalog HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterRoutes mounts all product routes on the /products subtree.
// requireAuth wraps the seller-side verbs; browsing stays public. The static
// "mine" route must sit in the same subtree as "{id}" so it wins the match.
func (h *Handler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/", h.listProducts)
	r.Get("/{id}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.createProduct)
		r.Get("/mine", h.listMine)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
		r.Put("/{id}/stock", h.setStock)
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	products, err := h.service.ListProducts(r.Context(), category)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	product, err := h.service.CreateProduct(r.Context(), p.UserID, req)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusCreated, product)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	products, err := h.service.ListSellerProducts(r.Context(), p.UserID)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), p.UserID, id, req)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), p.UserID, id); err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "product removed"})
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Stock int `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	if err := h.service.SetStock(r.Context(), p.UserID, id, req.Stock); err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "stock updated"})
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func respondErr(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
}
