package review

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
	"github.com/Mr-oxm/E-Commerce/internal/modules/auth"
)

type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterProductRoutes mounts the read side on the products subtree; anyone
// can browse reviews.
func (h *Handler) RegisterProductRoutes(r chi.Router) {
	r.Get("/{id}/reviews", h.listProductReviews)
}

// RegisterRoutes mounts the write side behind authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/reviews", h.createReview)
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondErrMsg(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	rev, err := h.service.CreateReview(r.Context(), actor, req)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusCreated, rev)
}

func (h *Handler) listProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	reviews, err := h.service.ListProductReviews(r.Context(), productID)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, reviews)
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
