package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
)

// PrincipalFunc extracts the verified actor's user id from the request.
// Injected by the composition root so this package does not depend on auth.
type PrincipalFunc func(r *http.Request) (uuid.UUID, bool)

// Handler exposes user HTTP endpoints. Registration lives under /auth.
type Handler struct {
	service   Service
	principal PrincipalFunc
}

func NewHandler(service Service, principal PrincipalFunc) *Handler {
	return &Handler{service: service, principal: principal}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/{id}", h.getUser)
		r.Put("/profile", h.updateProfile)
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, u)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.principal(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), actorID, req)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusOK, u)
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
