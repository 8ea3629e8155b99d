package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
	"github.com/Mr-oxm/E-Commerce/internal/modules/user"
)

// Handler exposes the authentication HTTP endpoints.
type Handler struct {
	service     Service
	userService user.Service
}

func NewHandler(service Service, userService user.Service) *Handler {
	return &Handler{service: service, userService: userService}
}

// RegisterRoutes mounts the public auth endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string    `json:"email"`
		Password string    `json:"password"`
		Username string    `json:"username"`
		Role     user.Role `json:"role"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.userService.RegisterUser(r.Context(), req.Email, req.Password, req.Username, req.Role)
	if err != nil {
		respondErr(w, apperr.HTTPStatus(err), err)
		return
	}
	respond(w, http.StatusCreated, u)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}

	token, u, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, http.StatusUnauthorized, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"token": token, "user": u})
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
