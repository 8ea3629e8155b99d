package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-oxm/E-Commerce/internal/modules/auth"
	"github.com/Mr-oxm/E-Commerce/internal/modules/user"
)

type stubAuthService struct{ principal auth.Principal }

func (s stubAuthService) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	return "", nil, nil
}

func (s stubAuthService) Verify(string) (auth.Principal, error) {
	return s.principal, nil
}

func productRouter(h *Handler, p auth.Principal) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			h.RegisterRoutes(r, auth.Middleware(stubAuthService{principal: p}))
		})
	})
	return r
}

func TestProductRouting(t *testing.T) {
	svc := NewService(newMockRepo())
	sellerID := uuid.New()
	p, err := svc.CreateProduct(context.Background(), sellerID, validFlatRequest())
	require.NoError(t, err)

	router := productRouter(NewHandler(svc), auth.Principal{UserID: sellerID})

	t.Run("mine resolves to the seller listing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products/mine", nil)
		req.Header.Set("Authorization", "Bearer token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body struct {
			Success bool              `json:"success"`
			Data    []json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Len(t, body.Data, 1)
	})

	t.Run("mine requires a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/mine", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("id lookup stays public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+p.ID.String(), nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("listing stays public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("seller verbs reach the protected handlers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/products/"+p.ID.String()+"/stock", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
