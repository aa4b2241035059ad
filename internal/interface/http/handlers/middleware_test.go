package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminTokenAuth_ValidToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("arena-admin"), bcrypt.MinCost)
	require.NoError(t, err)

	auth := NewAdminTokenAuth(string(hash))
	h := auth.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs", nil)
	req.Header.Set("Authorization", "Bearer arena-admin")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminTokenAuth_WrongToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("arena-admin"), bcrypt.MinCost)
	require.NoError(t, err)

	auth := NewAdminTokenAuth(string(hash))
	h := auth.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminTokenAuth_MissingToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("arena-admin"), bcrypt.MinCost)
	require.NoError(t, err)

	auth := NewAdminTokenAuth(string(hash))
	h := auth.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestAdminTokenAuth_DisabledWithoutHash(t *testing.T) {
	auth := NewAdminTokenAuth("")
	assert.False(t, auth.Enabled())

	h := auth.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminTokenAuth_XAdminTokenHeader(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("arena-admin"), bcrypt.MinCost)
	require.NoError(t, err)

	auth := NewAdminTokenAuth(string(hash))
	h := auth.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs", nil)
	req.Header.Set("X-Admin-Token", "arena-admin")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	h := SecurityHeadersMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestChain_AppliesInOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mw("first"), mw("second"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, []string{"first", "second"}, order)
}
