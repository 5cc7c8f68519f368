package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireSession(t *testing.T) {
	signedIn := false
	h := RequireSession(func(context.Context) bool { return signedIn })(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/session/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")

	signedIn = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/session/refresh", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCacheControl(t *testing.T) {
	h := CacheControl(60)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products/x/cart", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
