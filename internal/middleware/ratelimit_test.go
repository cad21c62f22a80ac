package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-multi-auth/internal/model"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_UnlimitedGeneral(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1, false).Handler(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Request %d failed with status %d", i, rec.Code)
		}
	}
}

func TestRateLimitMiddleware_LimitedAuth(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1, false).Handler(okHandler())

	req1 := httptest.NewRequest(http.MethodPost, "/api/employee/login", nil)
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	// Burst of 1: the second immediate request has no token left.
	req2 := httptest.NewRequest(http.MethodPost, "/api/employee/register", nil)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "60", rec2.Header().Get("Retry-After"))

	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.Error)
	assert.Equal(t, "Too Many Attempts.", body.Message)
}

func TestRateLimitMiddleware_TokenEndpoint(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1, false).Handler(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/oauth/token", nil)
		req.RemoteAddr = "127.0.0.1:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "loopback request %d", i)
	}

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/oauth/token", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_LimitedGeneral(t *testing.T) {
	handler := NewRateLimitMiddleware(1, 5, false).Handler(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestIsCredentialPath(t *testing.T) {
	tests := map[string]bool{
		"/api/auth/login":         true,
		"/api/auth/register":      true,
		"/api/auth/refresh-token": true,
		"/api/auth/refreshtoken":  true,
		"/api/manager/login":      true,
		"/oauth/token":            true,
		"/api/auth/user":          false,
		"/api/employee/info":      false,
		"/login":                  false,
		"/health":                 false,
	}
	for path, want := range tests {
		assert.Equal(t, want, isCredentialPath(path), path)
	}
}

func TestRateLimitMiddleware_Configuration(t *testing.T) {
	mw := NewRateLimitMiddleware(-1, 0, false)
	assert.Equal(t, -1, mw.generalRPM)
	assert.Equal(t, 10, mw.authRPM)
}

func TestRateLimitMiddleware_ProxyHeaders(t *testing.T) {
	direct := NewRateLimitMiddleware(0, 1, false).Handler(okHandler())
	proxied := NewRateLimitMiddleware(0, 1, true).Handler(okHandler())

	send := func(h http.Handler, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// Spoofed headers do not buy a fresh bucket unless the proxy is trusted.
	assert.Equal(t, http.StatusOK, send(direct, "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, send(direct, "198.51.100.2"))

	assert.Equal(t, http.StatusOK, send(proxied, "198.51.100.1, 10.0.0.1"))
	assert.Equal(t, http.StatusOK, send(proxied, "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, send(proxied, "198.51.100.1"))
}

func TestRateLimitMiddleware_ProxiedTokenRequestsAreLimited(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1, true).Handler(okHandler())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/oauth/token", nil)
		req.RemoteAddr = "127.0.0.1:41000"
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
