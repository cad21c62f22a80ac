package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggingSetsRequestID(t *testing.T) {
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusUnauthorized, "Unauthorized.")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get(requestIDHeader))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRedactQuery(t *testing.T) {
	assert.Equal(t, "page=2&refresh_token=%5BREDACTED%5D", redactQuery("refresh_token=abc&page=2"))
	assert.Equal(t, "client_secret=%5BREDACTED%5D", redactQuery("client_secret=s"))
	assert.Equal(t, "[unparseable]", redactQuery("a=%zz"))
}
