package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"go-multi-auth/internal/model"
)

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) ValidateAccessToken(ctx context.Context, raw string, provider model.Provider) (model.AccessClaims, error) {
	args := m.Called(ctx, raw, provider)
	return args.Get(0).(model.AccessClaims), args.Error(1)
}

func TestRequireProvider(t *testing.T) {
	v := new(mockValidator)
	v.On("ValidateAccessToken", mock.Anything, "good", model.ProviderEmployees).
		Return(model.AccessClaims{TokenID: "jti", PrincipalID: 3, Provider: model.ProviderEmployees}, nil)
	v.On("ValidateAccessToken", mock.Anything, "revoked", model.ProviderEmployees).
		Return(model.AccessClaims{}, model.ErrUnauthorized)
	v.On("ValidateAccessToken", mock.Anything, "db-down", model.ProviderEmployees).
		Return(model.AccessClaims{}, errors.New("connection refused"))

	var seen model.AccessClaims
	handler := NewAuthMiddleware(v).RequireProvider(model.ProviderEmployees)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer good", http.StatusOK},
		{"lower case scheme", "bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"rejected token", "Bearer revoked", http.StatusUnauthorized},
		{"validator failure", "Bearer db-down", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/employee/info", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Equal(t, int64(3), seen.PrincipalID)
}

func TestClaimsFromContextMissing(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)
}
