package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-multi-auth/internal/model"
)

type tokenValidator interface {
	ValidateAccessToken(ctx context.Context, raw string, provider model.Provider) (model.AccessClaims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	validator tokenValidator
}

func NewAuthMiddleware(validator tokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireProvider admits only bearer tokens minted for provider, so a token
// from one route group never authenticates another.
func (m *AuthMiddleware) RequireProvider(provider model.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeErrorBody(w, http.StatusUnauthorized, "Unauthorized.")
				return
			}

			claims, err := m.validator.ValidateAccessToken(r.Context(), token, provider)
			if err != nil {
				if !errors.Is(err, model.ErrUnauthorized) {
					slog.Error("token validation failed", "provider", string(provider), "error", err)
					writeErrorBody(w, http.StatusInternalServerError, "Server error.")
					return
				}
				writeErrorBody(w, http.StatusUnauthorized, "Unauthorized.")
				return
			}

			ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (model.AccessClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(model.AccessClaims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
