package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-multi-auth/internal/model"
)

func TestTokenSigner_RoundTrip(t *testing.T) {
	s := NewTokenSigner("test-secret")
	now := time.Now().UTC()
	in := model.AccessClaims{
		TokenID:     "jti-1",
		PrincipalID: 42,
		Provider:    model.ProviderEmployees,
		ClientID:    7,
		ExpiresAt:   now.Add(time.Hour),
	}

	raw, err := s.Sign(in, now)
	require.NoError(t, err)

	out, err := s.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, in.TokenID, out.TokenID)
	assert.Equal(t, in.PrincipalID, out.PrincipalID)
	assert.Equal(t, in.Provider, out.Provider)
	assert.Equal(t, in.ClientID, out.ClientID)
	assert.Equal(t, in.ExpiresAt.Unix(), out.ExpiresAt.Unix())
}

func TestTokenSigner_Rejects(t *testing.T) {
	s := NewTokenSigner("test-secret")
	now := time.Now().UTC()
	claims := model.AccessClaims{TokenID: "jti", PrincipalID: 1, Provider: model.ProviderUsers, ClientID: 1}

	t.Run("expired", func(t *testing.T) {
		c := claims
		c.ExpiresAt = now.Add(-time.Minute)
		raw, err := s.Sign(c, now.Add(-time.Hour))
		require.NoError(t, err)

		_, err = s.Parse(raw)
		assert.ErrorIs(t, err, model.ErrUnauthorized)
	})

	t.Run("other secret", func(t *testing.T) {
		c := claims
		c.ExpiresAt = now.Add(time.Hour)
		raw, err := NewTokenSigner("other").Sign(c, now)
		require.NoError(t, err)

		_, err = s.Parse(raw)
		assert.ErrorIs(t, err, model.ErrUnauthorized)
	})

	t.Run("wrong token type", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "1", "aud": "1", "jti": "x", "prv": "users", "typ": "refresh",
			"exp": now.Add(time.Hour).Unix(),
		})
		raw, err := token.SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = s.Parse(raw)
		assert.ErrorIs(t, err, model.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Parse("not.a.jwt")
		assert.ErrorIs(t, err, model.ErrUnauthorized)
	})
}
