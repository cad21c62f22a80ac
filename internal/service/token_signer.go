package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-multi-auth/internal/model"
)

const accessTokenType = "access"

type accessTokenClaims struct {
	Provider string `json:"prv"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenSigner mints and parses HS256 access tokens.
type TokenSigner struct {
	secret []byte
}

func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret)}
}

func (s *TokenSigner) Sign(c model.AccessClaims, issuedAt time.Time) (string, error) {
	claims := accessTokenClaims{
		Provider: string(c.Provider),
		Type:     accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        c.TokenID,
			Subject:   strconv.FormatInt(c.PrincipalID, 10),
			Audience:  jwt.ClaimStrings{strconv.FormatInt(c.ClientID, 10)},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Parse validates signature, expiry and token type. Every failure is
// model.ErrUnauthorized.
func (s *TokenSigner) Parse(raw string) (model.AccessClaims, error) {
	var claims accessTokenClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return model.AccessClaims{}, model.ErrUnauthorized
	}

	if claims.Type != accessTokenType || claims.ID == "" || len(claims.Audience) != 1 {
		return model.AccessClaims{}, model.ErrUnauthorized
	}

	principalID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return model.AccessClaims{}, model.ErrUnauthorized
	}
	clientID, err := strconv.ParseInt(claims.Audience[0], 10, 64)
	if err != nil {
		return model.AccessClaims{}, model.ErrUnauthorized
	}

	return model.AccessClaims{
		TokenID:     claims.ID,
		PrincipalID: principalID,
		Provider:    model.Provider(claims.Provider),
		ClientID:    clientID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
