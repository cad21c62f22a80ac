package model

import "time"

type OAuthClient struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Secret    string    `json:"-"`
	Provider  Provider  `json:"provider"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenGrant is the raw token endpoint payload. It is passed through
// unchanged by the refresh endpoints.
type TokenGrant struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AccessToken struct {
	ID          string    `json:"id"`
	PrincipalID int64     `json:"principal_id"`
	Provider    Provider  `json:"provider"`
	ClientID    int64     `json:"client_id"`
	Revoked     bool      `json:"revoked"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type RefreshToken struct {
	ID            string    `json:"id"`
	AccessTokenID string    `json:"access_token_id"`
	Revoked       bool      `json:"revoked"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// AccessClaims is what a validated bearer token resolves to.
type AccessClaims struct {
	TokenID     string
	PrincipalID int64
	Provider    Provider
	ClientID    int64
	ExpiresAt   time.Time
}
