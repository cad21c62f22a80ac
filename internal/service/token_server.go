package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"go-multi-auth/internal/cache"
	"go-multi-auth/internal/model"
)

const (
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
)

type TokenServerConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenServer is the token endpoint backend: it authenticates clients,
// checks principal credentials and owns the token lifecycle.
type TokenServer struct {
	clients  ClientStore
	stores   PrincipalStores
	verifier *CredentialVerifier
	tokens   TokenStore
	signer   *TokenSigner
	revoked  cache.Cache
	cfg      TokenServerConfig
	now      func() time.Time
}

func NewTokenServer(clients ClientStore, stores PrincipalStores, verifier *CredentialVerifier, tokens TokenStore, signer *TokenSigner, revoked cache.Cache, cfg TokenServerConfig) *TokenServer {
	return &TokenServer{
		clients:  clients,
		stores:   stores,
		verifier: verifier,
		tokens:   tokens,
		signer:   signer,
		revoked:  revoked,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PasswordGrant exchanges principal credentials for a token pair. The
// client's provider decides which principal table is checked.
func (s *TokenServer) PasswordGrant(ctx context.Context, clientID string, clientSecret string, username string, password string) (model.TokenGrant, error) {
	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return model.TokenGrant{}, err
	}

	t, ok := model.PrincipalTypeForProvider(client.Provider)
	if !ok {
		return model.TokenGrant{}, model.ErrInvalidClient
	}

	p, err := s.verifier.Verify(ctx, t, username, password, false)
	if errors.Is(err, model.ErrUnauthorized) {
		return model.TokenGrant{}, fmt.Errorf("%w: the user credentials were incorrect", model.ErrInvalidGrant)
	}
	if err != nil {
		return model.TokenGrant{}, err
	}

	return s.mint(ctx, client, p.ID)
}

// RefreshGrant rotates a refresh token. The presented token is consumed
// even when the rest of the exchange fails.
func (s *TokenServer) RefreshGrant(ctx context.Context, clientID string, clientSecret string, refreshToken string) (model.TokenGrant, error) {
	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return model.TokenGrant{}, err
	}
	if refreshToken == "" {
		return model.TokenGrant{}, fmt.Errorf("%w: refresh token is missing", model.ErrInvalidGrant)
	}

	rt, err := s.tokens.ConsumeRefreshToken(ctx, hashToken(refreshToken))
	if errors.Is(err, model.ErrNotFound) {
		return model.TokenGrant{}, fmt.Errorf("%w: refresh token is invalid", model.ErrInvalidGrant)
	}
	if err != nil {
		return model.TokenGrant{}, err
	}

	at, err := s.tokens.FindAccessToken(ctx, rt.AccessTokenID)
	if errors.Is(err, model.ErrNotFound) {
		return model.TokenGrant{}, fmt.Errorf("%w: refresh token is invalid", model.ErrInvalidGrant)
	}
	if err != nil {
		return model.TokenGrant{}, err
	}
	if at.ClientID != client.ID || at.Provider != client.Provider {
		return model.TokenGrant{}, fmt.Errorf("%w: refresh token was not issued to this client", model.ErrInvalidGrant)
	}

	if err := s.Revoke(ctx, at.ID); err != nil {
		return model.TokenGrant{}, err
	}

	t, _ := model.PrincipalTypeForProvider(at.Provider)
	store, err := s.stores.For(t)
	if err != nil {
		return model.TokenGrant{}, err
	}
	if _, err := store.Find(ctx, at.PrincipalID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TokenGrant{}, fmt.Errorf("%w: principal no longer exists", model.ErrInvalidGrant)
		}
		return model.TokenGrant{}, err
	}

	return s.mint(ctx, client, at.PrincipalID)
}

// ValidateAccessToken resolves a bearer token for a route group. Tokens
// minted for another provider are rejected.
func (s *TokenServer) ValidateAccessToken(ctx context.Context, raw string, provider model.Provider) (model.AccessClaims, error) {
	claims, err := s.signer.Parse(raw)
	if err != nil {
		return model.AccessClaims{}, err
	}
	if claims.Provider != provider {
		return model.AccessClaims{}, model.ErrUnauthorized
	}

	if s.isCachedRevoked(ctx, claims.TokenID) {
		return model.AccessClaims{}, model.ErrUnauthorized
	}

	at, err := s.tokens.FindAccessToken(ctx, claims.TokenID)
	if errors.Is(err, model.ErrNotFound) {
		return model.AccessClaims{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.AccessClaims{}, fmt.Errorf("load access token: %w", err)
	}
	if at.Revoked {
		s.cacheRevoked(ctx, at.ID, at.ExpiresAt)
		return model.AccessClaims{}, model.ErrUnauthorized
	}
	if at.Provider != provider || at.PrincipalID != claims.PrincipalID {
		return model.AccessClaims{}, model.ErrUnauthorized
	}
	return claims, nil
}

// Revoke is idempotent.
func (s *TokenServer) Revoke(ctx context.Context, tokenID string) error {
	if err := s.tokens.RevokeAccessToken(ctx, tokenID); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.cacheRevoked(ctx, tokenID, s.now().Add(s.cfg.AccessTTL))
	return nil
}

// StartCleanup removes expired tokens every interval until ctx is done.
func (s *TokenServer) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.tokens.CleanExpired(ctx)
				if err != nil {
					slog.Error("token cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					slog.Info("expired tokens removed", "count", removed)
				}
			}
		}
	}()
}

func (s *TokenServer) authenticateClient(ctx context.Context, clientID string, clientSecret string) (model.OAuthClient, error) {
	id, err := strconv.ParseInt(clientID, 10, 64)
	if err != nil || id <= 0 {
		return model.OAuthClient{}, model.ErrInvalidClient
	}

	client, err := s.clients.Find(ctx, id)
	if errors.Is(err, model.ErrClientNotFound) {
		return model.OAuthClient{}, model.ErrInvalidClient
	}
	if err != nil {
		return model.OAuthClient{}, fmt.Errorf("load oauth client: %w", err)
	}

	if client.Revoked || subtle.ConstantTimeCompare([]byte(client.Secret), []byte(clientSecret)) != 1 {
		return model.OAuthClient{}, model.ErrInvalidClient
	}
	return client, nil
}

func (s *TokenServer) mint(ctx context.Context, client model.OAuthClient, principalID int64) (model.TokenGrant, error) {
	now := s.now()
	access := model.AccessToken{
		ID:          uuid.NewString(),
		PrincipalID: principalID,
		Provider:    client.Provider,
		ClientID:    client.ID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.AccessTTL),
	}

	signed, err := s.signer.Sign(model.AccessClaims{
		TokenID:     access.ID,
		PrincipalID: access.PrincipalID,
		Provider:    access.Provider,
		ClientID:    access.ClientID,
		ExpiresAt:   access.ExpiresAt,
	}, now)
	if err != nil {
		return model.TokenGrant{}, err
	}

	rawRefresh, err := randomString(40)
	if err != nil {
		return model.TokenGrant{}, err
	}

	if err := s.tokens.CreateTokenPair(ctx, access, model.RefreshToken{
		ID:            hashToken(rawRefresh),
		AccessTokenID: access.ID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.RefreshTTL),
	}); err != nil {
		return model.TokenGrant{}, err
	}

	return model.TokenGrant{
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
		AccessToken:  signed,
		RefreshToken: rawRefresh,
	}, nil
}

func (s *TokenServer) isCachedRevoked(ctx context.Context, tokenID string) bool {
	if s.revoked == nil {
		return false
	}
	_, err := s.revoked.Get(ctx, revokedCacheKey(tokenID))
	return err == nil
}

func (s *TokenServer) cacheRevoked(ctx context.Context, tokenID string, until time.Time) {
	if s.revoked == nil {
		return
	}
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return
	}
	if err := s.revoked.Set(ctx, revokedCacheKey(tokenID), []byte("1"), ttl); err != nil {
		slog.Warn("revocation cache write failed", "error", err)
	}
}

func revokedCacheKey(tokenID string) string {
	return "revoked_token:" + tokenID
}
